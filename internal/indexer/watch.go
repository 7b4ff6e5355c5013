package indexer

import (
	"context"
	"time"

	"github.com/hyperjump/medrag/internal/corpus"
	"github.com/hyperjump/medrag/internal/watcher"
	"go.uber.org/zap"
)

// Watch rebuilds the bundle whenever a corpus path changes, until ctx is done.
// Rebuilds run one at a time; changes arriving during a rebuild trigger one
// more rebuild afterwards. Build errors are logged and do not stop the loop.
func (idx *Indexer) Watch(ctx context.Context, paths []string, debounce time.Duration) error {
	trigger := make(chan struct{}, 1)
	w := watcher.NewWatcher(paths, corpus.SupportedExtensions(), func(path string) {
		idx.logger.Info("corpus changed", zap.String("path", path))
		select {
		case trigger <- struct{}{}:
		default:
		}
	}, watcher.WithDebounce(debounce), watcher.WithLogger(idx.logger))
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	idx.logger.Info("watching corpus", zap.Strings("paths", w.Paths()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			res, err := idx.Build(ctx, paths, false)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				idx.logger.Error("rebuild failed", zap.Error(err))
				continue
			}
			if res.Skipped {
				idx.logger.Debug("corpus content unchanged")
			}
		}
	}
}
