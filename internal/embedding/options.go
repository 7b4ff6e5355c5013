package embedding

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ONNXOptions configures NewONNXEmbedder.
type ONNXOptions struct {
	ModelName         string
	ModelPath         string
	VocabPath         string
	SharedLibraryPath string
	OutputName        string
	Dimensions        int
	MaxTokens         int
	CacheSize         int
	Lowercase         bool
	Logger            *zap.Logger
}

// newTokenizer loads the WordPiece vocabulary, or falls back to SimpleTokenizer
// when no vocab file is present.
func newTokenizer(opts ONNXOptions, logger *zap.Logger) (Tokenizer, error) {
	if opts.VocabPath != "" {
		if _, err := os.Stat(opts.VocabPath); err == nil {
			tok, err := LoadWordPieceTokenizer(opts.VocabPath, opts.Lowercase)
			if err != nil {
				return nil, fmt.Errorf("load tokenizer: %w", err)
			}
			return tok, nil
		}
	}
	logger.Warn("vocab file not found, using simple hash tokenizer", zap.String("vocab_path", opts.VocabPath))
	return &SimpleTokenizer{}, nil
}
