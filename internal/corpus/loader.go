// Package corpus loads corpus files into the ordered list of documents the
// indexer embeds: text is extracted per format, split into lines, trimmed, and
// empty lines are dropped.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/medrag/pkg/utils"
)

// ErrEmptyCorpus is returned when no documents remain after cleaning.
var ErrEmptyCorpus = errors.New("corpus has no documents")

// Loader extracts documents from corpus files.
type Loader struct {
	logger *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader returns a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = utils.LoggerOrNop(l.logger)
	return l
}

// Load reads every path in order and returns the concatenated documents.
// It fails with ErrEmptyCorpus when nothing remains.
func (l *Loader) Load(paths ...string) ([]string, error) {
	var docs []string
	for _, p := range paths {
		fileDocs, err := l.LoadFile(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	return docs, nil
}

// LoadFile returns the cleaned documents of a single file.
func (l *Loader) LoadFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	text, err := ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	docs := utils.SplitLines(text)
	l.logger.Debug("corpus file loaded", zap.String("path", path), zap.String("format", formatName(ext)), zap.Int("documents", len(docs)))
	return docs, nil
}

// ExtractBytes extracts newline-separated text from content based on ext
// (with leading dot). Unknown extensions are read as plain text.
func ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractCat(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}

// SupportedExtensions lists the extensions with a dedicated extractor, plus plain text.
func SupportedExtensions() []string {
	return []string{".txt", ".md", ".pdf", ".docx", ".odt", ".rtf", ".xlsx"}
}

func formatName(ext string) string {
	if ext == "" {
		return "plain"
	}
	return strings.TrimPrefix(ext, ".")
}
