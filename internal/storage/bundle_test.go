package storage

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/medrag/internal/vector"
)

var (
	testTexts   = []string{"Aspirin treats headache.", "Ibuprofen reduces inflammation.", "Insulin regulates blood glucose."}
	testVectors = [][]float32{{1, 0, 0}, {0, 0.6, 0.8}, {0, 0, 1}}
)

func writeTestBundle(t *testing.T) (string, *Metadata) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "bundle.db")
	meta, err := WriteBundle(context.Background(), path, testTexts, testVectors, Metadata{
		Model:             "test-model",
		CorpusFingerprint: "sha256:abc",
	})
	require.NoError(t, err)
	return path, meta
}

func TestWriteReadBundle(t *testing.T) {
	path, meta := writeTestBundle(t)

	assert.NotEmpty(t, meta.BuildID)
	assert.Equal(t, 3, meta.Count)
	assert.Equal(t, 3, meta.Dimensions)
	assert.Equal(t, MetricInnerProduct, meta.Metric)
	assert.Equal(t, FormatVersion, meta.FormatVersion)

	b, err := ReadBundle(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, testTexts, b.Texts)
	require.Len(t, b.Vectors, len(b.Texts))
	for i, v := range b.Vectors {
		assert.Equal(t, testVectors[i], v, "position %d", i)
		assert.InDelta(t, 1.0, vector.L2Norm(v), 1e-5)
	}
	assert.Equal(t, meta.BuildID, b.Metadata.BuildID)
	assert.Equal(t, "test-model", b.Metadata.Model)
	assert.Equal(t, "sha256:abc", b.Metadata.CorpusFingerprint)
	assert.WithinDuration(t, time.Now(), b.Metadata.CreatedAt, time.Minute)
}

func TestWriteBundle_NoTempFilesLeft(t *testing.T) {
	path, _ := writeTestBundle(t)
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bundle.db", entries[0].Name())
}

func TestWriteBundle_ReplacesExisting(t *testing.T) {
	path, first := writeTestBundle(t)
	second, err := WriteBundle(context.Background(), path, testTexts[:1], testVectors[:1], Metadata{Model: "m2"})
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, second.BuildID)

	b, err := ReadBundle(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aspirin treats headache."}, b.Texts)
	assert.Equal(t, "m2", b.Metadata.Model)
}

func TestWriteBundle_Rejects(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name    string
		texts   []string
		vectors [][]float32
		wantErr error
	}{
		{"empty", nil, nil, ErrEmptyBundle},
		{"count mismatch", []string{"a", "b"}, [][]float32{{1, 0}}, ErrCorruptBundle},
		{"dimension mismatch", []string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}}, vector.ErrDimensionMismatch},
		{"not normalized", []string{"a"}, [][]float32{{2, 0}}, ErrNotNormalized},
		{"nan", []string{"a"}, [][]float32{{nan, 0}}, ErrNotNormalized},
		{"empty text", []string{""}, [][]float32{{1, 0}}, ErrCorruptBundle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bundle.db")
			_, err := WriteBundle(context.Background(), path, tt.texts, tt.vectors, Metadata{})
			assert.ErrorIs(t, err, tt.wantErr)
			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr), "no bundle should be written")
		})
	}
}

func TestWriteBundle_CanceledContextLeavesExistingBundle(t *testing.T) {
	path, first := writeTestBundle(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WriteBundle(ctx, path, testTexts[:1], testVectors[:1], Metadata{})
	require.Error(t, err)

	meta, err := ReadMetadata(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, meta.BuildID)
	entries, _ := os.ReadDir(filepath.Dir(path))
	assert.Len(t, entries, 1, "temporary files should be removed")
}

func TestReadMetadata(t *testing.T) {
	path, meta := writeTestBundle(t)
	got, err := ReadMetadata(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, meta.BuildID, got.BuildID)
	assert.Equal(t, 3, got.Count)
}

func TestReadBundle_NotFound(t *testing.T) {
	_, err := ReadBundle(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, ErrBundleNotFound)
}

func TestReadBundle_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		mutate  string
		wantErr error
	}{
		{"gap in positions", `UPDATE documents SET position = 7 WHERE position = 1`, ErrCorruptBundle},
		{"count mismatch", `UPDATE meta SET value = '5' WHERE key = 'count'`, ErrCorruptBundle},
		{"zero count", `UPDATE meta SET value = '0' WHERE key = 'count'`, ErrEmptyBundle},
		{"short vector", `UPDATE documents SET vector = x'0000803f' WHERE position = 0`, vector.ErrDimensionMismatch},
		{"future version", `UPDATE meta SET value = '2' WHERE key = 'format_version'`, ErrUnsupportedFormat},
		{"other metric", `UPDATE meta SET value = 'l2' WHERE key = 'metric'`, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := writeTestBundle(t)
			db, err := sql.Open("sqlite3", path)
			require.NoError(t, err)
			_, err = db.Exec(tt.mutate)
			require.NoError(t, err)
			require.NoError(t, db.Close())

			_, err = ReadBundle(context.Background(), path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadBundle_NotABundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = ReadBundle(context.Background(), path)
	assert.ErrorIs(t, err, ErrCorruptBundle)
}
