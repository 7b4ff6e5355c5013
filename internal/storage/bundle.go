package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/medrag/internal/vector"
)

const schema = `
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE documents (
	position INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	vector BLOB NOT NULL
);
`

// WriteBundle writes texts and vectors to path. The file is built under a
// temporary sibling name and renamed into place, so readers never observe a
// partial bundle. BuildID, CreatedAt, Count, Dimensions, Metric and
// FormatVersion in meta are filled in; the completed metadata is returned.
func WriteBundle(ctx context.Context, path string, texts []string, vectors [][]float32, meta Metadata) (*Metadata, error) {
	dims, err := validateContents(texts, vectors)
	if err != nil {
		return nil, err
	}

	meta.BuildID = uuid.NewString()
	meta.Dimensions = dims
	meta.Count = len(texts)
	meta.Metric = MetricInnerProduct
	meta.FormatVersion = FormatVersion
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create bundle directory: %w", err)
		}
	}
	tmp := path + ".tmp-" + meta.BuildID
	if err := writeDatabase(ctx, tmp, texts, vectors, meta); err != nil {
		removeDatabase(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		removeDatabase(tmp)
		return nil, fmt.Errorf("failed to move bundle into place: %w", err)
	}
	return &meta, nil
}

func writeDatabase(ctx context.Context, path string, texts []string, vectors [][]float32, meta Metadata) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open bundle: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	metaStmt, err := tx.PrepareContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer metaStmt.Close()
	for key, value := range metaRows(meta) {
		if _, err := metaStmt.ExecContext(ctx, key, value); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", key, err)
		}
	}

	docStmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (position, text, vector) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer docStmt.Close()
	for i, text := range texts {
		if _, err := docStmt.ExecContext(ctx, i, text, vector.Encode(vectors[i])); err != nil {
			return fmt.Errorf("failed to write document %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bundle: %w", err)
	}
	return nil
}

func removeDatabase(path string) {
	for _, p := range bundleFiles(path) {
		_ = os.Remove(p)
	}
}

func metaRows(m Metadata) map[string]string {
	return map[string]string{
		"build_id":           m.BuildID,
		"model":              m.Model,
		"dimensions":         strconv.Itoa(m.Dimensions),
		"count":              strconv.Itoa(m.Count),
		"metric":             m.Metric,
		"corpus_fingerprint": m.CorpusFingerprint,
		"created_at":         m.CreatedAt.Format(time.RFC3339),
		"format_version":     strconv.Itoa(m.FormatVersion),
	}
}

// openReadOnly opens an existing bundle without creating or modifying it.
func openReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, path)
		}
		return nil, err
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	return db, nil
}

// ReadMetadata loads only the meta table of the bundle at path.
func ReadMetadata(ctx context.Context, path string) (*Metadata, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return readMetadata(ctx, db)
}

func readMetadata(ctx context.Context, db *sql.DB) (*Metadata, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m := &Metadata{
		BuildID:           values["build_id"],
		Model:             values["model"],
		Metric:            values["metric"],
		CorpusFingerprint: values["corpus_fingerprint"],
	}
	if m.FormatVersion, err = strconv.Atoi(values["format_version"]); err != nil {
		return nil, fmt.Errorf("%w: format_version %q", ErrCorruptBundle, values["format_version"])
	}
	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, m.FormatVersion)
	}
	if m.Metric != MetricInnerProduct {
		return nil, fmt.Errorf("%w: metric %q", ErrUnsupportedFormat, m.Metric)
	}
	if m.Dimensions, err = strconv.Atoi(values["dimensions"]); err != nil || m.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions %q", ErrCorruptBundle, values["dimensions"])
	}
	if m.Count, err = strconv.Atoi(values["count"]); err != nil || m.Count < 0 {
		return nil, fmt.Errorf("%w: count %q", ErrCorruptBundle, values["count"])
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339, values["created_at"]); err != nil {
		return nil, fmt.Errorf("%w: created_at %q", ErrCorruptBundle, values["created_at"])
	}
	return m, nil
}

// ReadBundle loads the full bundle at path and verifies that positions are
// dense, the row count matches the metadata and every vector has the declared dimension.
func ReadBundle(ctx context.Context, path string) (*Bundle, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	meta, err := readMetadata(ctx, db)
	if err != nil {
		return nil, err
	}
	if meta.Count == 0 {
		return nil, ErrEmptyBundle
	}

	rows, err := db.QueryContext(ctx, `SELECT position, text, vector FROM documents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	defer rows.Close()

	b := &Bundle{
		Metadata: *meta,
		Texts:    make([]string, 0, meta.Count),
		Vectors:  make([][]float32, 0, meta.Count),
	}
	for rows.Next() {
		var position int
		var text string
		var blob []byte
		if err := rows.Scan(&position, &text, &blob); err != nil {
			return nil, err
		}
		if position != len(b.Texts) {
			return nil, fmt.Errorf("%w: expected position %d, found %d", ErrCorruptBundle, len(b.Texts), position)
		}
		v, err := vector.Decode(blob, meta.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", position, err)
		}
		b.Texts = append(b.Texts, text)
		b.Vectors = append(b.Vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(b.Texts) != meta.Count {
		return nil, fmt.Errorf("%w: metadata count %d, found %d documents", ErrCorruptBundle, meta.Count, len(b.Texts))
	}
	return b, nil
}
