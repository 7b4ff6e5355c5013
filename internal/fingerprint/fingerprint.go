// Package fingerprint computes a deterministic identity for a cleaned corpus so
// the indexer can skip rebuilding an unchanged bundle.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const prefix = "sha256:"

// Corpus returns a stable fingerprint of the model name and the ordered documents.
// Each field is length-prefixed, so moving text across document boundaries
// changes the result.
func Corpus(model string, documents []string) string {
	h := sha256.New()
	writeField(h, model)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(documents)))
	h.Write(n[:])
	for _, doc := range documents {
		writeField(h, doc)
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

type writer interface {
	Write(p []byte) (int, error)
}

func writeField(w writer, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	_, _ = w.Write(n[:])
	_, _ = w.Write([]byte(s))
}
