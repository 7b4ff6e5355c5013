package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
// All three slices have length maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

const (
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	unkToken = "[UNK]"
	padToken = "[PAD]"

	maxWordPieceChars = 100
)

// WordPieceTokenizer implements the BERT uncased tokenizer: basic cleanup and
// punctuation splitting, then greedy longest-match-first WordPiece.
type WordPieceTokenizer struct {
	vocab     map[string]int64
	lowercase bool
	cls       int64
	sep       int64
	unk       int64
	pad       int64
}

// LoadWordPieceTokenizer reads a vocab.txt (one token per line, ID = line number).
func LoadWordPieceTokenizer(path string, lowercase bool) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r")
		if _, dup := vocab[token]; !dup {
			vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewWordPieceTokenizer(vocab, lowercase)
}

// NewWordPieceTokenizer builds a tokenizer from an in-memory vocabulary.
// The vocabulary must contain [CLS], [SEP], [UNK] and [PAD].
func NewWordPieceTokenizer(vocab map[string]int64, lowercase bool) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{vocab: vocab, lowercase: lowercase}
	for _, special := range []struct {
		token string
		dst   *int64
	}{{clsToken, &t.cls}, {sepToken, &t.sep}, {unkToken, &t.unk}, {padToken, &t.pad}} {
		id, ok := vocab[special.token]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", special.token)
		}
		*special.dst = id
	}
	return t, nil
}

// Tokenize encodes text as [CLS] pieces... [SEP], truncated and padded to maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)
	for i := range inputIDs {
		inputIDs[i] = t.pad
	}

	pieces := t.Pieces(text)
	if len(pieces) > maxTokens-2 {
		pieces = pieces[:maxTokens-2]
	}

	inputIDs[0] = t.cls
	attentionMask[0] = 1
	pos := 1
	for _, id := range pieces {
		inputIDs[pos] = id
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = t.sep
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// Pieces returns the WordPiece IDs for text without special tokens.
func (t *WordPieceTokenizer) Pieces(text string) []int64 {
	var ids []int64
	for _, word := range basicTokenize(text, t.lowercase) {
		ids = append(ids, t.wordPiece(word)...)
	}
	return ids
}

func (t *WordPieceTokenizer) wordPiece(word string) []int64 {
	chars := []rune(word)
	if len(chars) > maxWordPieceChars {
		return []int64{t.unk}
	}
	var ids []int64
	start := 0
	for start < len(chars) {
		end := len(chars)
		found := int64(-1)
		for start < end {
			sub := string(chars[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				found = id
				break
			}
			end--
		}
		if found < 0 {
			return []int64{t.unk}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}

// basicTokenize cleans text, optionally lowercases and strips accents, and
// splits on whitespace and punctuation. Punctuation becomes its own token.
func basicTokenize(text string, lowercase bool) []string {
	if lowercase {
		text = strings.ToLower(text)
		stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if stripped, _, err := transform.String(stripAccents, text); err == nil {
			text = stripped
		}
	}
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
			continue
		case unicode.IsSpace(r):
			flush()
		case isPunctuation(r):
			flush()
			words = append(words, string(r))
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs, used when no vocab file exists.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = 101 // [CLS]
	attentionMask[0] = 1

	pos := 1
	for _, word := range words {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = 102 // [SEP]
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	return strings.Fields(text)
}

// HashString returns a deterministic hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
