package e2e

import (
	"context"
	"strings"
	"unicode"
)

// Document texts of the biomedical corpus, in index order.
var Documents = []string{
	"Aspirin treats headache.",
	"Ibuprofen reduces inflammation.",
	"Insulin regulates blood glucose in diabetes.",
	"Metformin lowers hepatic glucose production.",
	"Amoxicillin is a penicillin antibiotic for bacterial infections.",
	"Statins lower LDL cholesterol and cardiovascular risk.",
	"Warfarin is an anticoagulant that prevents blood clots.",
	"Albuterol relieves bronchospasm in asthma attacks.",
	"Levothyroxine replaces thyroid hormone in hypothyroidism.",
	"Omeprazole suppresses gastric acid secretion.",
	"Sertraline is a selective serotonin reuptake inhibitor for depression.",
	"Vaccines train the immune system to recognize pathogens.",
	"Paracetamol relieves fever and mild pain.",
	"Antihistamines block histamine receptors in allergic rhinitis.",
	"Hypertension is treated with ACE inhibitors such as lisinopril.",
}

// QueryTestCase is a query and the document position expected to answer it.
type QueryTestCase struct {
	Query    string
	Expected int
}

// TestCases are queries whose best match clears the default threshold.
var TestCases = []QueryTestCase{
	{"What reduces inflammation?", 1},
	{"treats headache", 0},
	{"regulates blood glucose in diabetes", 2},
	{"penicillin antibiotic for bacterial infections", 4},
	{"statins lower LDL cholesterol", 5},
	{"anticoagulant prevents blood clots", 6},
	{"relieves bronchospasm in asthma", 7},
	{"suppresses gastric acid", 9},
	{"serotonin reuptake inhibitor for depression", 10},
	{"relieves fever and pain", 12},
}

// OffTopicQueries share no vocabulary with the corpus.
var OffTopicQueries = []string{
	"Tell me a joke",
	"Who won the football match yesterday?",
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "is": true, "in": true, "of": true,
	"for": true, "to": true, "that": true, "what": true, "who": true, "how": true,
	"me": true, "such": true, "as": true, "with": true,
}

// BagOfWordsEmbedder is a deterministic embedder whose dimensions are the
// corpus vocabulary plus one bucket for unknown words. Cosine similarity then
// measures word overlap, which makes expected answers predictable.
type BagOfWordsEmbedder struct {
	vocab map[string]int
	dims  int
}

// NewBagOfWordsEmbedder builds the vocabulary from docs in first-seen order.
func NewBagOfWordsEmbedder(docs []string) *BagOfWordsEmbedder {
	vocab := make(map[string]int)
	for _, d := range docs {
		for _, w := range words(d) {
			if _, ok := vocab[w]; !ok {
				vocab[w] = len(vocab)
			}
		}
	}
	return &BagOfWordsEmbedder{vocab: vocab, dims: len(vocab) + 1}
}

func words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

// Embed returns word counts over the vocabulary.
func (e *BagOfWordsEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make([]float32, e.dims)
	for _, w := range words(text) {
		if i, ok := e.vocab[w]; ok {
			v[i]++
		} else {
			v[e.dims-1]++
		}
	}
	return v, nil
}

// EmbedBatch calls Embed for each text.
func (e *BagOfWordsEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *BagOfWordsEmbedder) Dimensions() int   { return e.dims }
func (e *BagOfWordsEmbedder) ModelName() string { return "bag-of-words" }
func (e *BagOfWordsEmbedder) Close() error      { return nil }
