// Package models holds the JSON wire types shared by the query service, the
// front-end relay and the CLI.
package models

import (
	"encoding/json"
	"time"
)

// MissingQueryMessage is the error text for a request without a usable query.
const MissingQueryMessage = "Missing or empty 'query' field"

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// DecodeQueryRequest parses a POST /query body leniently: a body that is not
// a JSON object, or whose "query" is absent or not a string, yields an empty
// query rather than an error.
func DecodeQueryRequest(data []byte) QueryRequest {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return QueryRequest{}
	}
	var q string
	if v, ok := raw["query"]; ok {
		_ = json.Unmarshal(v, &q)
	}
	return QueryRequest{Query: q}
}

// QueryResponse is the 200 body of POST /query.
type QueryResponse struct {
	Query      string  `json:"query"`
	Result     string  `json:"result"`
	Similarity float64 `json:"similarity"`
	Matches    []Match `json:"matches,omitempty"`
}

// Match is one ranked hit, present only when more than one hit is requested.
type Match struct {
	Position   int     `json:"position"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse summarizes the loaded bundle and decision rule.
type StatusResponse struct {
	Documents         int       `json:"documents"`
	Dimensions        int       `json:"dimensions"`
	Model             string    `json:"model"`
	BuildID           string    `json:"build_id"`
	CorpusFingerprint string    `json:"corpus_fingerprint"`
	CreatedAt         time.Time `json:"created_at"`
	Threshold         float64   `json:"threshold"`
	TopK              int       `json:"top_k"`
	IndexType         string    `json:"index_type"`
	BundlePath        string    `json:"bundle_path,omitempty"`
	DiskUsageBytes    int64     `json:"disk_usage_bytes,omitempty"`
}
