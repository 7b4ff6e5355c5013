package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/medrag/internal/models"
)

// NoAnswer is shown when the service response has no "result".
const NoAnswer = "No answer found."

// Client posts queries to the query service. It makes exactly one attempt per query.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for endpoint (the full POST /query URL) with a fixed timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Ask sends query and returns the "result" field of the JSON reply whatever
// the HTTP status, or NoAnswer when the field is absent or null. Transport
// errors and bodies that are not a JSON object are returned as errors.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(models.QueryRequest{Query: query})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	v, ok := data["result"]
	if !ok || v == nil {
		return NoAnswer, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
