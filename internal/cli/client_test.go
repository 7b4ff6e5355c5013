package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/medrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Query == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: models.MissingQueryMessage})
			return
		}
		_ = json.NewEncoder(w).Encode(models.QueryResponse{Query: req.Query, Result: "ok", Similarity: 0.9})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.Query(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Result)

	_, err = c.Query(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), models.MissingQueryMessage)
}

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.StatusResponse{Documents: 3})
	}))
	defer srv.Close()

	st, err := NewClient(srv.URL, time.Second).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Documents)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Status(context.Background())
	assert.Error(t, err)
}
