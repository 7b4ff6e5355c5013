package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/internal/retrieval"
	"github.com/hyperjump/medrag/internal/storage"
	"go.uber.org/zap"
)

const maxQueryBody = 1 << 20

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxQueryBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req := models.DecodeQueryRequest(body)
	ans, err := s.engine.Answer(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, models.MissingQueryMessage)
			return
		}
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := models.QueryResponse{
		Query:      ans.Query,
		Result:     ans.Result,
		Similarity: ans.Similarity,
	}
	for _, m := range ans.Matches {
		resp.Matches = append(resp.Matches, models.Match{Position: m.Position, Text: m.Text, Similarity: m.Similarity})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, StatusFromStats(s.engine.Stats(), s.bundlePath))
}

// StatusFromStats builds the status body. Disk usage is included when
// bundlePath is set and readable.
func StatusFromStats(st retrieval.Stats, bundlePath string) models.StatusResponse {
	resp := models.StatusResponse{
		Documents:         st.Documents,
		Dimensions:        st.Metadata.Dimensions,
		Model:             st.Metadata.Model,
		BuildID:           st.Metadata.BuildID,
		CorpusFingerprint: st.Metadata.CorpusFingerprint,
		CreatedAt:         st.Metadata.CreatedAt,
		Threshold:         st.Threshold,
		TopK:              st.TopK,
		IndexType:         st.IndexType,
		BundlePath:        bundlePath,
	}
	if bundlePath != "" {
		if n, err := storage.BundleSize(bundlePath); err == nil {
			resp.DiskUsageBytes = n
		}
	}
	return resp
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
