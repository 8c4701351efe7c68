package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/emojicache/internal/cache"
	"github.com/hyperjump/emojicache/internal/provider"
	"github.com/hyperjump/emojicache/pkg/utils"
	"go.uber.org/zap"
)

type emojiRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleEmoji(w http.ResponseWriter, r *http.Request) {
	var req emojiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("emoji request", zap.String("text", utils.Truncate(req.Text, 80)))

	resp, err := s.service.Handle(r.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrInvalidInput):
			s.respondError(w, http.StatusBadRequest, "text required")
		case errors.Is(err, provider.ErrUnavailable):
			s.logger.Warn("upstream unavailable", zap.Error(err))
			s.respondError(w, http.StatusBadGateway, "upstream unavailable")
		default:
			s.logger.Error("emoji request failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type clusterSummary struct {
	Key            string    `json:"key"`
	Representative string    `json:"representative"`
	Answer         string    `json:"answer"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	keys := s.store.Keys()
	clusters := make([]clusterSummary, 0, len(keys))
	for _, key := range keys {
		c, ok := s.store.Get(key)
		if !ok {
			continue
		}
		clusters = append(clusters, clusterSummary{
			Key:            key,
			Representative: c.Representative,
			Answer:         c.Answer,
			CreatedAt:      c.CreatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"clusters": clusters,
		"total":    len(clusters),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.service.Stats()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"clusters":         s.store.Len(),
		"threshold":        s.service.Threshold(),
		"hits":             stats.Hits,
		"misses":           stats.Misses,
		"store_path":       s.store.Path(),
		"store_size_bytes": s.store.SizeOnDisk(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
