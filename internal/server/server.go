// Package server exposes the assessment service over HTTP.
//
// Endpoints:
//
//	GET  /health              - liveness
//	GET  /model               - questionnaire and maturity levels
//	POST /assessments         - submit answers, returns score, level and recommendation
//	GET  /assessments         - recent records, newest first (?limit=)
//	GET  /assessments/stream  - server-sent snapshots after every submission (?limit=)
//	GET  /analytics           - aggregate statistics (?score= adds a percentile)
//	GET  /metrics             - Prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icmm/internal/core"
	"icmm/pkg/schema"
)

// maxListLimit caps ?limit= on listing endpoints.
const maxListLimit = 500

// Subscriber delivers collection snapshots after each change.
type Subscriber interface {
	Subscribe(ctx context.Context, collection string) <-chan []schema.AssessmentRecord
}

// Server holds the HTTP handlers.
type Server struct {
	assessor *core.Assessor
	live     Subscriber
}

// New creates a server. live may be nil, which disables the stream endpoint.
func New(assessor *core.Assessor, live Subscriber) *Server {
	return &Server{assessor: assessor, live: live}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return CORS(s.Routes())
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, WithLogging(pattern, h))
	}

	handle("GET /health", s.handleHealth)
	handle("GET /model", s.handleModel)
	handle("POST /assessments", s.handleSubmit)
	handle("GET /assessments", s.handleList)
	handle("GET /assessments/stream", s.handleStream)
	handle("GET /analytics", s.handleAnalytics)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ModelResponse describes the questionnaire with every implicit option scale spelled out.
type ModelResponse struct {
	Version   string                 `json:"version"`
	MinScore  int                    `json:"min_score"`
	MaxScore  int                    `json:"max_score"`
	Questions []schema.Question      `json:"questions"`
	Levels    []schema.MaturityLevel `json:"levels"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	m := s.assessor.Model()

	questions := make([]schema.Question, len(m.Questions))
	for i, q := range m.Questions {
		q.Options = q.EffectiveOptions()
		questions[i] = q
	}

	JSONResponse(w, http.StatusOK, ModelResponse{
		Version:   m.Version,
		MinScore:  m.MinScore(),
		MaxScore:  m.MaxScore(),
		Questions: questions,
		Levels:    m.Levels,
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req core.SubmitRequest
	if err := ParseJSONBody(w, r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	res, err := s.assessor.Submit(r.Context(), &req)
	if err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			ErrorResponse(w, http.StatusBadRequest, vErr.Error())
			return
		}
		slog.Error("submit failed", "error", err)
		ErrorResponse(w, http.StatusInternalServerError, "Could not score the assessment")
		return
	}

	status := http.StatusCreated
	if !res.Saved {
		status = http.StatusOK
	}
	JSONResponse(w, status, res)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, schema.DefaultDashboardLimit)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.assessor.List(r.Context(), limit)
	if err != nil {
		slog.Error("list failed", "error", err)
		ErrorResponse(w, http.StatusServiceUnavailable, "Assessments are unavailable")
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{
		"count":       len(records),
		"assessments": records,
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		ErrorResponse(w, http.StatusNotFound, "Live updates are not enabled")
		return
	}
	limit, err := parseLimit(r, schema.DefaultDashboardLimit)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for snap := range s.live.Subscribe(r.Context(), s.assessor.Collection()) {
		if len(snap) > limit {
			snap = snap[:limit]
		}
		data, err := json.Marshal(snap)
		if err != nil {
			slog.Error("encode snapshot", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			slog.Warn("stream flush failed", "error", err)
			return
		}
	}
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	var score *int
	if raw := r.URL.Query().Get("score"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			ErrorResponse(w, http.StatusBadRequest, "score must be an integer")
			return
		}
		score = &v
	}

	stats, err := s.assessor.Stats(r.Context(), score)
	if err != nil {
		slog.Error("analytics failed", "error", err)
		ErrorResponse(w, http.StatusServiceUnavailable, "Analytics are unavailable")
		return
	}

	JSONResponse(w, http.StatusOK, stats)
}

// parseLimit reads ?limit=, which must be between 1 and maxListLimit.
func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxListLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", maxListLimit)
	}
	return n, nil
}
