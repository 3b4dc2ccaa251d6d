// Package httpapi exposes the query service over HTTP.
//
// Routes:
//
//	GET /                          → parameter catalogue (JSON, or HTML for browsers)
//	GET /filtered_data             → raw records, or counts/percentages by factor
//	GET /filtered_data_counts      → counts by factor
//	GET /filtered_data_percentages → percentages by factor
//	GET /healthz                   → "ok" when the database answers
//	GET /metrics                   → Prometheus exposition, when configured
package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"foodsecurity/internal/metrics"
	"foodsecurity/internal/query"
	"foodsecurity/internal/schema"
	"foodsecurity/internal/storage"
)

// Config controls server startup.
type Config struct {
	Addr string

	// Metrics serves /metrics when non-nil.
	Metrics http.Handler
}

// Pinger reports database reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the query service to its routes.
type Server struct {
	cfg  Config
	svc  *query.Service
	db   Pinger
	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer constructs a Server with routes and the embedded index page.
func NewServer(cfg Config, svc *query.Service, db Pinger) *Server {
	s := &Server{
		cfg:  cfg,
		svc:  svc,
		db:   db,
		mux:  http.NewServeMux(),
		tmpl: template.Must(template.New("index").Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("httpapi: listening addr=%s", s.cfg.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() {
	s.mux.Handle("GET /{$}", s.instrument("/", s.handleIndex))
	s.mux.Handle("GET /filtered_data", s.instrument("/filtered_data", s.handleFiltered))
	s.mux.Handle("GET /filtered_data_counts", s.instrument("/filtered_data_counts", s.handleCounts))
	s.mux.Handle("GET /filtered_data_percentages", s.instrument("/filtered_data_percentages", s.handlePercentages))
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}

// Endpoint documents one query route.
type Endpoint struct {
	Path     string   `json:"path"`
	Required []string `json:"required"`
	Optional []string `json:"optional,omitempty"`
}

// Catalogue is the body of GET /.
type Catalogue struct {
	Endpoints  []Endpoint       `json:"endpoints"`
	Parameters query.Parameters `json:"parameters"`
}

var endpoints = []Endpoint{
	{Path: "/filtered_data", Required: []string{"state", "year", "factor", "statistics"}, Optional: []string{"limit"}},
	{Path: "/filtered_data_counts", Required: []string{"state", "year", "factor"}},
	{Path: "/filtered_data_percentages", Required: []string{"state", "year", "factor"}},
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cat := Catalogue{Endpoints: endpoints, Parameters: s.svc.Parameters()}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := s.tmpl.Execute(w, cat); err != nil {
			log.Println("httpapi: template error:", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleFiltered(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := s.svc.Filter(q.Get("state"), q.Get("year"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	col, hasFactor, err := s.svc.Factor(q.Get("factor"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stat, err := query.ParseStatistic(q.Get("statistics"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := query.ParseLimit(q.Get("limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.svc.Filtered(r.Context(), f, col, hasFactor, stat, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	s.handleAggregate(w, r, func(ctx context.Context, req aggregateRequest) (any, error) {
		return s.svc.Counts(ctx, req.filter, req.factor)
	})
}

func (s *Server) handlePercentages(w http.ResponseWriter, r *http.Request) {
	s.handleAggregate(w, r, func(ctx context.Context, req aggregateRequest) (any, error) {
		return s.svc.Percentages(ctx, req.filter, req.factor)
	})
}

type aggregateRequest struct {
	filter storage.Filter
	factor schema.Column
}

// handleAggregate parses state, year and a mandatory factor, then runs fn.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request, fn func(context.Context, aggregateRequest) (any, error)) {
	q := r.URL.Query()
	f, err := s.svc.Filter(q.Get("state"), q.Get("year"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	col, ok, err := s.svc.Factor(q.Get("factor"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		s.fail(w, r, &query.ValidationError{Param: "factor", Msg: "'factor' must name a factor on this endpoint"})
		return
	}
	out, err := fn(r.Context(), aggregateRequest{filter: f, factor: col})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		log.Printf("httpapi: health check failed err=%v", err)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type errorBody struct {
	Error string `json:"error"`
}

// fail answers validation errors with 400 and anything else with 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Msg})
		return
	}
	log.Printf("httpapi: request failed path=%s query=%q err=%v", r.URL.Path, r.URL.RawQuery, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response err=%v", err)
	}
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.RecordRequest(route, rec.code, time.Since(start))
	})
}

//go:embed index.tmpl.html
var indexHTML string
