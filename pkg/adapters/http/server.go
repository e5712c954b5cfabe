package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/export"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies; the largest legitimate one is a scene card.
const maxBodyBytes = 1 << 20

var errMalformed = errors.New("malformed JSON body")

// Server serves the vignette REST API over an Engine.
type Server struct {
	Engine  *vignette.Engine
	Streams *StreamManager

	logger   *slog.Logger
	metrics  *observability.Metrics
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics records request counts and latencies.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithGatherer exposes gatherer on GET /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine *vignette.Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/document", s.GetDocument)
	r.Put("/core", s.PutCore)

	r.Route("/scenes", func(r chi.Router) {
		r.Get("/", s.ListScenes)
		r.Post("/", s.CreateScene)
		r.Put("/{id}", s.UpdateScene)
		r.Delete("/{id}", s.DeleteScene)
	})
	r.Route("/techniques", func(r chi.Router) {
		r.Get("/", s.ListTechniques)
		r.Post("/", s.CreateTechnique)
		r.Put("/{id}", s.UpdateTechnique)
		r.Delete("/{id}", s.DeleteTechnique)
	})
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.Generate)
		r.Get("/{id}", s.GetRun)
		r.Get("/{id}/export.csv", s.ExportCSV)
		r.Post("/{id}/best", s.MarkBest)
		r.Get("/{id}/events", s.SubscribeEvents)
	})
	r.Post("/variants/{id}/qc", s.UpdateQC)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records every request under its chi route pattern, so path ids
// never become label values.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.Request(r.Method, route, code, time.Since(start))
	})
}

// Request schemas, built once.
var (
	generateSchema  = schema.GenerateRequestSchema()
	qcSchema        = schema.QCRequestSchema()
	bestSchema      = schema.BestRequestSchema()
	coreSchema      = schema.LockedCoreRequestSchema()
	sceneSchema     = schema.SceneRequestSchema()
	techniqueSchema = schema.TechniqueRequestSchema()
)

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(vignette.Version),
	})
}

// GetDocument handles the GET /document request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Engine.Document(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// PutCore handles the PUT /core request.
func (s *Server) PutCore(w http.ResponseWriter, r *http.Request) {
	var core domain.LockedCore
	if err := decodeBody(r, coreSchema, &core); err != nil {
		s.writeError(w, r, err)
		return
	}
	core, err := s.Engine.ReplaceLockedCore(r.Context(), core)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, core)
}

// ListScenes handles the GET /scenes request.
func (s *Server) ListScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := s.Engine.Scenes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, scenes)
}

// CreateScene handles the POST /scenes request.
func (s *Server) CreateScene(w http.ResponseWriter, r *http.Request) {
	var scene domain.SceneCard
	if err := decodeBody(r, sceneSchema, &scene); err != nil {
		s.writeError(w, r, err)
		return
	}
	scene, err := s.Engine.CreateScene(r.Context(), scene)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, scene)
}

// UpdateScene handles the PUT /scenes/{id} request.
func (s *Server) UpdateScene(w http.ResponseWriter, r *http.Request) {
	var scene domain.SceneCard
	if err := decodeBody(r, sceneSchema, &scene); err != nil {
		s.writeError(w, r, err)
		return
	}
	scene, err := s.Engine.UpdateScene(r.Context(), chi.URLParam(r, "id"), scene)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, scene)
}

// DeleteScene handles the DELETE /scenes/{id} request.
func (s *Server) DeleteScene(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteScene(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTechniques handles the GET /techniques request.
func (s *Server) ListTechniques(w http.ResponseWriter, r *http.Request) {
	techniques, err := s.Engine.Techniques(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, techniques)
}

// CreateTechnique handles the POST /techniques request.
func (s *Server) CreateTechnique(w http.ResponseWriter, r *http.Request) {
	var technique domain.Technique
	if err := decodeBody(r, techniqueSchema, &technique); err != nil {
		s.writeError(w, r, err)
		return
	}
	technique, err := s.Engine.CreateTechnique(r.Context(), technique)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, technique)
}

// UpdateTechnique handles the PUT /techniques/{id} request.
func (s *Server) UpdateTechnique(w http.ResponseWriter, r *http.Request) {
	var technique domain.Technique
	if err := decodeBody(r, techniqueSchema, &technique); err != nil {
		s.writeError(w, r, err)
		return
	}
	technique, err := s.Engine.UpdateTechnique(r.Context(), chi.URLParam(r, "id"), technique)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, technique)
}

// DeleteTechnique handles the DELETE /techniques/{id} request.
func (s *Server) DeleteTechnique(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.DeleteTechnique(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles the POST /runs request.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	var req vignette.GenerateRequest
	if err := decodeBody(r, generateSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Engine.Generate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

// runView is the GET /runs/{id} payload.
type runView struct {
	Run      domain.Run       `json:"run"`
	Variants []domain.Variant `json:"variants"`
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, variants, err := s.Engine.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runView{Run: run, Variants: variants})
}

// ExportCSV handles the GET /runs/{id}/export.csv request.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	run, variants, err := s.Engine.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.ID+".csv"))
	if err := export.CSV(w, run, variants); err != nil {
		s.logger.Error("csv export failed", "run_id", run.ID, "err", err)
	}
}

// MarkBest handles the POST /runs/{id}/best request.
func (s *Server) MarkBest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VariantID string `mapstructure:"variant_id"`
	}
	if err := decodeBody(r, bestSchema, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.Engine.MarkBest(r.Context(), chi.URLParam(r, "id"), body.VariantID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.broadcast(res.Changes)
	s.writeJSON(w, http.StatusOK, res)
}

// UpdateQC handles the POST /variants/{id}/qc request.
func (s *Server) UpdateQC(w http.ResponseWriter, r *http.Request) {
	var req vignette.QCRequest
	if err := decodeBody(r, qcSchema, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.VariantID = chi.URLParam(r, "id")
	res, err := s.Engine.UpdateQC(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.broadcast(res.Changes)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) broadcast(diff *domain.RunDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("failed to encode run diff", "run_id", diff.RunID, "err", err)
		return
	}
	s.Streams.Broadcast(diff.RunID, string(data))
}

// -- Helpers --

// decodeBody reads a JSON object, checks it against sch and decodes it into out.
func decodeBody(r *http.Request, sch schema.Schema, out any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return schema.Invalid("$", "expected object", raw)
	}
	return schema.Decode(sch, obj, out)
}

type fieldError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

type errorBody struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

// statusOf maps engine errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errMalformed):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	body := errorBody{Error: err.Error()}
	if code == http.StatusUnprocessableEntity {
		body.Fields = fieldsOf(err)
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "err", err)
	}
	s.writeJSON(w, code, body)
}

func fieldsOf(err error) []fieldError {
	errs := schema.ValidationErrors(err)
	if errs == nil {
		errs = []error{err}
	}
	var out []fieldError
	for _, e := range errs {
		var ve *schema.ValidationError
		if errors.As(e, &ve) {
			out = append(out, fieldError{Key: ve.Key, Reason: ve.Reason})
		}
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
