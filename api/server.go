// Package api provides the HTTP API for the WiFi monitoring service. It
// joins the registry and telemetry stores with the scoring classifier and
// recommendation ranker; all scoring happens per request from the current
// snapshot, nothing derived is ever persisted.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"wifi-monitor/db/storage"
	"wifi-monitor/engine/recommend"
	"wifi-monitor/engine/scoring"
	"wifi-monitor/model"
	"wifi-monitor/pkg/apierrors"
)

// currentAPRadiusMeters bounds how far away an AP can be and still count as
// the one the requester is connected to.
const currentAPRadiusMeters = 50.0

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
	CORSOrigins    []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxRequestSize: 1 << 20, // 1MB
		CORSOrigins:    []string{"*"},
	}
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	registry   storage.RegistryStore
	telemetry  storage.TelemetryStore
	classifier *scoring.Classifier
	ranker     *recommend.Ranker
	config     *Config
	log        zerolog.Logger
}

// NewServer wires the stores and engines into an HTTP server.
func NewServer(
	registry storage.RegistryStore,
	telemetry storage.TelemetryStore,
	classifier *scoring.Classifier,
	ranker *recommend.Ranker,
	config *Config,
	log zerolog.Logger,
) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		registry:   registry,
		telemetry:  telemetry,
		classifier: classifier,
		ranker:     ranker,
		config:     config,
		log:        log,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", s.handleAPIHome)
		r.Get("/access-points", s.handleListAccessPoints)
		r.Get("/access-points/{id}", s.handleGetAccessPoint)
		r.Get("/access-points/{id}/trends", s.handleTrends)
		r.Post("/performance-metrics", s.handleSubmitMetrics)
		r.Get("/recommendations", s.handleRecommendations)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.log.Info().Int("port", s.config.Port).Msg("Starting WiFi monitoring API server")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and drains it on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("Shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				break
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HEALTH ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.registry.Ping(ctx); err != nil {
		s.jsonError(w, http.StatusServiceUnavailable, "registry store not ready")
		return
	}
	if err := s.telemetry.Ping(ctx); err != nil {
		s.jsonError(w, http.StatusServiceUnavailable, "telemetry store not ready")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleAPIHome(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "University WiFi Monitoring System API",
	})
}

// =============================================================================
// ACCESS POINT ENDPOINTS
// =============================================================================

func (s *Server) handleListAccessPoints(w http.ResponseWriter, r *http.Request) {
	scored, err := s.scoredSnapshots(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load access points")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch access points")
		return
	}
	s.jsonResponse(w, http.StatusOK, scored)
}

func (s *Server) handleGetAccessPoint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	info, err := s.registry.GetAccessPoint(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("ap_id", id).Msg("Failed to load access point")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch access point")
		return
	}
	if info == nil {
		s.jsonErrorObj(w, http.StatusNotFound, apierrors.NotFound(id))
		return
	}

	latest, err := s.telemetry.LatestSamples(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest samples")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch metrics")
		return
	}
	var sample *model.MetricSample
	if latestSample, ok := latest[info.ID]; ok {
		sample = &latestSample
	}
	s.jsonResponse(w, http.StatusOK, s.classifier.Score(model.Snapshot(*info, sample)))
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	hours := intParam(r, "hours", 24)
	if hours <= 0 || hours > 24*30 {
		s.jsonError(w, http.StatusBadRequest, "hours must be in 1..720")
		return
	}
	ctx := r.Context()

	info, err := s.registry.GetAccessPoint(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("ap_id", id).Msg("Failed to load access point")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch access point")
		return
	}
	if info == nil {
		s.jsonErrorObj(w, http.StatusNotFound, apierrors.NotFound(id))
		return
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	samples, err := s.telemetry.TrendWindow(ctx, id, since)
	if err != nil {
		s.log.Error().Err(err).Str("ap_id", id).Msg("Failed to load trend window")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch trends")
		return
	}

	trend := make([]model.ScoredAccessPoint, len(samples))
	for i := range samples {
		trend[i] = s.classifier.Score(model.Snapshot(*info, &samples[i]))
	}
	s.jsonResponse(w, http.StatusOK, trend)
}

// =============================================================================
// METRICS SUBMISSION
// =============================================================================

type submitRequest struct {
	Name      string   `json:"ap_name"`
	Building  string   `json:"building"`
	Floor     int      `json:"floor"`
	Room      string   `json:"room_number"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	model.Metrics
}

func (s *Server) handleSubmitMetrics(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Name == "" {
		s.jsonError(w, http.StatusBadRequest, "ap_name is required")
		return
	}
	ctx := r.Context()

	apID, err := s.registry.UpsertAccessPoint(ctx, model.AccessPointInfo{
		Name:      req.Name,
		Building:  req.Building,
		Floor:     req.Floor,
		Room:      req.Room,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		s.log.Error().Err(err).Str("ap", req.Name).Msg("Failed to upsert access point")
		s.jsonError(w, http.StatusInternalServerError, "failed to register access point")
		return
	}

	err = s.telemetry.InsertSample(ctx, model.MetricSample{
		APID:      apID,
		Metrics:   req.Metrics,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("ap", req.Name).Msg("Failed to insert sample")
		s.jsonError(w, http.StatusInternalServerError, "failed to store metrics")
		return
	}

	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"message": "Metrics submitted successfully",
		"ap_id":   apID,
	})
}

// =============================================================================
// RECOMMENDATIONS AND STATS
// =============================================================================

type recommendationsResponse struct {
	UserLocation    *recommend.Location       `json:"user_location,omitempty"`
	CurrentAP       *model.RankedAccessPoint  `json:"current_ap,omitempty"`
	Recommendations []model.RankedAccessPoint `json:"recommendations"`
	Congested       []string                  `json:"congested"`
	Alerts          model.AlertSummary        `json:"alerts"`
	Aggregate       model.Aggregate           `json:"aggregate"`
	Message         string                    `json:"message"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	k := intParam(r, "k", 0)

	scored, err := s.scoredSnapshots(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load access points")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch recommendations")
		return
	}

	resp := recommendationsResponse{UserLocation: loc}

	// The AP the requester is already on shouldn't be recommended to them.
	candidates := scored
	if loc != nil {
		if current := recommend.NearestWithin(scored, *loc, currentAPRadiusMeters); current != nil {
			resp.CurrentAP = current
			candidates = make([]model.ScoredAccessPoint, 0, len(scored)-1)
			for _, ap := range scored {
				if ap.ID != current.ID {
					candidates = append(candidates, ap)
				}
			}
		}
	}

	result := s.ranker.RecommendK(candidates, loc, k)
	resp.Recommendations = result.Ranked
	resp.Congested = result.Congested
	resp.Alerts = result.Alerts
	resp.Aggregate = result.Aggregate
	if resp.CurrentAP != nil {
		// Aggregates and congestion alerts cover the whole network. Only
		// the ranked list excludes the AP the requester is already on.
		full := s.ranker.Recommend(scored, nil)
		resp.Congested = full.Congested
		resp.Alerts = full.Alerts
		resp.Aggregate = full.Aggregate
	}
	resp.Message = recommend.AdviceMessage(resp.CurrentAP, result.Ranked)
	s.jsonResponse(w, http.StatusOK, resp)
}

type statsResponse struct {
	Aggregate model.Aggregate    `json:"aggregate"`
	Congested []string           `json:"congested"`
	Alerts    model.AlertSummary `json:"alerts"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	scored, err := s.scoredSnapshots(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load access points")
		s.jsonError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	result := s.ranker.Recommend(scored, nil)
	s.jsonResponse(w, http.StatusOK, statsResponse{
		Aggregate: result.Aggregate,
		Congested: result.Congested,
		Alerts:    result.Alerts,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// scoredSnapshots assembles the current scored view of every registered AP.
func (s *Server) scoredSnapshots(ctx context.Context) ([]model.ScoredAccessPoint, error) {
	infos, err := s.registry.ListAccessPoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list access points: %w", err)
	}
	latest, err := s.telemetry.LatestSamples(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest samples: %w", err)
	}

	snaps := make([]model.AccessPointSnapshot, len(infos))
	for i, info := range infos {
		var sample *model.MetricSample
		if latestSample, ok := latest[info.ID]; ok {
			sample = &latestSample
		}
		snaps[i] = model.Snapshot(info, sample)
	}
	return s.classifier.ScoreAll(snaps), nil
}

func parseLocation(r *http.Request) (*recommend.Location, error) {
	latStr := r.URL.Query().Get("latitude")
	lonStr := r.URL.Query().Get("longitude")
	if latStr == "" && lonStr == "" {
		return nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, fmt.Errorf("latitude and longitude must be provided together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %v", err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %v", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range")
	}
	return &recommend.Location{Latitude: lat, Longitude: lon}, nil
}

func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) jsonErrorObj(w http.ResponseWriter, status int, err *apierrors.Error) {
	s.jsonResponse(w, status, map[string]interface{}{"error": err})
}
