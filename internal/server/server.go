package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/pacto/internal/activity"
	"github.com/dukerupert/pacto/internal/device"
	"github.com/dukerupert/pacto/internal/handler"
	"github.com/dukerupert/pacto/internal/household"
	"github.com/dukerupert/pacto/internal/metrics"
	"github.com/dukerupert/pacto/internal/middleware"
	"github.com/dukerupert/pacto/internal/pact"
	"github.com/dukerupert/pacto/internal/push"
	"github.com/dukerupert/pacto/internal/store"
)

// Config carries the collaborators and settings the server does not build
// itself.
type Config struct {
	Verifier       middleware.TokenVerifier
	Notifier       push.Notifier
	VAPIDPublicKey string
	Location       *time.Location
	InviteTTL      time.Duration
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer // nil disables /metrics
	Now            func() time.Time
}

type Server struct {
	db          *sql.DB
	householdH  *handler.HouseholdHandler
	pactH       *handler.PactHandler
	activityH   *handler.ActivityHandler
	deviceH     *handler.DeviceHandler
	verifier    middleware.TokenVerifier
	rateLimiter *middleware.RateLimiter
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	if cfg.Notifier == nil {
		cfg.Notifier = push.Nop
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(prometheus.NewRegistry())
	}

	householdStore := store.NewHouseholdStore(db)
	pactStore := store.NewPactStore(db)
	activityStore := store.NewActivityStore(db)
	deviceStore := store.NewDeviceStore(db)

	guard := household.NewGuard(householdStore)

	householdOpts := []household.Option{household.WithClock(cfg.Now)}
	if cfg.InviteTTL > 0 {
		householdOpts = append(householdOpts, household.WithInviteTTL(cfg.InviteTTL))
	}
	householdSvc := household.NewService(householdStore, guard, logger.With("component", "household"), householdOpts...)

	activityLog := activity.NewLog(activityStore, guard, logger.With("component", "activity"), activity.WithClock(cfg.Now))

	engine := pact.NewEngine(pactStore, guard, activityLog, cfg.Notifier, cfg.Metrics, logger.With("component", "pact"),
		pact.WithClock(cfg.Now), pact.WithLocation(cfg.Location))

	deviceSvc := device.NewService(deviceStore, logger.With("component", "device"))

	return &Server{
		db:          db,
		householdH:  handler.NewHouseholdHandler(householdSvc, logger.With("component", "household_handler")),
		pactH:       handler.NewPactHandler(engine, logger.With("component", "pact_handler")),
		activityH:   handler.NewActivityHandler(activityLog, logger.With("component", "activity_handler")),
		deviceH:     handler.NewDeviceHandler(deviceSvc, cfg.VAPIDPublicKey, logger.With("component", "device_handler")),
		verifier:    cfg.Verifier,
		rateLimiter: cfg.RateLimiter,
		metrics:     cfg.Metrics,
		gatherer:    cfg.Gatherer,
		logger:      logger,
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.gatherer != nil {
		outerMux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Protected routes wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	var protected http.Handler = middleware.RequireAuth(s.verifier)(protectedMux)
	if s.rateLimiter != nil {
		protected = middleware.RateLimit(s.rateLimiter, middleware.RealIP)(protected)
	}
	outerMux.Handle("/", protected)

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Households
	mux.HandleFunc("POST /households", s.householdH.Create)
	mux.HandleFunc("GET /households", s.householdH.List)
	mux.HandleFunc("POST /households/join", s.householdH.Join)
	mux.HandleFunc("GET /households/{id}", s.householdH.Get)
	mux.HandleFunc("POST /households/{id}/invite", s.householdH.Invite)

	// Pacts
	mux.HandleFunc("POST /households/{id}/pacts", s.pactH.Create)
	mux.HandleFunc("GET /households/{id}/pacts", s.pactH.List)
	mux.HandleFunc("GET /households/{id}/pacts/{pactId}", s.pactH.Get)
	mux.HandleFunc("PATCH /households/{id}/pacts/{pactId}", s.pactH.Update)
	mux.HandleFunc("DELETE /households/{id}/pacts/{pactId}", s.pactH.Delete)
	mux.HandleFunc("POST /households/{id}/pacts/{pactId}/assign-to-me", s.pactH.AssignToMe)
	mux.HandleFunc("POST /households/{id}/pacts/{pactId}/mark-done", s.pactH.MarkDone)
	mux.HandleFunc("POST /households/{id}/pacts/{pactId}/confirm", s.pactH.Confirm)

	// Activity
	mux.HandleFunc("GET /households/{id}/activity", s.activityH.Feed)

	// Devices
	mux.HandleFunc("POST /devices/register-token", s.deviceH.Register)
	mux.HandleFunc("DELETE /devices/unregister-token", s.deviceH.Unregister)
	mux.HandleFunc("GET /push/vapid-key", s.deviceH.VAPIDKey)
}
