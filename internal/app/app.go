package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	doctorHandler "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	reviewHandler "github.com/jwalitptl/clinic-api/internal/handler/review"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	reviewService "github.com/jwalitptl/clinic-api/internal/service/review"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

type Options struct {
	Config *config.Config
	Repos  repository.Repositories
	// DB backs the readiness probe; nil when running on the memory store.
	DB       health.Pinger
	Registry *prometheus.Registry
	Logger   zerolog.Logger
}

// App is the wired API: services plus the router that exposes them.
type App struct {
	Router       *router.Router
	Appointments *appointmentService.Service
	Patients     *patientService.Service
	Doctors      *doctorService.Service
	Reviews      *reviewService.Service
	Auth         *authService.Service
	Events       *eventService.Service
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry
}

func New(opts Options) (*App, error) {
	cfg := opts.Config

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}
	window, err := appointmentService.ParseSlotWindow(cfg.Scheduling.DayStart, cfg.Scheduling.DayEnd, cfg.Scheduling.SlotInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling window: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	appMetrics := metrics.NewMetrics(cfg.Monitoring.Namespace, "", registry)

	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	// Initialize services
	eventSvc := eventService.NewService(opts.Repos.Outbox, opts.Logger)
	patientSvc := patientService.NewService(opts.Repos.Patients, opts.Repos.Histories, hasher)
	doctorSvc := doctorService.NewService(opts.Repos.Doctors, hasher, doctorService.CacheConfig{
		TTL:             cfg.Cache.DoctorTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	reviewSvc := reviewService.NewService(opts.Repos.Reviews, validator.New())
	authSvc := authService.NewService(patientSvc, opts.Repos.Patients, opts.Repos.Doctors, hasher, jwtSvc, opts.Logger)
	appointmentSvc := appointmentService.NewService(
		opts.Repos.Appointments,
		opts.Repos.Notes,
		opts.Repos.Patients,
		opts.Repos.Doctors,
		eventSvc,
		appointmentService.Config{
			Location:              loc,
			Window:                window,
			AllowNotesOnCancelled: cfg.Scheduling.AllowNotesOnCancelled,
		},
		appMetrics,
		opts.Logger,
	)

	handlers := router.Handlers{
		Appointment: appointmentHandler.NewHandler(appointmentSvc),
		Auth:        authHandler.NewHandler(authSvc),
		Patient:     patientHandler.NewHandler(patientSvc),
		Doctor:      doctorHandler.NewHandler(doctorSvc),
		Review:      reviewHandler.NewHandler(reviewSvc),
		Health:      health.NewHandler(opts.DB),
	}
	if cfg.Monitoring.PrometheusEnabled {
		handlers.Metrics = promHandler.New(cfg.Monitoring.Namespace, registry)
	}

	r := router.NewRouter(handlers, middleware.NewAuthMiddleware(authSvc), router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:       cfg.CORS.MaxAge,
		},
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MetricsPath:    cfg.Monitoring.MetricsPath,
		EnforceAuth:    cfg.Auth.Enforce,
	})
	r.Setup()

	return &App{
		Router:       r,
		Appointments: appointmentSvc,
		Patients:     patientSvc,
		Doctors:      doctorSvc,
		Reviews:      reviewSvc,
		Auth:         authSvc,
		Events:       eventSvc,
		Metrics:      appMetrics,
		Registry:     registry,
	}, nil
}
