package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Handlers groups every route owner mounted under /api.
type Handlers struct {
	Appointment *appointment.Handler
	Auth        Handler
	Patient     Handler
	Doctor      Handler
	Review      Handler
	Health      *health.Handler
	Metrics     *prometheus.Handler
}

type RouterConfig struct {
	// Mode is passed to gin.SetMode when set.
	Mode             string
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	MetricsPath      string
	// EnforceAuth requires a doctor token on the note write routes.
	EnforceAuth bool
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   RouterConfig
}

func NewRouter(handlers Handlers, auth *middleware.AuthMiddleware, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	middleware.RegisterValidation()

	engine := gin.New()
	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	engine.Use(
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(),
		middleware.SizeLimit(config.MaxBodyBytes),
		middleware.Timeout(config.RequestTimeout),
	)
	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(r.engine)
	}
	if r.handlers.Metrics != nil {
		path := r.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, r.handlers.Metrics.Handler())
	}

	api := r.engine.Group("/api")
	for _, h := range []Handler{r.handlers.Auth, r.handlers.Patient, r.handlers.Doctor, r.handlers.Review} {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	if r.handlers.Appointment != nil {
		var noteWriters []gin.HandlerFunc
		if r.config.EnforceAuth && r.auth != nil {
			noteWriters = append(noteWriters,
				r.auth.Authenticate(),
				r.auth.RequireUserType(string(model.UserTypeDoctor)),
			)
		}
		r.handlers.Appointment.RegisterRoutes(api, noteWriters...)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
