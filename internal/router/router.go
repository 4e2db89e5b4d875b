package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/osirix/clinique-api/internal/handler/appointment"
	"github.com/osirix/clinique-api/internal/middleware"
	"github.com/osirix/clinique-api/pkg/httputil"
	"github.com/osirix/clinique-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// RootHandler serves routes outside the versioned API.
type RootHandler interface {
	RegisterRoutes(gin.IRoutes)
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	appointmentH  *appointment.Handler
	catalogH      Handler
	notificationH Handler
	healthH       RootHandler
	metricsH      RootHandler
	config        RouterConfig
}

type RouterConfig struct {
	ServiceName    string
	RateLimit      rate.Limit
	RateBurst      int
	RateEnabled    bool
	RequestTimeout time.Duration
	CatalogMaxAge  time.Duration
	CORSConfig     middleware.CORSConfig
	Validation     middleware.ValidationConfig
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	appointmentH *appointment.Handler,
	catalogH Handler,
	notificationH Handler,
	healthH RootHandler,
	metricsH RootHandler,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		appointmentH:  appointmentH,
		catalogH:      catalogH,
		notificationH: notificationH,
		healthH:       healthH,
		metricsH:      metricsH,
		config:        config,
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		otelgin.Middleware(config.ServiceName),
		middleware.Metrics(m),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig()),
		middleware.ErrorHandler(),
		middleware.Validation(config.Validation),
	)

	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithStatus(c, http.StatusNotFound, "route not found")
	})

	return r
}

func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)
	r.metricsH.RegisterRoutes(r.engine)

	api := r.engine.Group("/api/v1")

	// Public routes
	public := api.Group("", middleware.CacheControl(r.config.CatalogMaxAge))
	r.catalogH.RegisterRoutes(public)

	// Protected routes
	protected := api.Group("", r.auth.Authenticate(), middleware.NoStore())
	r.appointmentH.RegisterRoutes(protected)
	r.notificationH.RegisterRoutes(protected)

	staff := protected.Group("/staff", r.auth.RequireStaff())
	r.appointmentH.RegisterStaffRoutes(staff)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
