package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobapply-backend/internal/applications"
	"jobapply-backend/internal/auth"
	"jobapply-backend/internal/services/health"
	"jobapply-backend/internal/shared/config"
	"jobapply-backend/internal/shared/metrics"
	"jobapply-backend/internal/shared/server/middleware"
	"jobapply-backend/internal/shared/server/respond"
)

const generationRateGroup = "GENERATION"

// One generation every five seconds per session, bursts of five.
var generationRateRule = middleware.RateLimitRule{Rate: 0.2, Burst: 5}

// RouterDeps carries the handlers mounted by NewRouter.
type RouterDeps struct {
	Config       config.Config
	Applications *applications.Handler
	GoogleAuth   *auth.GoogleService
	Health       *health.Service
	// Limiter overrides the generation rate limiter, mainly for tests.
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	healthHandler := func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	}
	r.GET("/health", healthHandler)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler)
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.Applications != nil {
		deps.Applications.RegisterRoutes(api,
			middleware.RateLimit(deps.Limiter, generationRateGroup, generationRateRule))
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
