package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/analyses"
	"bonescan-backend/internal/reports"
	"bonescan-backend/internal/services/health"
	"bonescan-backend/internal/shared/config"
	"bonescan-backend/internal/shared/metrics"
	"bonescan-backend/internal/shared/server/middleware"
	"bonescan-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	GroupAnalyze = "ANALYZE"
	GroupDefault = "DEFAULT"
)

// RouterDeps holds the handlers mounted by NewRouter.
type RouterDeps struct {
	Config          config.Config
	AnalysisHandler *analyses.Handler
	ReportHandler   *reports.Handler
	Health          *health.Service
	Limiter         *middleware.RateLimiter
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
		metrics.Middleware(),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(deps.Config.ScanPolicy, deps.Config.LLMProvider)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitConfig(deps)))
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.RegisterRoutes(api)
	}

	return r
}

// Analysis calls are the expensive ones, so they get the configured budget.
// Everything else gets four times as much.
func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	rules := map[string]middleware.RateLimitRule{}
	if rps := deps.Config.RateLimitRPS; rps > 0 {
		burst := deps.Config.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		rules[GroupAnalyze] = middleware.RateLimitRule{Rate: rps, Burst: burst}
		rules[GroupDefault] = middleware.RateLimitRule{Rate: rps * 4, Burst: burst * 4}
	}
	return middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: GroupDefault,
		Limiter:      deps.Limiter,
		GroupFor: func(c *gin.Context) string {
			if strings.HasSuffix(c.Request.URL.Path, "/analyze-scan") {
				return GroupAnalyze
			}
			return GroupDefault
		},
	}
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
