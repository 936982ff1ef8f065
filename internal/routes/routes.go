package routes

import (
	"divisionone/internal/handlers"
	"divisionone/internal/middleware"
	"divisionone/pkg/config"

	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(h *handlers.Handler, settings *config.Settings) *gin.Engine {
	r := gin.Default()

	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	r.Use(corsMiddleware(settings.AllowedOrigins))
	r.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: settings.RateLimitRPS,
		Burst:             settings.RateLimitBurst,
	}))

	SetupFeeRoutes(r, h)
	SetupAccountRoutes(r, h)
	SetupEventRoutes(r, h)

	return r
}

// corsMiddleware echoes the request origin back when it is allowed.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// SetupFeeRoutes sets up the fee quote route
func SetupFeeRoutes(r *gin.Engine, h *handlers.Handler) {
	fees := r.Group("/fees")
	{
		fees.GET("/quote", h.QuoteFees)
	}
}

// SetupAccountRoutes sets up routes reading ledger state
func SetupAccountRoutes(r *gin.Engine, h *handlers.Handler) {
	pda := r.Group("/pda")
	{
		pda.GET("/institution-config/:owner", h.GetInstitutionConfig)
		pda.GET("/user-link/:user", h.GetUserLink)
	}

	r.GET("/mints/:mint/extra-account-metas", h.GetExtraAccountMetas)
	r.GET("/accounts/:address", h.GetAccount)
}

// SetupEventRoutes sets up the event log and stream routes
func SetupEventRoutes(r *gin.Engine, h *handlers.Handler) {
	events := r.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/ws", h.StreamEvents)
	}
}
