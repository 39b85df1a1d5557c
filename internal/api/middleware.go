package api

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the gin engine with logging, recovery and CORS for allowedOrigin.
func NewRouter(h *Handler, allowedOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(), Recovery(), CORS(allowedOrigin))
	h.RegisterRoutes(router)
	return router
}

// CORS allows a single origin with credentials. Preflight requests are
// answered here and never reach the routes.
func CORS(allowedOrigin string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery turns panics into the route's generic 500 body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		slog.ErrorContext(c.Request.Context(), "panic recovered in handler",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"stack", string(debug.Stack()),
		)
		msg := "Internal server error"
		if c.FullPath() == "/api/upload" {
			msg = "Error uploading file"
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
	})
}
