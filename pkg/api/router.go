package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fovea/waitlist/pkg/config"
	"github.com/fovea/waitlist/pkg/middleware"
)

// NewRouter wires middleware and routes onto a fresh gin engine
func NewRouter(h *Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Access log without the client address
	router.Use(gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		return fmt.Sprintf("[GIN] %s | %3d | %13v | %-7s %s\n",
			p.TimeStamp.Format(time.RFC3339), p.StatusCode, p.Latency, p.Method, p.Path)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": MsgSystemError})
	}))
	router.Use(middleware.CORS(cfg.AllowedOrigins...))
	router.Use(middleware.Origin(cfg.GeoCountryHeader, cfg.GeoCityHeader))

	router.POST("/api/subscribe", h.HandleSubscribe)
	router.GET("/health", h.HealthCheck)

	return router
}
