package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// CORS allows the landing page, hosted on its own origin, to call the API.
// "*" admits any origin. Preflight requests are answered here and never
// reach the router; requests from unlisted origins get no CORS headers.
func CORS(allowedOrigins ...string) gin.HandlerFunc {
	handler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	return func(c *gin.Context) {
		passed := false
		handler.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}
