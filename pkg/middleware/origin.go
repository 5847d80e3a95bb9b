package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/fovea/waitlist/pkg/models"
)

const originKey = "waitlist.origin"

// Origin copies the platform's geolocation headers into the request context.
// Values are kept verbatim; the client address is never read.
func Origin(countryHeader, cityHeader string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(originKey, models.Origin{
			Country: c.GetHeader(countryHeader),
			City:    c.GetHeader(cityHeader),
		})
		c.Next()
	}
}

// OriginFrom returns the origin stored by Origin, or the zero value.
func OriginFrom(c *gin.Context) models.Origin {
	if v, ok := c.Get(originKey); ok {
		if o, ok := v.(models.Origin); ok {
			return o
		}
	}
	return models.Origin{}
}
