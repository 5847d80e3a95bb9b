package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fovea/waitlist/pkg/config"
	"github.com/fovea/waitlist/pkg/middleware"
	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/services"
)

// Response messages shown verbatim by the landing page
const (
	MsgSuccess           = "Success"
	MsgSuccessDevMode    = "Success (Development Mode - no database configured)"
	MsgAlreadyRegistered = "You are already on the waitlist!"
	MsgNoMailServer      = "This domain has no valid mail server. Check for typos."
	MsgSystemError       = "System error, please try again."
	MsgInvalidJSON       = "Invalid JSON format"
)

const maxBodyBytes = 16 << 10

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	signupService services.SignupService
	store         string
	devMode       bool
}

// NewHandlers creates a new Handlers instance
func NewHandlers(signupService services.SignupService, cfg *config.Config) *Handlers {
	return &Handlers{
		signupService: signupService,
		store:         cfg.Store,
		devMode:       cfg.DevMode(),
	}
}

// HealthCheck handler for monitoring
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"store":  h.store,
	})
}

// HandleSubscribe adds the posted email to the waitlist
func (h *Handlers) HandleSubscribe(c *gin.Context) {
	var req models.SignupRequest

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("Error reading request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidJSON})
		return
	}

	if err := json.Unmarshal(body, &req); err != nil {
		log.Printf("Error parsing JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgInvalidJSON})
		return
	}

	if _, err := h.signupService.Subscribe(c.Request.Context(), req, middleware.OriginFrom(c)); err != nil {
		h.respondError(c, err)
		return
	}

	message := MsgSuccess
	if h.devMode {
		message = MsgSuccessDevMode
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// respondError maps signup failures onto the public error contract. System
// errors are logged in full and answered with a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.Is(err, services.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"error": MsgAlreadyRegistered})
	case errors.Is(err, services.ErrSignupInProgress):
		log.Printf("Concurrent signup in progress, answering 409")
		c.JSON(http.StatusConflict, gin.H{"error": MsgAlreadyRegistered})
	case errors.Is(err, services.ErrDomainUnverifiable):
		c.JSON(http.StatusBadRequest, gin.H{"error": MsgNoMailServer})
	default:
		log.Printf("Signup system error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": MsgSystemError})
	}
}
