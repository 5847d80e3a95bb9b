package services

import "errors"

// Sentinel errors for the signup flow. Anything else returned by
// SignupService.Subscribe is a system failure.
var (
	ErrAlreadyRegistered  = errors.New("email is already on the waitlist")
	ErrDomainUnverifiable = errors.New("email domain has no mail exchange")
	// ErrSignupInProgress means another request holds the lock for the same
	// email. Its outcome is unknown, so this is not proof of registration.
	ErrSignupInProgress = errors.New("signup for this email is already in progress")
)

// ValidationError reports the first request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
