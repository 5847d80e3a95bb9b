package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/fovea/waitlist/pkg/config"
	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/utils"
)

// SignupService defines the interface for adding people to the waitlist
type SignupService interface {
	Subscribe(ctx context.Context, req models.SignupRequest, origin models.Origin) (*models.LeadRecord, error)
}

// EmailLock guards the duplicate gate for one email across instances.
type EmailLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Option configures a SignupService
type Option func(*signupServiceImpl)

// WithEmailLock holds a per-email lock from the duplicate check through the
// insert. newLock receives a key derived from the case-folded email.
func WithEmailLock(newLock func(key string) EmailLock) Option {
	return func(s *signupServiceImpl) {
		s.newLock = newLock
	}
}

type signupServiceImpl struct {
	store       LeadStore
	verifier    DomainVerifier
	validate    *validator.Validate
	requireRole bool
	newLock     func(key string) EmailLock
}

// NewSignupService creates a new signup service
func NewSignupService(store LeadStore, verifier DomainVerifier, cfg *config.Config, opts ...Option) SignupService {
	s := &signupServiceImpl{
		store:       store,
		verifier:    verifier,
		validate:    newValidator(),
		requireRole: cfg.RequireRole,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe runs the signup gates in order: validation, duplicate check,
// mail-exchange check, insert. The first failing gate ends the call.
func (s *signupServiceImpl) Subscribe(ctx context.Context, req models.SignupRequest, origin models.Origin) (*models.LeadRecord, error) {
	if err := s.validateSignup(&req); err != nil {
		return nil, err
	}

	redacted := utils.RedactEmail(req.Email)
	domain := emailDomain(req.Email)

	if s.newLock != nil {
		l := s.newLock("signup:" + utils.HashEmail(req.Email))
		acquired, err := l.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("error acquiring signup lock: %w", err)
		}
		if !acquired {
			log.Printf("Signup for %s already in progress", redacted)
			return nil, ErrSignupInProgress
		}
		defer func() {
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				log.Printf("Error releasing signup lock for %s: %v", redacted, err)
			}
		}()
	}

	exists, err := s.store.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking existing lead: %w", err)
	}
	if exists {
		log.Printf("Skipping %s as they are already on the waitlist", redacted)
		return nil, ErrAlreadyRegistered
	}

	if !s.verifier.HasMailExchange(ctx, domain) {
		log.Printf("Rejecting %s: domain has no mail exchange", redacted)
		return nil, ErrDomainUnverifiable
	}

	lead := &models.LeadRecord{
		Email:          req.Email,
		Role:           req.Role,
		Tools:          req.Tools,
		UsageFrequency: req.AIFrequency,
		Country:        origin.Country,
		City:           origin.City,
	}
	if err := s.store.InsertLead(ctx, lead); err != nil {
		if errors.Is(err, models.ErrLeadExists) {
			log.Printf("Store rejected %s as a duplicate", redacted)
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("error inserting lead: %w", err)
	}

	log.Printf("Added %s to the waitlist", redacted)
	return lead, nil
}
