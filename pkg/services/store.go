package services

import (
	"context"
	"log"

	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/utils"
)

// LeadStore is the persistence capability the signup flow depends on.
type LeadStore interface {
	// EmailExists reports whether a lead with this email exists, ignoring case.
	EmailExists(ctx context.Context, email string) (bool, error)

	// InsertLead persists a new lead. Stores that enforce uniqueness return
	// models.ErrLeadExists when the email is already taken.
	InsertLead(ctx context.Context, lead *models.LeadRecord) error
}

// NoopLeadStore backs development mode: nothing is looked up or written.
type NoopLeadStore struct{}

func (NoopLeadStore) EmailExists(context.Context, string) (bool, error) {
	return false, nil
}

func (NoopLeadStore) InsertLead(_ context.Context, lead *models.LeadRecord) error {
	log.Printf("Development mode: skipping persistence for %s", utils.RedactEmail(lead.Email))
	return nil
}
