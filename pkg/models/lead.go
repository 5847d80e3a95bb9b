package models

import (
	"errors"
	"time"
)

// ErrLeadExists is returned by a lead store when its own uniqueness
// constraint rejects an insert.
var ErrLeadExists = errors.New("lead already exists")

// Usage frequencies offered by the landing page form
const (
	FrequencyMultipleDaily = "multiple-daily"
	FrequencyDaily         = "daily"
	FrequencyWeekly        = "weekly"
	FrequencyRarely        = "rarely"
)

// Represents the JSON body posted by the landing page waitlist form
type SignupRequest struct {
	Email       string   `json:"email" validate:"required,max=254,email,maildomain"`
	Role        string   `json:"role" validate:"required,max=64"`
	Tools       []string `json:"tools,omitempty" validate:"omitempty,max=20,dive,min=1,max=100"`
	AIFrequency string   `json:"ai_frequency,omitempty" validate:"omitempty,oneof=multiple-daily daily weekly rarely"`
}

// Origin carries the coarse geolocation supplied by the hosting platform.
type Origin struct {
	Country string
	City    string
}

// LeadRecord is a persisted waitlist signup
type LeadRecord struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Role           string    `json:"role,omitempty" db:"role"`
	Tools          []string  `json:"tools,omitempty" db:"-"`
	UsageFrequency string    `json:"usage_frequency,omitempty" db:"usage_frequency"`
	Country        string    `json:"country,omitempty" db:"country"`
	City           string    `json:"city,omitempty" db:"city"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
