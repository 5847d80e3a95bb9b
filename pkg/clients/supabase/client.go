package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/utils"
)

// uniqueViolation is the Postgres SQLSTATE PostgREST relays for a unique index hit.
const uniqueViolation = "23505"

// Client defines the interface for reading and writing leads through the Supabase REST API
type Client interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	InsertLead(ctx context.Context, lead *models.LeadRecord) error
}

type clientImpl struct {
	baseURL    string
	apiKey     string
	table      string
	httpClient *http.Client
}

// NewClient creates a new Supabase client for the given project URL and table
func NewClient(baseURL, apiKey, table string) Client {
	return &clientImpl{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type leadRow struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Role           *string   `json:"role"`
	Tools          []string  `json:"tools"`
	UsageFrequency *string   `json:"usage_frequency"`
	Country        *string   `json:"country"`
	City           *string   `json:"city"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *clientImpl) EmailExists(ctx context.Context, email string) (bool, error) {
	params := url.Values{}
	params.Set("select", "email")
	params.Set("email", "ilike."+escapeLike(email))
	// '*' is a wildcard PostgREST cannot escape, so such patterns may return
	// other addresses and every row is checked below.
	if !strings.Contains(email, "*") {
		params.Set("limit", "1")
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(c.table), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("error creating request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("error querying Supabase: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("error from Supabase API (%d): %s", resp.StatusCode, string(body))
	}

	var rows []struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("error parsing response: %w", err)
	}

	want := utils.NormalizeEmail(email)
	for _, row := range rows {
		if utils.NormalizeEmail(row.Email) == want {
			return true, nil
		}
	}
	return false, nil
}

func (c *clientImpl) InsertLead(ctx context.Context, lead *models.LeadRecord) error {
	if lead.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("error generating lead id: %w", err)
		}
		lead.ID = id.String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal([]leadRow{{
		ID:             lead.ID,
		Email:          lead.Email,
		Role:           optional(lead.Role),
		Tools:          lead.Tools,
		UsageFrequency: optional(lead.UsageFrequency),
		Country:        optional(lead.Country),
		City:           optional(lead.City),
		CreatedAt:      lead.CreatedAt,
	}})
	if err != nil {
		return fmt.Errorf("error creating payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, url.PathEscape(c.table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error inserting lead: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode == http.StatusConflict || isUniqueViolation(body) {
		return models.ErrLeadExists
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("error from Supabase API (%d): %s", resp.StatusCode, string(body))
	}

	log.Printf("Inserted lead %s into Supabase table: %s", lead.ID, c.table)
	return nil
}

func (c *clientImpl) authorize(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func isUniqueViolation(body []byte) bool {
	var pgErr struct {
		Code string `json:"code"`
	}
	return json.Unmarshal(body, &pgErr) == nil && pgErr.Code == uniqueViolation
}

// escapeLike escapes the SQL wildcards in an email for an ilike pattern.
// PostgREST rewrites '*' to '%' before the backslash is seen, so '*' is
// left as is.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
