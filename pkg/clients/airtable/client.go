package airtable

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
)

const defaultBaseURL = "https://api.airtable.com/v0"

// Client defines the interface for interacting with Airtable API
type Client interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	InsertLead(ctx context.Context, lead *models.LeadRecord) error
}

type clientImpl struct {
	apiKey     string
	baseID     string
	table      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Airtable client
func NewClient(apiKey, baseID, table string) Client {
	return newClient(defaultBaseURL, apiKey, baseID, table)
}

func newClient(baseURL, apiKey, baseID, table string) *clientImpl {
	return &clientImpl{
		apiKey:     apiKey,
		baseID:     baseID,
		table:      table,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *clientImpl) tableURL() string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(c.table))
}

func (c *clientImpl) EmailExists(ctx context.Context, email string) (bool, error) {
	params := url.Values{}
	params.Set("filterByFormula", emailFormula(email))
	params.Set("maxRecords", "1")
	params.Add("fields[]", "email")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL()+"?"+params.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("error checking Airtable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("error from Airtable API: %s", string(body))
	}

	var response struct {
		Records []struct {
			ID string `json:"id"`
		} `json:"records"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("error parsing response: %w", err)
	}

	return len(response.Records) > 0, nil
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

	fields := map[string]interface{}{
		"id":         lead.ID,
		"email":      lead.Email,
		"created_at": lead.CreatedAt.Format(time.RFC3339),
	}
	setIfPresent(fields, "role", lead.Role)
	setIfPresent(fields, "usage_frequency", lead.UsageFrequency)
	setIfPresent(fields, "country", lead.Country)
	setIfPresent(fields, "city", lead.City)
	if len(lead.Tools) > 0 {
		fields["tools"] = lead.Tools
	}

	// typecast lets Airtable add unseen multi-select options for tools
	payload := map[string]interface{}{
		"records": []map[string]interface{}{
			{
				"fields": fields,
			},
		},
		"typecast": true,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error creating payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(), bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Add("Authorization", "Bearer "+c.apiKey)
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error creating Airtable record: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("error from Airtable API: %s", string(body))
	}

	log.Printf("Created lead %s in Airtable table: %s", lead.ID, c.table)
	return nil
}

// emailFormula matches the email field case-insensitively. Airtable string
// literals escape backslashes and double quotes with a backslash.
func emailFormula(email string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(email)
	return fmt.Sprintf(`LOWER({email})=LOWER("%s")`, escaped)
}

func setIfPresent(fields map[string]interface{}, key, value string) {
	if value != "" {
		fields[key] = value
	}
}
