package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fovea/waitlist/pkg/models"
)

func TestEmailExists_SendsIlikeFilter(t *testing.T) {
	var gotQuery, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/leads", r.URL.Path)
		gotQuery = r.URL.Query().Get("email")
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"email":"First_Last@Example.com"}]`))
	}))
	defer srv.Close()

	exists, err := NewClient(srv.URL+"/", "anon-key", "leads").EmailExists(context.Background(), "first_last@example.com")
	require.NoError(t, err)

	assert.True(t, exists)
	assert.Equal(t, `ilike.first\_last@example.com`, gotQuery)
	assert.Equal(t, "anon-key", gotKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
}

func TestEmailExists_AsteriskRowsConfirmedExactly(t *testing.T) {
	tests := []struct {
		name string
		rows string
		want bool
	}{
		{"wildcard neighbour only", `[{"email":"axyzb@example.com"}]`, false},
		{"exact casing variant", `[{"email":"axyzb@example.com"},{"email":"A*B@Example.com"}]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery url.Values
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				_, _ = w.Write([]byte(tt.rows))
			}))
			defer srv.Close()

			exists, err := NewClient(srv.URL, "k", "leads").EmailExists(context.Background(), "a*b@example.com")
			require.NoError(t, err)

			assert.Equal(t, tt.want, exists)
			assert.Equal(t, "ilike.a*b@example.com", gotQuery.Get("email"))
			assert.False(t, gotQuery.Has("limit"))
		})
	}
}

func TestEmailExists_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	exists, err := NewClient(srv.URL, "k", "leads").EmailExists(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEmailExists_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", "leads").EmailExists(context.Background(), "a@example.com")
	assert.ErrorContains(t, err, "401")
}

func TestInsertLead_PostsRow(t *testing.T) {
	var rows []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &rows))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	lead := &models.LeadRecord{
		Email:   "Test@Example.com",
		Role:    "developer",
		Tools:   []string{"Terminal"},
		Country: "US",
	}
	err := NewClient(srv.URL, "k", "leads").InsertLead(context.Background(), lead)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "Test@Example.com", rows[0]["email"])
	assert.Equal(t, "developer", rows[0]["role"])
	assert.Equal(t, "US", rows[0]["country"])
	assert.Nil(t, rows[0]["city"])
	assert.Nil(t, rows[0]["usage_frequency"])
	assert.NotEmpty(t, lead.ID)
	assert.False(t, lead.CreatedAt.IsZero())
}

func TestInsertLead_UniqueViolation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value violates unique constraint \"leads_email_lower_key\""}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", "leads").InsertLead(context.Background(), &models.LeadRecord{Email: "dup@example.com"})
	assert.ErrorIs(t, err, models.ErrLeadExists)
}

func TestInsertLead_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", "leads").InsertLead(context.Background(), &models.LeadRecord{Email: "a@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrLeadExists)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c*d@x.io`, escapeLike("a_b%c*d@x.io"))
}
