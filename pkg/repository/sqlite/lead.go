// Package sqlite implements the lead store on an embedded SQLite file, for
// single-instance deployments and local development.
package sqlite

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/utils"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// LeadRepo implements services.LeadStore on SQLite.
type LeadRepo struct {
	dbConn *sqlx.DB
}

// NewLeadRepo wraps an open connection.
func NewLeadRepo(db *sqlx.DB) *LeadRepo {
	return &LeadRepo{dbConn: db}
}

// Close terminates the database connection.
func (repo *LeadRepo) Close() error {
	if err := repo.dbConn.Close(); err != nil {
		return fmt.Errorf("closing repo : %w", err)
	}
	return nil
}

// New opens the SQLite file at path and applies all pending migrations.
func New(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations : %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration : %w", err)
	}
	return db, nil
}

type leadRow struct {
	ID             string    `db:"id"`
	Email          string    `db:"email"`
	Normalized     string    `db:"email_normalized"`
	Role           *string   `db:"role"`
	Tools          *string   `db:"tools"`
	UsageFrequency *string   `db:"usage_frequency"`
	Country        *string   `db:"country"`
	City           *string   `db:"city"`
	CreatedAt      time.Time `db:"created_at"`
}

func (repo *LeadRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := repo.dbConn.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM leads WHERE email_normalized = ?)`, utils.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("checking lead : %w", err)
	}
	return exists, nil
}

func (repo *LeadRepo) InsertLead(ctx context.Context, lead *models.LeadRecord) error {
	if lead.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generating lead id : %w", err)
		}
		lead.ID = id.String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	row := leadRow{
		ID:             lead.ID,
		Email:          lead.Email,
		Normalized:     utils.NormalizeEmail(lead.Email),
		Role:           nullable(lead.Role),
		UsageFrequency: nullable(lead.UsageFrequency),
		Country:        nullable(lead.Country),
		City:           nullable(lead.City),
		CreatedAt:      lead.CreatedAt,
	}
	if len(lead.Tools) > 0 {
		b, err := json.Marshal(lead.Tools)
		if err != nil {
			return fmt.Errorf("encoding tools : %w", err)
		}
		s := string(b)
		row.Tools = &s
	}

	res, err := repo.dbConn.NamedExecContext(ctx, `
		INSERT INTO leads (id, email, email_normalized, role, tools, usage_frequency, country, city, created_at)
		VALUES (:id, :email, :email_normalized, :role, :tools, :usage_frequency, :country, :city, :created_at)
		ON CONFLICT DO NOTHING`, row)
	if err != nil {
		return fmt.Errorf("inserting lead : %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting lead : %w", err)
	}
	if n == 0 {
		return models.ErrLeadExists
	}
	return nil
}

// GetLeadByEmail returns the stored lead whose normalized email matches.
func (repo *LeadRepo) GetLeadByEmail(ctx context.Context, email string) (*models.LeadRecord, error) {
	var row leadRow
	err := repo.dbConn.GetContext(ctx, &row, `
		SELECT id, email, email_normalized, role, tools, usage_frequency, country, city, created_at
		FROM leads WHERE email_normalized = ?`, utils.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("getting lead : %w", err)
	}

	lead := &models.LeadRecord{
		ID:             row.ID,
		Email:          row.Email,
		Role:           deref(row.Role),
		UsageFrequency: deref(row.UsageFrequency),
		Country:        deref(row.Country),
		City:           deref(row.City),
		CreatedAt:      row.CreatedAt,
	}
	if row.Tools != nil {
		if err := json.Unmarshal([]byte(*row.Tools), &lead.Tools); err != nil {
			return nil, fmt.Errorf("decoding tools : %w", err)
		}
	}
	return lead, nil
}

// CountLeads returns the number of stored leads.
func (repo *LeadRepo) CountLeads(ctx context.Context) (int, error) {
	var n int
	if err := repo.dbConn.GetContext(ctx, &n, `SELECT COUNT(*) FROM leads`); err != nil {
		return 0, fmt.Errorf("counting leads : %w", err)
	}
	return n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
