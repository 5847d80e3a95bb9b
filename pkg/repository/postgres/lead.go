// Package postgres implements the lead store against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/fovea/waitlist/pkg/models"
	"github.com/fovea/waitlist/pkg/utils"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// LeadRepo implements services.LeadStore against PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if !strings.Contains(dsn, "connect_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "connect_timeout=5"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectPostgres)); err != nil {
		return fmt.Errorf("setting dialect for migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (r *LeadRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM leads WHERE email_normalized = $1)`,
		utils.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lead exists: %w", err)
	}
	return exists, nil
}

// InsertLead relies on the unique index over email_normalized, which is folded
// in Go so that non-ASCII casing does not depend on the server's ctype. A
// conflicting row leaves the table untouched and yields models.ErrLeadExists.
func (r *LeadRepo) InsertLead(ctx context.Context, lead *models.LeadRecord) error {
	if lead.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate lead id: %w", err)
		}
		lead.ID = id.String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (id, email, email_normalized, role, tools, usage_frequency, country, city, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
		ON CONFLICT DO NOTHING
	`, lead.ID, lead.Email, utils.NormalizeEmail(lead.Email), lead.Role, pq.Array(lead.Tools), lead.UsageFrequency,
		lead.Country, lead.City, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	if n == 0 {
		return models.ErrLeadExists
	}
	return nil
}
