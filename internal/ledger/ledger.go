// Package ledger keeps an audit row per processed submission so operators can
// reconcile the CRM by hand when a step degraded or the deal write failed.
package ledger

import (
	"context"
	"embed"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Migrations holds the goose migrations for the ledger schema.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// Outcomes recorded per submission.
const (
	OutcomeDealCreated = "deal_created"
	OutcomeDealFailed  = "deal_failed"
)

// Entry is one processed submission.
type Entry struct {
	ID            uuid.UUID
	Email         string
	Company       string
	CountryCode   string
	PipelineID    int64
	StageID       int64
	LowScoreCount int
	Qualifies     bool
	PersonID      int64 // 0 when unresolved
	OrgID         int64 // 0 when unresolved or skipped
	DealID        int64 // 0 when the deal write failed
	Outcome       string
	Degraded      []string
	CreatedAt     time.Time
}

// Recorder persists entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// NoopRecorder discards entries. Used when no database is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, Entry) error { return nil }

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Repository stores entries in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a Postgres-backed recorder.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const insertEntry = `
INSERT INTO diagnostic_submissions (
	id, email, company, country_code, pipeline_id, stage_id,
	low_score_count, qualifies, person_id, org_id, deal_id,
	outcome, degraded_steps, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (r *Repository) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Degraded == nil {
		e.Degraded = []string{}
	}

	_, err := r.db.Exec(ctx, insertEntry,
		e.ID, e.Email, e.Company, e.CountryCode, e.PipelineID, e.StageID,
		e.LowScoreCount, e.Qualifies, nullableID(e.PersonID), nullableID(e.OrgID), nullableID(e.DealID),
		e.Outcome, e.Degraded, e.CreatedAt,
	)
	return err
}

// Ping checks the database for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
