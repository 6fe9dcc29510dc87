package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"gemnet/internal/registration/models"
)

// Schema creates the onboarding session table. Applied by deployments that
// manage their own migrations, and by integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS onboarding_sessions (
	profile    TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists the session record in PostgreSQL, one row per
// enrollment profile.
type PostgresStore struct {
	db      *sql.DB
	profile string
	logger  *slog.Logger
	clock   func() time.Time
}

// PostgresStoreOption configures a PostgresStore instance.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresProfile scopes the record to a named enrollment profile.
func WithPostgresProfile(profile string) PostgresStoreOption {
	return func(s *PostgresStore) {
		if profile != "" {
			s.profile = profile
		}
	}
}

// WithPostgresLogger sets the logger for corrupt-record warnings.
func WithPostgresLogger(logger *slog.Logger) PostgresStoreOption {
	return func(s *PostgresStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed progress store.
func NewPostgres(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{
		db:      db,
		profile: defaultProfile,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema creates the session table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure session schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (models.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM onboarding_sessions WHERE profile = $1`, s.profile,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EmptySession(), nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("load session record: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable session record", "profile", s.profile, "error", err)
		return models.EmptySession(), nil
	}
	return session, nil
}

func (s *PostgresStore) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	query := `
		INSERT INTO onboarding_sessions (profile, record, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, s.profile, data, s.clock()); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM onboarding_sessions WHERE profile = $1`, s.profile,
	); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}
