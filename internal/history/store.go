// Package history records completed rewrite runs in PostgreSQL so
// operators can audit what was rewritten, when and with how many
// warnings - without ever storing the input or output text itself.
package history

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Run is one recorded rewrite run. Only hashes of the texts are kept.
type Run struct {
	ID           string    `db:"id"`
	Source       string    `db:"source"` // api, cli or batch
	InputSHA256  string    `db:"input_sha256"`
	OutputSHA256 string    `db:"output_sha256"`
	RuleCount    int       `db:"rule_count"`
	WarningCount int       `db:"warning_count"`
	MappingCount int       `db:"mapping_count"`
	DurationMS   int64     `db:"duration_ms"`
	CreatedAt    time.Time `db:"created_at"`
}

// Config contains database configuration.
type Config struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store handles run history persistence.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS rewrite_runs (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	input_sha256  TEXT NOT NULL,
	output_sha256 TEXT NOT NULL,
	rule_count    INTEGER NOT NULL,
	warning_count INTEGER NOT NULL,
	mapping_count INTEGER NOT NULL,
	duration_ms   BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rewrite_runs_created_at_idx ON rewrite_runs (created_at DESC);
`

// NewStore connects to the database and ensures the schema exists.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("Run history store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRun records a completed run.
func (s *Store) InsertRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO rewrite_runs
			(id, source, input_sha256, output_sha256, rule_count, warning_count, mapping_count, duration_ms, created_at)
		VALUES
			(:id, :source, :input_sha256, :output_sha256, :rule_count, :warning_count, :mapping_count, :duration_ms, :created_at)`

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		s.logger.Error("Failed to insert run",
			zap.Error(err),
			zap.String("run_id", run.ID))
		return fmt.Errorf("failed to insert run: %w", err)
	}

	s.logger.Debug("Run recorded",
		zap.String("run_id", run.ID),
		zap.String("source", run.Source),
		zap.Int("warnings", run.WarningCount))

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var runs []Run
	query := `SELECT * FROM rewrite_runs ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// maskDatabaseURL hides credentials before the URL reaches a log line.
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
