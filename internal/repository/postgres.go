package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"speakwall/internal/model"
)

// Schema is the SQL DDL for the session and analysis tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// There is deliberately no unique index on speakwall_analyses.session_id:
// a retried or racing analyze call may insert a second analysis row, and the
// hosted schema this mirrors allows that.
const Schema = `
CREATE TABLE IF NOT EXISTS speakwall_sessions (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id       TEXT NOT NULL,
    recording_key TEXT NOT NULL,
    duration_sec  INTEGER,
    status        TEXT NOT NULL DEFAULT 'uploaded',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_speakwall_sessions_user ON speakwall_sessions(user_id);

CREATE TABLE IF NOT EXISTS speakwall_analyses (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id       UUID NOT NULL REFERENCES speakwall_sessions(id),
    words_per_minute INTEGER NOT NULL DEFAULT 0,
    filler           JSONB NOT NULL DEFAULT '[]',
    transcript       TEXT NOT NULL DEFAULT '',
    recommendations  TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_speakwall_analyses_session ON speakwall_analyses(session_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. The filler
// breakdown is serialised as JSONB.
type PostgresStore struct {
	db   DB
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] before
// issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect opens a pgx pool for the given connection string, pings it and
// returns a migrated store.
func Connect(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository: ping: %w", err)
	}
	store := &PostgresStore{db: pool, pool: pool}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate executes the [Schema] DDL against the database.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

// Close releases the pool when the store owns one.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreateSession inserts a new session row.
func (s *PostgresStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.Status == "" {
		sess.Status = model.StatusUploaded
	}
	const query = `
		INSERT INTO speakwall_sessions (user_id, recording_key, duration_sec, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`

	err := s.db.QueryRow(ctx, query,
		sess.UserID, sess.RecordingKey, sess.DurationSec, sess.Status,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: create session: %w", err)
	}
	return nil
}

// CountSessionsByUser counts sessions owned by userID.
func (s *PostgresStore) CountSessionsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM speakwall_sessions WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: count sessions: %w", err)
	}
	return count, nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	const query = `
		SELECT id::text, user_id, recording_key, duration_sec, status, created_at
		FROM speakwall_sessions
		WHERE id = $1`

	var sess model.Session
	err := s.db.QueryRow(ctx, query, id).Scan(
		&sess.ID, &sess.UserID, &sess.RecordingKey, &sess.DurationSec, &sess.Status, &sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get session: %w", err)
	}
	return &sess, nil
}

// ListSessionsByUser retrieves a user's sessions, newest first.
func (s *PostgresStore) ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Session, error) {
	const query = `
		SELECT id::text, user_id, recording_key, duration_sec, status, created_at
		FROM speakwall_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repository: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.RecordingKey, &sess.DurationSec, &sess.Status, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: iterate sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSessionStatus sets the status field for a session.
func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, id, status string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE speakwall_sessions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("repository: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}

// MarkSessionAnalyzed sets status=analyzed and the rounded duration.
func (s *PostgresStore) MarkSessionAnalyzed(ctx context.Context, id string, durationSec int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE speakwall_sessions SET status = $1, duration_sec = $2 WHERE id = $3`,
		model.StatusAnalyzed, durationSec, id)
	if err != nil {
		return fmt.Errorf("repository: mark analyzed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}

// CreateAnalysis inserts a new analysis row.
func (s *PostgresStore) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	filler := a.Filler
	if filler == nil {
		filler = []model.FillerCount{}
	}
	fillerJSON, err := json.Marshal(filler)
	if err != nil {
		return fmt.Errorf("repository: marshal filler: %w", err)
	}

	const query = `
		INSERT INTO speakwall_analyses (session_id, words_per_minute, filler, transcript)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at`

	err = s.db.QueryRow(ctx, query,
		a.SessionID, a.WordsPerMinute, fillerJSON, a.Transcript,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: create analysis: %w", err)
	}
	return nil
}

// GetAnalysisBySession retrieves the newest analysis for a session.
func (s *PostgresStore) GetAnalysisBySession(ctx context.Context, sessionID string) (*model.Analysis, error) {
	const query = `
		SELECT id::text, session_id::text, words_per_minute, filler, transcript, recommendations, created_at
		FROM speakwall_analyses
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var a model.Analysis
	var fillerJSON []byte
	err := s.db.QueryRow(ctx, query, sessionID).Scan(
		&a.ID, &a.SessionID, &a.WordsPerMinute, &fillerJSON, &a.Transcript, &a.Recommendations, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis for session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get analysis: %w", err)
	}
	if len(fillerJSON) > 0 {
		if err := json.Unmarshal(fillerJSON, &a.Filler); err != nil {
			return nil, fmt.Errorf("repository: unmarshal filler: %w", err)
		}
	}
	return &a, nil
}

// SetRecommendations stores the coaching text on the session's analysis rows.
func (s *PostgresStore) SetRecommendations(ctx context.Context, sessionID, suggestions string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE speakwall_analyses SET recommendations = $1 WHERE session_id = $2`,
		suggestions, sessionID)
	if err != nil {
		return fmt.Errorf("repository: set recommendations: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: analysis for session %s", ErrNotFound, sessionID)
	}
	return nil
}
