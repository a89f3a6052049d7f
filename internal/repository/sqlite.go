package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"speakwall/internal/model"
)

// sqliteSchema mirrors [Schema] for the SQLite backend used in development.
// IDs are generated in Go since SQLite has no uuid default.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS speakwall_sessions (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    recording_key TEXT NOT NULL,
    duration_sec  INTEGER,
    status        TEXT NOT NULL DEFAULT 'uploaded',
    created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_speakwall_sessions_user ON speakwall_sessions(user_id);

CREATE TABLE IF NOT EXISTS speakwall_analyses (
    id               TEXT PRIMARY KEY,
    session_id       TEXT NOT NULL,
    words_per_minute INTEGER NOT NULL DEFAULT 0,
    filler           TEXT NOT NULL DEFAULT '[]',
    transcript       TEXT NOT NULL DEFAULT '',
    recommendations  TEXT,
    created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_speakwall_analyses_session ON speakwall_analyses(session_id);
`

// SQLiteStore is a [Store] backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema
// exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.Status == "" {
		sess.Status = model.StatusUploaded
	}
	sess.ID = uuid.NewString()
	sess.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO speakwall_sessions (id, user_id, recording_key, duration_sec, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.RecordingKey, sess.DurationSec, sess.Status,
		sess.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("repository: create session: %w", err)
	}
	return nil
}

// CountSessionsByUser counts sessions owned by userID.
func (s *SQLiteStore) CountSessionsByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM speakwall_sessions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("repository: count sessions: %w", err)
	}
	return count, nil
}

func scanSession(scan func(...any) error) (*model.Session, error) {
	var sess model.Session
	var createdAt string
	if err := scan(&sess.ID, &sess.UserID, &sess.RecordingKey, &sess.DurationSec, &sess.Status, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	sess.CreatedAt = t
	return &sess, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, recording_key, duration_sec, status, created_at
		FROM speakwall_sessions WHERE id = ?`, id)

	sess, err := scanSession(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get session: %w", err)
	}
	return sess, nil
}

// ListSessionsByUser retrieves a user's sessions, newest first.
func (s *SQLiteStore) ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, recording_key, duration_sec, status, created_at
		FROM speakwall_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("repository: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("repository: scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// UpdateSessionStatus sets the status field for a session.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE speakwall_sessions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("repository: update status: %w", err)
	}
	return requireRow(res, "session "+id)
}

// MarkSessionAnalyzed sets status=analyzed and the rounded duration.
func (s *SQLiteStore) MarkSessionAnalyzed(ctx context.Context, id string, durationSec int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE speakwall_sessions SET status = ?, duration_sec = ? WHERE id = ?`,
		model.StatusAnalyzed, durationSec, id)
	if err != nil {
		return fmt.Errorf("repository: mark analyzed: %w", err)
	}
	return requireRow(res, "session "+id)
}

// CreateAnalysis inserts a new analysis row.
func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *model.Analysis) error {
	filler := a.Filler
	if filler == nil {
		filler = []model.FillerCount{}
	}
	fillerJSON, err := json.Marshal(filler)
	if err != nil {
		return fmt.Errorf("repository: marshal filler: %w", err)
	}

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO speakwall_analyses (id, session_id, words_per_minute, filler, transcript, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.WordsPerMinute, string(fillerJSON), a.Transcript,
		a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("repository: create analysis: %w", err)
	}
	return nil
}

// GetAnalysisBySession retrieves the newest analysis for a session.
func (s *SQLiteStore) GetAnalysisBySession(ctx context.Context, sessionID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, words_per_minute, filler, transcript, recommendations, created_at
		FROM speakwall_analyses
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)

	var a model.Analysis
	var fillerJSON string
	var createdAt string
	err := row.Scan(&a.ID, &a.SessionID, &a.WordsPerMinute, &fillerJSON, &a.Transcript, &a.Recommendations, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis for session %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get analysis: %w", err)
	}
	if fillerJSON != "" {
		if err := json.Unmarshal([]byte(fillerJSON), &a.Filler); err != nil {
			return nil, fmt.Errorf("repository: unmarshal filler: %w", err)
		}
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("repository: parse created_at: %w", err)
	}
	a.CreatedAt = t
	return &a, nil
}

// SetRecommendations stores the coaching text on the session's analysis rows.
func (s *SQLiteStore) SetRecommendations(ctx context.Context, sessionID, suggestions string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE speakwall_analyses SET recommendations = ? WHERE session_id = ?`,
		suggestions, sessionID)
	if err != nil {
		return fmt.Errorf("repository: set recommendations: %w", err)
	}
	return requireRow(res, "analysis for session "+sessionID)
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}
