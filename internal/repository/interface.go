package repository

import (
	"context"
	"errors"

	"speakwall/internal/model"
)

// ErrNotFound is returned when a session or analysis does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for session and analysis data access.
// All mutations are single-row writes scoped by id; there are no multi-row
// transactions, so concurrent writers race with last-write-wins semantics.
type Store interface {
	// CreateSession inserts a new session row and fills in its generated
	// ID and CreatedAt. Status defaults to uploaded when unset.
	CreateSession(ctx context.Context, s *model.Session) error

	// CountSessionsByUser counts all sessions owned by a user.
	CountSessionsByUser(ctx context.Context, userID string) (int, error)

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, id string) (*model.Session, error)

	// ListSessionsByUser retrieves a user's sessions, newest first.
	ListSessionsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Session, error)

	// UpdateSessionStatus sets the session's status field.
	UpdateSessionStatus(ctx context.Context, id, status string) error

	// MarkSessionAnalyzed sets status=analyzed and records the rounded
	// recording duration in one write.
	MarkSessionAnalyzed(ctx context.Context, id string, durationSec int) error

	// CreateAnalysis inserts a new analysis row and fills in its generated
	// ID and CreatedAt. The schema allows multiple analyses per session.
	CreateAnalysis(ctx context.Context, a *model.Analysis) error

	// GetAnalysisBySession retrieves the newest analysis for a session.
	GetAnalysisBySession(ctx context.Context, sessionID string) (*model.Analysis, error)

	// SetRecommendations stores the coaching text on the session's
	// analysis rows.
	SetRecommendations(ctx context.Context, sessionID, suggestions string) error

	// Close releases the underlying connections.
	Close() error
}
