package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"speakwall/internal/model"
)

// MemoryStore is an in-memory [Store] used when no DATABASE_URL is set and
// as the test double for the pipeline. Thread-safe; values are copied on the
// way in and out.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	analyses []*model.Analysis
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// CreateSession inserts a new session.
func (s *MemoryStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Status == "" {
		sess.Status = model.StatusUploaded
	}
	sess.ID = uuid.NewString()
	sess.CreatedAt = time.Now().UTC()

	stored := *sess
	s.sessions[sess.ID] = &stored
	return nil
}

// CountSessionsByUser counts sessions owned by userID.
func (s *MemoryStore) CountSessionsByUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			count++
		}
	}
	return count, nil
}

// GetSession retrieves a session by ID.
func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	out := *sess
	return &out, nil
}

// ListSessionsByUser retrieves a user's sessions, newest first.
func (s *MemoryStore) ListSessionsByUser(_ context.Context, userID string, limit, offset int) ([]model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// UpdateSessionStatus sets the status field for a session.
func (s *MemoryStore) UpdateSessionStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	sess.Status = status
	return nil
}

// MarkSessionAnalyzed sets status=analyzed and the rounded duration.
func (s *MemoryStore) MarkSessionAnalyzed(_ context.Context, id string, durationSec int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	sess.Status = model.StatusAnalyzed
	d := durationSec
	sess.DurationSec = &d
	return nil
}

// CreateAnalysis inserts a new analysis. Duplicates per session are allowed,
// as in the SQL backends.
func (s *MemoryStore) CreateAnalysis(_ context.Context, a *model.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()

	stored := *a
	stored.Filler = append([]model.FillerCount(nil), a.Filler...)
	s.analyses = append(s.analyses, &stored)
	return nil
}

// GetAnalysisBySession retrieves the newest analysis for a session.
func (s *MemoryStore) GetAnalysisBySession(_ context.Context, sessionID string) (*model.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Newest is the last appended for this session.
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].SessionID == sessionID {
			out := *s.analyses[i]
			out.Filler = append([]model.FillerCount(nil), s.analyses[i].Filler...)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: analysis for session %s", ErrNotFound, sessionID)
}

// SetRecommendations stores the coaching text on the session's analysis rows.
func (s *MemoryStore) SetRecommendations(_ context.Context, sessionID, suggestions string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, a := range s.analyses {
		if a.SessionID == sessionID {
			text := suggestions
			a.Recommendations = &text
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: analysis for session %s", ErrNotFound, sessionID)
	}
	return nil
}
