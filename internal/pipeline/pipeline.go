// Package pipeline sequences the recording-to-feedback flow: register the
// uploaded recording, analyze it (download, transcribe, compute metrics),
// then generate coaching recommendations. Each stage is independently
// callable so a client can retry one stage without redoing the rest; the
// flow as a whole is deliberately not atomic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"time"

	"speakwall/internal/coach"
	"speakwall/internal/logger"
	"speakwall/internal/metrics"
	"speakwall/internal/model"
	"speakwall/internal/observe"
	"speakwall/internal/repository"
	"speakwall/internal/storage"
	"speakwall/internal/transcribe"
)

// ErrTrialLimitExceeded is returned by RegisterRecording once a user has
// reached the free-tier session cap. No session row is created.
var ErrTrialLimitExceeded = errors.New("trial limit reached")

const (
	defaultTrialLimit  = 3
	defaultCallTimeout = 90 * time.Second
)

// Config wires the pipeline's collaborators.
type Config struct {
	Store       repository.Store
	Objects     storage.Store
	Transcriber transcribe.Provider
	Coach       coach.Provider
	Metrics     *observe.Metrics

	// TrialLimit caps sessions per free-tier user. Default 3.
	TrialLimit int

	// CallTimeout bounds each external call (storage, transcription,
	// recommendation). Expiry follows that call's failure path. Default 90s.
	CallTimeout time.Duration
}

// Pipeline orchestrates the recording-to-feedback flow. Stateless between
// calls; it holds only its collaborators.
type Pipeline struct {
	store       repository.Store
	objects     storage.Store
	transcriber transcribe.Provider
	coach       coach.Provider
	met         *observe.Metrics
	log         *logger.Logger
	trialLimit  int
	callTimeout time.Duration
}

// New creates a pipeline from cfg, applying defaults for the trial limit
// and call timeout.
func New(cfg Config) *Pipeline {
	if cfg.TrialLimit <= 0 {
		cfg.TrialLimit = defaultTrialLimit
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Pipeline{
		store:       cfg.Store,
		objects:     cfg.Objects,
		transcriber: cfg.Transcriber,
		coach:       cfg.Coach,
		met:         cfg.Metrics,
		log:         logger.New(),
		trialLimit:  cfg.TrialLimit,
		callTimeout: cfg.CallTimeout,
	}
}

// RegisterRecording records an uploaded recording as a new session with
// status uploaded and returns the session id.
//
// The trial cap is enforced by counting existing rows before the insert.
// The two operations are not wrapped in a transaction, so concurrent
// registrations for the same user can overshoot the cap; this matches the
// hosted backend's behavior and is kept rather than silently strengthened.
func (p *Pipeline) RegisterRecording(ctx context.Context, userID, recordingKey string, durationSec *int) (string, error) {
	count, err := p.store.CountSessionsByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("count sessions: %w", err)
	}
	if count >= p.trialLimit {
		p.log.WithField("user_id", userID).WithField("count", count).Info("trial limit reached")
		if p.met != nil {
			p.met.TrialRejections.Add(ctx, 1)
		}
		return "", ErrTrialLimitExceeded
	}

	sess := &model.Session{
		UserID:       userID,
		RecordingKey: recordingKey,
		DurationSec:  durationSec,
		Status:       model.StatusUploaded,
	}
	if err := p.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}

	p.log.WithField("session_id", sess.ID).WithField("user_id", userID).Info("session registered")
	if p.met != nil {
		p.met.SessionsRegistered.Add(ctx, 1)
	}
	return sess.ID, nil
}

// AnalysisOutcome is the result of a successful AnalyzeRecording run.
type AnalysisOutcome struct {
	AnalysisID   string
	Transcript   string
	WPM          int
	Filler       []model.FillerCount
	TotalFillers int
	DurationSec  int
}

// AnalyzeRecording downloads the recording, transcribes it, computes speech
// metrics, persists the analysis and marks the session analyzed.
//
// The session is optimistically moved to processing before any external
// call. On any failure afterwards the session is marked failed and the
// error returned; nothing is retried internally, and a caller-driven rerun
// starts from the top (which may insert a second analysis row).
func (p *Pipeline) AnalyzeRecording(ctx context.Context, sessionID, recordingKey string) (*AnalysisOutcome, error) {
	if err := p.store.UpdateSessionStatus(ctx, sessionID, model.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	outcome, err := p.analyze(ctx, sessionID, recordingKey)
	if err != nil {
		if p.met != nil {
			p.met.RecordOutcome(ctx, p.met.Analyses, model.StatusFailed)
		}
		// Best effort: the analysis already failed, a failing status
		// write must not mask the original error.
		if markErr := p.store.UpdateSessionStatus(ctx, sessionID, model.StatusFailed); markErr != nil {
			p.log.WithError(markErr).WithField("session_id", sessionID).Warn("failed to mark session failed")
		}
		return nil, err
	}

	if p.met != nil {
		p.met.RecordOutcome(ctx, p.met.Analyses, model.StatusAnalyzed)
	}
	return outcome, nil
}

func (p *Pipeline) analyze(ctx context.Context, sessionID, recordingKey string) (*AnalysisOutcome, error) {
	log := p.log.WithField("session_id", sessionID).WithField("recording_key", recordingKey)

	dlCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	start := time.Now()
	data, err := p.objects.Download(dlCtx, recordingKey)
	if p.met != nil {
		p.met.StorageDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded recording is empty: %s", recordingKey)
	}

	sttCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	start = time.Now()
	res, err := p.transcriber.Transcribe(sttCtx, data, path.Base(recordingKey))
	if p.met != nil {
		p.met.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	computed := metrics.Compute(res.Transcript, res.DurationSec)
	log.WithField("wpm", computed.WordsPerMinute).
		WithField("total_fillers", computed.TotalFillers).
		Info("metrics computed")

	analysis := &model.Analysis{
		SessionID:      sessionID,
		WordsPerMinute: computed.WordsPerMinute,
		Filler:         computed.Filler,
		Transcript:     res.Transcript,
	}
	if err := p.store.CreateAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	roundedDuration := int(math.Round(res.DurationSec))
	if err := p.store.MarkSessionAnalyzed(ctx, sessionID, roundedDuration); err != nil {
		return nil, err
	}

	return &AnalysisOutcome{
		AnalysisID:   analysis.ID,
		Transcript:   res.Transcript,
		WPM:          computed.WordsPerMinute,
		Filler:       computed.Filler,
		TotalFillers: computed.TotalFillers,
		DurationSec:  roundedDuration,
	}, nil
}

// GenerateRecommendations requests coaching tips for a transcript. With a
// session id the suggestions are persisted on the session's analysis and
// the session moves to completed; without one the call is stateless.
//
// On failure the session status is left untouched: a session may stay
// analyzed with no recommendations, which is an accepted degraded state.
func (p *Pipeline) GenerateRecommendations(ctx context.Context, sessionID, transcript string, wpm *int, filler []model.FillerCount) (string, error) {
	coachCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	start := time.Now()
	suggestions, err := p.coach.Recommend(coachCtx, transcript, wpm, filler)
	if p.met != nil {
		p.met.RecommendDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if p.met != nil {
			p.met.RecordOutcome(ctx, p.met.Recommendations, model.StatusFailed)
		}
		return "", err
	}

	if sessionID != "" {
		if err := p.store.SetRecommendations(ctx, sessionID, suggestions); err != nil {
			return "", err
		}
		if err := p.store.UpdateSessionStatus(ctx, sessionID, model.StatusCompleted); err != nil {
			return "", err
		}
		p.log.WithField("session_id", sessionID).Info("session completed")
	}

	if p.met != nil {
		p.met.RecordOutcome(ctx, p.met.Recommendations, model.StatusCompleted)
	}
	return suggestions, nil
}
