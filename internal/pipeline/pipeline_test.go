package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"speakwall/internal/model"
	"speakwall/internal/repository"
	"speakwall/internal/storage"
	"speakwall/internal/transcribe"
)

type fakeObjects struct {
	data map[string][]byte
}

func (f *fakeObjects) Download(_ context.Context, key string) ([]byte, error) {
	b, ok := f.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return b, nil
}

func (f *fakeObjects) Upload(_ context.Context, key string, data []byte, _ string) error {
	f.data[key] = data
	return nil
}

func (f *fakeObjects) Name() string { return "fake" }

type stubTranscriber struct {
	transcript string
	duration   float64
	err        error
}

func (s *stubTranscriber) Transcribe(context.Context, []byte, string) (*transcribe.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &transcribe.Result{Transcript: s.transcript, DurationSec: s.duration}, nil
}

func (s *stubTranscriber) Name() string { return "stub" }

type fakeCoach struct {
	suggestions string
	err         error
	calls       int
}

func (f *fakeCoach) Recommend(context.Context, string, *int, []model.FillerCount) (string, error) {
	f.calls++
	return f.suggestions, f.err
}

func (f *fakeCoach) Name() string { return "fake" }

func newTestPipeline(t *testing.T, objects *fakeObjects, tr *stubTranscriber, c *fakeCoach) (*Pipeline, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	p := New(Config{
		Store:       store,
		Objects:     objects,
		Transcriber: tr,
		Coach:       c,
	})
	return p, store
}

func TestRegisterRecordingTrialLimit(t *testing.T) {
	p, store := newTestPipeline(t, &fakeObjects{data: map[string][]byte{}}, &stubTranscriber{}, &fakeCoach{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("rec/u1/%d.webm", i)
		if _, err := p.RegisterRecording(ctx, "u1", key, nil); err != nil {
			t.Fatalf("registration %d: %v", i+1, err)
		}
	}

	_, err := p.RegisterRecording(ctx, "u1", "rec/u1/4.webm", nil)
	if !errors.Is(err, ErrTrialLimitExceeded) {
		t.Fatalf("4th registration: got %v, want ErrTrialLimitExceeded", err)
	}

	count, err := store.CountSessionsByUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("rejected registration left %d sessions, want 3", count)
	}

	// Other users are unaffected.
	if _, err := p.RegisterRecording(ctx, "u2", "rec/u2/1.webm", nil); err != nil {
		t.Errorf("different user blocked: %v", err)
	}
}

func TestRegisterRecordingCreatesUploadedSession(t *testing.T) {
	p, store := newTestPipeline(t, &fakeObjects{data: map[string][]byte{}}, &stubTranscriber{}, &fakeCoach{})
	ctx := context.Background()

	dur := 42
	id, err := p.RegisterRecording(ctx, "u1", "rec/u1/a.webm", &dur)
	if err != nil {
		t.Fatal(err)
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.StatusUploaded {
		t.Errorf("status = %q, want %q", sess.Status, model.StatusUploaded)
	}
	if sess.RecordingKey != "rec/u1/a.webm" {
		t.Errorf("recording key = %q", sess.RecordingKey)
	}
	if sess.DurationSec == nil || *sess.DurationSec != 42 {
		t.Errorf("duration = %v, want 42", sess.DurationSec)
	}
}

func TestAnalyzeRecordingHappyPath(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{
		"rec/u1/a.webm": []byte("fake-audio-bytes"),
	}}
	tr := &stubTranscriber{transcript: "um so I think uh this is great", duration: 150}
	p, store := newTestPipeline(t, objects, tr, &fakeCoach{})
	ctx := context.Background()

	id, err := p.RegisterRecording(ctx, "u1", "rec/u1/a.webm", nil)
	if err != nil {
		t.Fatal(err)
	}

	out, err := p.AnalyzeRecording(ctx, id, "rec/u1/a.webm")
	if err != nil {
		t.Fatal(err)
	}

	if out.WPM != 3 {
		t.Errorf("wpm = %d, want 3", out.WPM)
	}
	wantFiller := []model.FillerCount{{Word: "um", Count: 1}, {Word: "uh", Count: 1}, {Word: "so", Count: 1}}
	if len(out.Filler) != len(wantFiller) {
		t.Fatalf("filler = %v, want %v", out.Filler, wantFiller)
	}
	for i, fc := range wantFiller {
		if out.Filler[i] != fc {
			t.Errorf("filler[%d] = %v, want %v", i, out.Filler[i], fc)
		}
	}
	if out.TotalFillers != 3 {
		t.Errorf("total fillers = %d, want 3", out.TotalFillers)
	}
	if out.DurationSec != 150 {
		t.Errorf("duration = %d, want 150", out.DurationSec)
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.StatusAnalyzed {
		t.Errorf("status = %q, want %q", sess.Status, model.StatusAnalyzed)
	}
	if sess.DurationSec == nil || *sess.DurationSec != 150 {
		t.Errorf("session duration = %v, want 150", sess.DurationSec)
	}

	analysis, err := store.GetAnalysisBySession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.ID != out.AnalysisID {
		t.Errorf("analysis id mismatch: %q vs %q", analysis.ID, out.AnalysisID)
	}
	if analysis.Transcript != tr.transcript {
		t.Errorf("transcript = %q", analysis.Transcript)
	}
	if analysis.Recommendations != nil {
		t.Errorf("recommendations set before coaching: %q", *analysis.Recommendations)
	}
}

func TestAnalyzeRecordingFailures(t *testing.T) {
	tests := []struct {
		name    string
		objects map[string][]byte
		tr      *stubTranscriber
	}{
		{
			name:    "missing object",
			objects: map[string][]byte{},
			tr:      &stubTranscriber{transcript: "hello", duration: 10},
		},
		{
			name:    "empty payload",
			objects: map[string][]byte{"rec/u1/a.webm": {}},
			tr:      &stubTranscriber{transcript: "hello", duration: 10},
		},
		{
			name:    "transcription error",
			objects: map[string][]byte{"rec/u1/a.webm": []byte("audio")},
			tr:      &stubTranscriber{err: errors.New("whisper unavailable")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := newTestPipeline(t, &fakeObjects{data: tt.objects}, tt.tr, &fakeCoach{})
			ctx := context.Background()

			id, err := p.RegisterRecording(ctx, "u1", "rec/u1/a.webm", nil)
			if err != nil {
				t.Fatal(err)
			}

			if _, err := p.AnalyzeRecording(ctx, id, "rec/u1/a.webm"); err == nil {
				t.Fatal("expected analyze error")
			}

			sess, err := store.GetSession(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if sess.Status != model.StatusFailed {
				t.Errorf("status = %q, want %q", sess.Status, model.StatusFailed)
			}
			if _, err := store.GetAnalysisBySession(ctx, id); !errors.Is(err, repository.ErrNotFound) {
				t.Errorf("analysis row after failure: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestAnalyzeRecordingUnknownSession(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeObjects{data: map[string][]byte{}}, &stubTranscriber{}, &fakeCoach{})

	_, err := p.AnalyzeRecording(context.Background(), "no-such-session", "rec/x.webm")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGenerateRecommendationsStateless(t *testing.T) {
	c := &fakeCoach{suggestions: "1. Slow down.\n2. Pause instead of saying um."}
	p, store := newTestPipeline(t, &fakeObjects{data: map[string][]byte{}}, &stubTranscriber{}, c)
	ctx := context.Background()

	wpm := 180
	got, err := p.GenerateRecommendations(ctx, "", "I spoke very fast", &wpm, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != c.suggestions {
		t.Errorf("suggestions = %q", got)
	}
	if c.calls != 1 {
		t.Errorf("coach calls = %d, want 1", c.calls)
	}

	// Without a session id nothing is persisted.
	count, err := store.CountSessionsByUser(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("sessions created = %d, want 0", count)
	}
}

func TestGenerateRecommendationsPersistsAndCompletes(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{
		"rec/u1/a.webm": []byte("audio"),
	}}
	tr := &stubTranscriber{transcript: "um so I think uh this is great", duration: 150}
	c := &fakeCoach{suggestions: "1. Cut the filler words."}
	p, store := newTestPipeline(t, objects, tr, c)
	ctx := context.Background()

	id, err := p.RegisterRecording(ctx, "u1", "rec/u1/a.webm", nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.AnalyzeRecording(ctx, id, "rec/u1/a.webm")
	if err != nil {
		t.Fatal(err)
	}

	wpm := out.WPM
	if _, err := p.GenerateRecommendations(ctx, id, out.Transcript, &wpm, out.Filler); err != nil {
		t.Fatal(err)
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.StatusCompleted {
		t.Errorf("status = %q, want %q", sess.Status, model.StatusCompleted)
	}

	analysis, err := store.GetAnalysisBySession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Recommendations == nil || *analysis.Recommendations != c.suggestions {
		t.Errorf("recommendations = %v, want %q", analysis.Recommendations, c.suggestions)
	}
}

func TestGenerateRecommendationsFailureLeavesStatus(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{
		"rec/u1/a.webm": []byte("audio"),
	}}
	tr := &stubTranscriber{transcript: "hello there everyone", duration: 30}
	c := &fakeCoach{err: errors.New("model overloaded")}
	p, store := newTestPipeline(t, objects, tr, c)
	ctx := context.Background()

	id, err := p.RegisterRecording(ctx, "u1", "rec/u1/a.webm", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.AnalyzeRecording(ctx, id, "rec/u1/a.webm"); err != nil {
		t.Fatal(err)
	}

	if _, err := p.GenerateRecommendations(ctx, id, "hello there everyone", nil, nil); err == nil {
		t.Fatal("expected coach error")
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != model.StatusAnalyzed {
		t.Errorf("status = %q, want %q (untouched on failure)", sess.Status, model.StatusAnalyzed)
	}
	analysis, err := store.GetAnalysisBySession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.Recommendations != nil {
		t.Errorf("recommendations persisted after failure: %q", *analysis.Recommendations)
	}
}
