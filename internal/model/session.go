package model

import (
	"time"
)

// Session statuses. A session moves uploaded -> processing -> analyzed ->
// completed; `failed` is terminal and reachable from processing.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusAnalyzed   = "analyzed"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Session represents one recorded-speech attempt by a user.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RecordingKey string    `json:"recording_key"`
	DurationSec  *int      `json:"duration_sec,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// FillerCount is one entry of the filler-word breakdown.
type FillerCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Analysis holds the derived transcript, metrics and coaching text for one
// session. Recommendations stays nil until the coaching stage runs.
type Analysis struct {
	ID              string        `json:"id"`
	SessionID       string        `json:"session_id"`
	WordsPerMinute  int           `json:"words_per_minute"`
	Filler          []FillerCount `json:"filler"`
	Transcript      string        `json:"transcript"`
	Recommendations *string       `json:"recommendations,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// TotalFillers sums the filler breakdown counts.
func (a *Analysis) TotalFillers() int {
	total := 0
	for _, f := range a.Filler {
		total += f.Count
	}
	return total
}
