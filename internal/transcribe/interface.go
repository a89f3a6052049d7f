package transcribe

import "context"

// Provider defines the interface for speech-to-text providers
type Provider interface {
	// Transcribe converts recording bytes to text plus spoken duration.
	Transcribe(ctx context.Context, data []byte, filename string) (*Result, error)

	// Name returns the name of the provider (e.g., "whisper")
	Name() string
}

// Result represents the result of a speech-to-text transcription
type Result struct {
	Transcript  string  // The transcribed text
	DurationSec float64 // Spoken duration in seconds, 0 if not reported
}
