package coach

import (
	"fmt"
	"strings"

	"speakwall/internal/model"
)

// systemPrompt fixes the coaching persona and output shape: exactly five
// tips, heading plus one or two sentences each.
const systemPrompt = "You are an expert public speaking coach. Analyze the speech transcript and metrics. " +
	"Provide exactly 5 specific, actionable coaching tips. Be encouraging but direct. " +
	"Format each tip as a brief heading followed by 1-2 sentences of advice."

// BuildPrompt builds the system and user prompts for the coaching request.
// A nil wpm is reported as "unknown" so the model does not invent a pace.
func BuildPrompt(transcript string, wpm *int, filler []model.FillerCount) (string, string) {
	wpmText := "unknown"
	if wpm != nil {
		wpmText = fmt.Sprintf("%d", *wpm)
	}

	total := 0
	parts := make([]string, 0, len(filler))
	for _, f := range filler {
		total += f.Count
		parts = append(parts, fmt.Sprintf("%q (%dx)", f.Word, f.Count))
	}
	fillerSummary := strings.Join(parts, ", ")
	if fillerSummary == "" {
		fillerSummary = "none detected"
	}

	userPrompt := fmt.Sprintf(
		"Speech Metrics:\n- Words per minute: %s\n- Total filler words: %d\n- Filler breakdown: %s\n\nTranscript:\n%s",
		wpmText, total, fillerSummary, transcript)

	return systemPrompt, userPrompt
}
