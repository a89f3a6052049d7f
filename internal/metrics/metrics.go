// Package metrics computes speech-delivery metrics from a transcript: pace
// in words per minute and a breakdown of filler-word usage. Compute is a
// pure function so results are reproducible for a given transcript.
package metrics

import (
	"math"
	"regexp"
	"strings"

	"speakwall/internal/model"
)

// FillerWords is the fixed, ordered list of filler phrases counted in every
// transcript. Breakdown order follows this list, not discovery order.
var FillerWords = []string{
	"um", "uh", "like", "you know", "so", "basically", "actually", "right", "er", "ah",
}

var fillerPatterns = compilePatterns(FillerWords)

// compilePatterns builds a case-insensitive whole-word matcher per phrase.
// Internal spaces in multi-word phrases match any whitespace run.
func compilePatterns(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		expr := `(?i)\b` + strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`) + `\b`
		patterns[i] = regexp.MustCompile(expr)
	}
	return patterns
}

// Result holds the computed metrics for one transcript.
type Result struct {
	WordCount      int
	WordsPerMinute int
	Filler         []model.FillerCount
	TotalFillers   int
}

// Compute derives speech metrics from a transcript and its spoken duration.
// Words are whitespace-delimited tokens; WPM is 0 when the duration is not
// positive. Filler entries with zero occurrences are dropped.
func Compute(transcript string, durationSec float64) Result {
	wordCount := len(strings.Fields(transcript))

	wpm := 0
	if durationSec > 0 {
		wpm = int(math.Round(float64(wordCount) / durationSec * 60))
	}

	var filler []model.FillerCount
	total := 0
	for i, w := range FillerWords {
		count := len(fillerPatterns[i].FindAllStringIndex(transcript, -1))
		if count > 0 {
			filler = append(filler, model.FillerCount{Word: w, Count: count})
			total += count
		}
	}

	return Result{
		WordCount:      wordCount,
		WordsPerMinute: wpm,
		Filler:         filler,
		TotalFillers:   total,
	}
}
