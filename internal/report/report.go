// Package report renders a user's practice history as an Excel workbook
// for offline review.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"speakwall/internal/model"
)

const sheetName = "Sessions"

var header = []string{
	"Session ID", "Status", "Created At", "Duration (s)",
	"Recording Key", "WPM", "Total Fillers", "Filler Breakdown", "Recommendations",
}

// BuildWorkbook writes one row per session, joined with that session's
// latest analysis when one exists (keyed by session id in analyses).
func BuildWorkbook(sessions []model.Session, analyses map[string]*model.Analysis) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheetName)

	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
	}

	for i, sess := range sessions {
		row := []interface{}{
			sess.ID,
			sess.Status,
			sess.CreatedAt.Format(time.RFC3339),
			"",
			sess.RecordingKey,
			"", "", "", "",
		}
		if sess.DurationSec != nil {
			row[3] = *sess.DurationSec
		}
		if a := analyses[sess.ID]; a != nil {
			row[5] = a.WordsPerMinute
			row[6] = a.TotalFillers()
			row[7] = fillerBreakdown(a.Filler)
			if a.Recommendations != nil {
				row[8] = *a.Recommendations
			}
		}
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("row cell: %w", err)
			}
		}
	}

	return f.WriteToBuffer()
}

func fillerBreakdown(filler []model.FillerCount) string {
	if len(filler) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(filler))
	for _, fc := range filler {
		parts = append(parts, fmt.Sprintf("%s: %d", fc.Word, fc.Count))
	}
	return strings.Join(parts, ", ")
}
