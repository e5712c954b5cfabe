// Package export renders a run and its variants for people and spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aretw0/vignette/pkg/domain"
)

// CSVHeader is the first row written by CSV.
var CSVHeader = []string{
	"run_id", "variant_id", "index", "seed",
	"camera", "emotion", "motion",
	"status", "qc_score",
	"character_consistency", "composition_consistency", "artifact_cleanliness", "text_safety",
	"is_best", "prompt_text",
}

// CSV writes one row per variant in document order. Missing scores are empty cells.
func CSV(w io.Writer, run domain.Run, variants []domain.Variant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, v := range variants {
		if err := cw.Write(csvRow(run, v)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(run domain.Run, v domain.Variant) []string {
	row := []string{
		run.ID, v.ID, strconv.Itoa(v.Index), strconv.FormatUint(uint64(v.Seed), 10),
		v.Controls.Camera, v.Controls.Emotion, v.Controls.Motion,
		string(v.Status), "",
		"", "", "", "",
		strconv.FormatBool(run.IsBest(v.ID)), v.PromptText,
	}
	if v.QCScore != nil {
		row[8] = strconv.Itoa(*v.QCScore)
	}
	if b := v.QCBreakdown; b != nil {
		row[9] = formatSub(b.CharacterConsistency)
		row[10] = formatSub(b.CompositionConsistency)
		row[11] = formatSub(b.ArtifactCleanliness)
		row[12] = formatSub(b.TextSafety)
	}
	return row
}

func formatSub(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
