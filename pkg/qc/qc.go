// Package qc grades variants against the weighted four-part rubric.
package qc

import (
	"fmt"
	"math"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/schema"
)

// DefaultThreshold is the pass threshold of a run that never set one.
const DefaultThreshold = 80

// Rubric weights. They sum to 1.
const (
	WeightCharacterConsistency   = 0.35
	WeightCompositionConsistency = 0.30
	WeightArtifactCleanliness    = 0.20
	WeightTextSafety             = 0.15
)

// Score returns the integer QC score in [0,100] for b.
func Score(b domain.Breakdown) (int, error) {
	parts := []struct {
		key    string
		value  float64
		weight float64
	}{
		{"character_consistency", b.CharacterConsistency, WeightCharacterConsistency},
		{"composition_consistency", b.CompositionConsistency, WeightCompositionConsistency},
		{"artifact_cleanliness", b.ArtifactCleanliness, WeightArtifactCleanliness},
		{"text_safety", b.TextSafety, WeightTextSafety},
	}

	var sum float64
	for _, p := range parts {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
			return 0, schema.Invalid("qc_breakdown."+p.key, "must be a finite number", p.value)
		}
		if p.value < schema.MinSubScore || p.value > schema.MaxSubScore {
			return 0, schema.Invalid("qc_breakdown."+p.key,
				fmt.Sprintf("must be within [%g, %g]", schema.MinSubScore, schema.MaxSubScore), p.value)
		}
		sum += p.value * p.weight
	}

	// Half up on the float64 sum. A character_consistency of 0.5 alone sums to
	// 0.17499..., not 0.175, and scores 3.
	score := int(math.Floor(sum/schema.MaxSubScore*100 + 0.5))
	if score > 100 {
		score = 100
	}
	return score, nil
}

// StatusFromScore classifies score against threshold. A nil score is draft.
func StatusFromScore(score *int, threshold int) domain.Status {
	if score == nil {
		return domain.StatusDraft
	}
	if *score >= threshold {
		return domain.StatusPass
	}
	return domain.StatusFail
}

// ValidateThreshold rejects thresholds outside [0,100].
func ValidateThreshold(threshold int) error {
	if threshold < schema.MinThreshold || threshold > schema.MaxThreshold {
		return schema.Invalid("pass_threshold",
			fmt.Sprintf("must be within [%d, %d]", schema.MinThreshold, schema.MaxThreshold), threshold)
	}
	return nil
}
