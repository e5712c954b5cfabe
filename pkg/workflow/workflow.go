// Package workflow owns the variant status transitions and the run's best pointer.
//
// Every function here edits a draft document in place. Callers run them inside a
// store mutation, so a returned error discards the draft and nothing is committed.
//
// Marking a variant best forces its status to best even when its score is missing or
// below the run threshold. Best is a curation pick, not a QC outcome.
package workflow

import (
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/qc"
)

// MarkBest makes variantID the single best variant of runID.
// The previous best, if any, falls back to the status its own score earns
// against the run's current threshold.
func MarkBest(doc *domain.Document, runID, variantID string) (domain.Run, domain.Variant, error) {
	target := doc.Variant(variantID)
	if target == nil || target.RunID != runID {
		return domain.Run{}, domain.Variant{}, domain.NotFound("variant", variantID)
	}
	run := doc.Run(runID)
	if run == nil {
		return domain.Run{}, domain.Variant{}, domain.NotFound("run", runID)
	}

	if run.BestVariantID != nil && *run.BestVariantID != variantID {
		if prev := doc.Variant(*run.BestVariantID); prev != nil {
			prev.Status = qc.StatusFromScore(prev.QCScore, run.PassThreshold)
		}
	}

	id := variantID
	run.BestVariantID = &id
	target.Status = domain.StatusBest
	return run.Clone(), target.Clone(), nil
}

// ApplyQC scores variantID from breakdown.
//
// A non-nil threshold replaces the run's pass threshold first. When that changes
// the threshold value, every other non-best variant of the run is reclassified
// against it too.
func ApplyQC(doc *domain.Document, variantID string, breakdown domain.Breakdown, threshold *int) (domain.Variant, domain.Run, error) {
	variant := doc.Variant(variantID)
	if variant == nil {
		return domain.Variant{}, domain.Run{}, domain.NotFound("variant", variantID)
	}
	run := doc.Run(variant.RunID)
	if run == nil {
		return domain.Variant{}, domain.Run{}, domain.NotFound("run", variant.RunID)
	}

	score, err := qc.Score(breakdown)
	if err != nil {
		return domain.Variant{}, domain.Run{}, err
	}

	changed := false
	if threshold != nil {
		if err := qc.ValidateThreshold(*threshold); err != nil {
			return domain.Variant{}, domain.Run{}, err
		}
		changed = *threshold != run.PassThreshold
		run.PassThreshold = *threshold
	}

	b := breakdown
	variant.QCBreakdown = &b
	variant.QCScore = &score
	if run.IsBest(variant.ID) {
		variant.Status = domain.StatusBest
	} else {
		variant.Status = qc.StatusFromScore(variant.QCScore, run.PassThreshold)
	}

	if changed {
		Recompute(doc, run.ID, variant.ID)
	}
	return variant.Clone(), run.Clone(), nil
}

// Recompute reclassifies every variant of runID against the run's threshold,
// skipping the best variant and the variant named by except.
func Recompute(doc *domain.Document, runID, except string) {
	run := doc.Run(runID)
	if run == nil {
		return
	}
	for i := range doc.Variants {
		v := &doc.Variants[i]
		if v.RunID != runID || v.ID == except || run.IsBest(v.ID) {
			continue
		}
		v.Status = qc.StatusFromScore(v.QCScore, run.PassThreshold)
	}
}

// DeleteScene removes a scene and every run (with its variants) that used it.
func DeleteScene(doc *domain.Document, sceneID string) error {
	if doc.Scene(sceneID) == nil {
		return domain.NotFound("scene", sceneID)
	}
	doc.Scenes = filter(doc.Scenes, func(s domain.SceneCard) bool { return s.ID != sceneID })
	dropRuns(doc, func(r domain.Run) bool { return r.SceneID == sceneID })
	return nil
}

// DeleteTechnique removes a technique and every run (with its variants) that used it.
func DeleteTechnique(doc *domain.Document, techniqueID string) error {
	if doc.Technique(techniqueID) == nil {
		return domain.NotFound("technique", techniqueID)
	}
	doc.Techniques = filter(doc.Techniques, func(t domain.Technique) bool { return t.ID != techniqueID })
	dropRuns(doc, func(r domain.Run) bool { return r.TechniqueID == techniqueID })
	return nil
}

func dropRuns(doc *domain.Document, match func(domain.Run) bool) {
	dropped := make(map[string]bool)
	doc.Runs = filter(doc.Runs, func(r domain.Run) bool {
		if match(r) {
			dropped[r.ID] = true
			return false
		}
		return true
	})
	if len(dropped) == 0 {
		return
	}
	doc.Variants = filter(doc.Variants, func(v domain.Variant) bool { return !dropped[v.RunID] })
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
