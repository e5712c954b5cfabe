// Package generator builds reproducible variant batches.
//
// A batch is a pure function of its Input: the canonical prompt comes from the
// locked core, scene and technique, and each variant's controls come from a
// Source seeded with a seed derived from the batch root seed and the variant index.
package generator

import (
	"fmt"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/seed"
)

const (
	MinVariants     = 1
	MaxVariants     = 24
	DefaultVariants = 12
)

// Input is everything a batch depends on.
type Input struct {
	RunID        string
	VariantCount int // 0 selects DefaultVariants; other values are clamped
	LockedCore   domain.LockedCore
	Scene        domain.SceneCard
	Technique    domain.Technique
	BaseSeed     *uint32 // explicit root seed for replays
}

// Batch is the output of Generate.
type Batch struct {
	RootSeed uint32
	Count    int
	Prompt   string // canonical prompt without variation controls
	Variants []domain.Variant
}

// ClampCount maps a requested count into [MinVariants, MaxVariants], with 0 meaning the default.
func ClampCount(n int) int {
	switch {
	case n == 0:
		return DefaultVariants
	case n < MinVariants:
		return MinVariants
	case n > MaxVariants:
		return MaxVariants
	default:
		return n
	}
}

// VariantID returns the id of the variant at 1-based index in run runID.
func VariantID(runID string, index int) string {
	return fmt.Sprintf("%s_v%d", runID, index)
}

// Controls draws the three categorical controls for one variant seed.
// The draw order (camera, emotion, motion) is fixed.
func Controls(variantSeed uint32) domain.Controls {
	src := seed.NewSource(variantSeed)
	return domain.Controls{
		Camera:  cameraOptions[src.Intn(len(cameraOptions))],
		Emotion: emotionOptions[src.Intn(len(emotionOptions))],
		Motion:  motionOptions[src.Intn(len(motionOptions))],
	}
}

// Generate produces the ordered batch of draft variants for in.
func Generate(in Input) Batch {
	count := ClampCount(in.VariantCount)
	root := seed.RootSeed(in.RunID, in.Scene.ID, in.Technique.ID, count, in.BaseSeed)
	canonical := CanonicalPrompt(in.LockedCore, in.Scene, in.Technique)

	variants := make([]domain.Variant, 0, count)
	for i := 1; i <= count; i++ {
		s := seed.DeriveSeed(root, i)
		controls := Controls(s)
		variants = append(variants, domain.Variant{
			ID:         VariantID(in.RunID, i),
			RunID:      in.RunID,
			Index:      i,
			Seed:       s,
			Controls:   controls,
			PromptText: canonical + "\n" + VariationBlock(controls),
			Status:     domain.StatusDraft,
		})
	}

	return Batch{
		RootSeed: root,
		Count:    count,
		Prompt:   canonical,
		Variants: variants,
	}
}
