package generator

import (
	"fmt"
	"strings"

	"github.com/aretw0/vignette/pkg/domain"
)

// Block labels in prompt order. Exporters and tests rely on this order.
const (
	LabelCharacterLock    = "CHARACTER LOCK"
	LabelStyleLock        = "STYLE LOCK"
	LabelCompositionLock  = "COMPOSITION LOCK"
	LabelNegativeLock     = "NEGATIVE LOCK"
	LabelSceneGoal        = "SCENE GOAL"
	LabelSceneAction      = "SCENE ACTION"
	LabelSceneEnvironment = "SCENE ENVIRONMENT"
	LabelLighting         = "LIGHTING"
	LabelTechnique        = "TECHNIQUE"
	LabelTextPolicy       = "TEXT POLICY"
	LabelVariation        = "VARIATION CONTROLS"
)

// Labels returns the canonical block labels in prompt order.
func Labels() []string {
	return []string{
		LabelCharacterLock,
		LabelStyleLock,
		LabelCompositionLock,
		LabelNegativeLock,
		LabelSceneGoal,
		LabelSceneAction,
		LabelSceneEnvironment,
		LabelLighting,
		LabelTechnique,
		LabelTextPolicy,
	}
}

// CanonicalPrompt renders the ten fixed blocks shared by every variant of a batch.
func CanonicalPrompt(core domain.LockedCore, scene domain.SceneCard, technique domain.Technique) string {
	values := []string{
		core.CharacterLock,
		core.StyleLock,
		core.CompositionLock,
		core.NegativeLock,
		scene.Goal,
		scene.Action,
		scene.Environment,
		scene.Lighting,
		TechniqueSummary(technique),
		core.TextPolicy.Directive(),
	}

	lines := make([]string, len(values))
	for i, label := range Labels() {
		lines[i] = block(label, values[i])
	}
	return strings.Join(lines, "\n")
}

// TechniqueSummary renders "name | category | cue".
func TechniqueSummary(t domain.Technique) string {
	return strings.Join([]string{
		strings.TrimSpace(t.Name),
		strings.TrimSpace(t.Category),
		strings.TrimSpace(t.Cue),
	}, " | ")
}

// VariationBlock renders the per-variant controls line appended to the canonical prompt.
func VariationBlock(c domain.Controls) string {
	return block(LabelVariation, fmt.Sprintf("camera=%s; emotion=%s; motion=%s", c.Camera, c.Emotion, c.Motion))
}

func block(label, value string) string {
	return label + ": " + strings.TrimSpace(value)
}
