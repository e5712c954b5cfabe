package generator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureInput() Input {
	return Input{
		RunID:        "run-1",
		VariantCount: 2,
		LockedCore: domain.LockedCore{
			CharacterLock:   "  red-haired courier, green scarf ",
			StyleLock:       "gouache storybook",
			CompositionLock: "rule of thirds",
			NegativeLock:    "extra fingers",
			TextPolicy:      domain.TextPolicyNone,
		},
		Scene: domain.SceneCard{
			ID:          "scene-1",
			Name:        "Harbor",
			Goal:        "deliver the letter",
			Action:      "running along the pier",
			Environment: "foggy harbor at dawn",
			Lighting:    "soft backlight",
		},
		Technique: domain.Technique{ID: "tech-1", Name: "Ink wash", Category: "painterly", Cue: "loose edges"},
	}
}

func ptr[T any](v T) *T { return &v }

func TestClampCount(t *testing.T) {
	assert.Equal(t, DefaultVariants, ClampCount(0))
	assert.Equal(t, 1, ClampCount(-3))
	assert.Equal(t, 1, ClampCount(1))
	assert.Equal(t, 7, ClampCount(7))
	assert.Equal(t, 24, ClampCount(24))
	assert.Equal(t, 24, ClampCount(99))
}

func TestCanonicalPrompt_Order(t *testing.T) {
	in := fixtureInput()
	prompt := CanonicalPrompt(in.LockedCore, in.Scene, in.Technique)

	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 10)
	for i, label := range Labels() {
		assert.True(t, strings.HasPrefix(lines[i], label+": "), "line %d should start with %s, got %q", i, label, lines[i])
	}
	assert.Equal(t, "CHARACTER LOCK: red-haired courier, green scarf", lines[0])
	assert.Equal(t, "TECHNIQUE: Ink wash | painterly | loose edges", lines[8])
	assert.Equal(t, "TEXT POLICY: "+domain.TextPolicyNone.Directive(), lines[9])
}

func TestGenerate_Reference(t *testing.T) {
	in := fixtureInput()
	in.BaseSeed = ptr(uint32(42))
	in.VariantCount = 3

	batch := Generate(in)
	require.Len(t, batch.Variants, 3)
	assert.Equal(t, uint32(42), batch.RootSeed)

	want := []struct {
		seed     uint32
		controls domain.Controls
	}{
		{1013904265, domain.Controls{Camera: "close-up", Emotion: "anxious", Motion: "reaching forward"}},
		{2027808488, domain.Controls{Camera: "low-angle wide shot", Emotion: "melancholic", Motion: "hair and cloth caught in wind"}},
		{3041712711, domain.Controls{Camera: "eye-level medium shot", Emotion: "calm", Motion: "slow walk"}},
	}
	for i, w := range want {
		v := batch.Variants[i]
		assert.Equal(t, VariantID("run-1", i+1), v.ID)
		assert.Equal(t, "run-1", v.RunID)
		assert.Equal(t, i+1, v.Index)
		assert.Equal(t, w.seed, v.Seed)
		assert.Equal(t, w.controls, v.Controls)
		assert.Equal(t, domain.StatusDraft, v.Status)
		assert.Nil(t, v.QCScore)
		assert.Nil(t, v.QCBreakdown)
		assert.Equal(t, batch.Prompt+"\n"+VariationBlock(w.controls), v.PromptText)
	}
}

func TestGenerate_HashedRootSeed(t *testing.T) {
	batch := Generate(fixtureInput())

	assert.Equal(t, seed.HashToSeed("run-1:scene-1:tech-1:2"), batch.RootSeed)
	assert.Equal(t, uint32(765078620), batch.RootSeed)
	require.Len(t, batch.Variants, 2)
	assert.Equal(t, uint32(1778982843), batch.Variants[0].Seed)
	assert.Equal(t, domain.Controls{Camera: "close-up", Emotion: "melancholic", Motion: "turning head"}, batch.Variants[0].Controls)
	assert.Equal(t, uint32(2792887066), batch.Variants[1].Seed)
	assert.Equal(t, domain.Controls{Camera: "dutch angle", Emotion: "melancholic", Motion: "subtle breathing"}, batch.Variants[1].Controls)
	assert.True(t, strings.HasSuffix(batch.Variants[1].PromptText,
		"VARIATION CONTROLS: camera=dutch angle; emotion=melancholic; motion=subtle breathing"))
}

func TestGenerate_Deterministic(t *testing.T) {
	in := fixtureInput()
	in.VariantCount = 24

	first, err := json.Marshal(Generate(in).Variants)
	require.NoError(t, err)
	second, err := json.Marshal(Generate(in).Variants)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	in.BaseSeed = ptr(uint32(7))
	third, err := json.Marshal(Generate(in).Variants)
	require.NoError(t, err)
	assert.NotEqual(t, string(first), string(third))
}

func TestGenerate_DefaultCount(t *testing.T) {
	in := fixtureInput()
	in.VariantCount = 0
	batch := Generate(in)
	assert.Equal(t, DefaultVariants, batch.Count)
	assert.Len(t, batch.Variants, DefaultVariants)
	assert.Equal(t, "run-1_v12", batch.Variants[11].ID)
}

func TestOptionAccessorsReturnCopies(t *testing.T) {
	cams := CameraOptions()
	cams[0] = "mutated"
	assert.NotEqual(t, "mutated", CameraOptions()[0])
	assert.Len(t, EmotionOptions(), 8)
	assert.Len(t, MotionOptions(), 8)
}
