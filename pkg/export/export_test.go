package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() (domain.Run, []domain.Variant) {
	best := "run-1_v2"
	seed := uint32(765078620)
	score := 90
	run := domain.Run{
		ID: "run-1", SceneID: "scene-1", TechniqueID: "tech-1", VariantCount: 2,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), BestVariantID: &best,
		PassThreshold: 80, RootSeed: &seed,
	}
	variants := []domain.Variant{
		{
			ID: "run-1_v1", RunID: "run-1", Index: 1, Seed: 1778982843,
			Controls:    domain.Controls{Camera: "close-up", Emotion: "melancholic", Motion: "turning head"},
			PromptText:  "CHARACTER LOCK: a, b\nVARIATION CONTROLS: camera=close-up",
			QCBreakdown: &domain.Breakdown{CharacterConsistency: 5, CompositionConsistency: 4, ArtifactCleanliness: 4, TextSafety: 4.5},
			QCScore:     &score,
			Status:      domain.StatusPass,
		},
		{
			ID: "run-1_v2", RunID: "run-1", Index: 2, Seed: 2792887066,
			Controls:   domain.Controls{Camera: "dutch angle", Emotion: "melancholic", Motion: "subtle breathing"},
			PromptText: "best prompt",
			Status:     domain.StatusBest,
		},
	}
	return run, variants
}

func TestCSV(t *testing.T) {
	run, variants := sample()
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, run, variants))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])

	assert.Equal(t, []string{
		"run-1", "run-1_v1", "1", "1778982843",
		"close-up", "melancholic", "turning head",
		"pass", "90", "5", "4", "4", "4.5",
		"false", "CHARACTER LOCK: a, b\nVARIATION CONTROLS: camera=close-up",
	}, records[1])

	// Unscored best variant: empty score cells.
	assert.Equal(t, "best", records[2][7])
	assert.Equal(t, []string{"", "", "", "", ""}, records[2][8:13])
	assert.Equal(t, "true", records[2][13])
}

func TestMarkdown(t *testing.T) {
	run, variants := sample()
	out := Markdown(Report{
		Run:       run,
		Scene:     &domain.SceneCard{ID: "scene-1", Name: "Harbor"},
		Technique: &domain.Technique{ID: "tech-1", Name: "Dolly | push"},
		Variants:  variants,
	})

	assert.True(t, strings.HasPrefix(out, "# Run run-1\n"))
	assert.Contains(t, out, "- **Scene:** Harbor")
	assert.Contains(t, out, "- **Root seed:** 765078620")
	assert.Contains(t, out, "draft 0 · pass 1 · fail 0 · best 1")
	assert.Contains(t, out, "| 1 | `run-1_v1` | 1778982843 | close-up | melancholic | turning head | 90 | pass |")
	assert.Contains(t, out, "| 2 | `run-1_v2` | 2792887066 | dutch angle | melancholic | subtle breathing | – | **best** |")
	assert.Contains(t, out, "## Best prompt (`run-1_v2`)\n\n```text\nbest prompt\n```")
}

func TestMarkdown_FallsBackToIDs(t *testing.T) {
	run, _ := sample()
	run.BestVariantID = nil
	out := Markdown(Report{Run: run})

	assert.Contains(t, out, "- **Scene:** scene-1")
	assert.Contains(t, out, "- **Technique:** tech-1")
	assert.NotContains(t, out, "Best prompt")
}
