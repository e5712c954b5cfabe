package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *domain.Document {
	doc := domain.NewDocument()
	doc.LockedCore = domain.LockedCore{
		CharacterLock: "red scarf, short hair",
		StyleLock:     "watercolor",
		TextPolicy:    domain.TextPolicyNone,
	}
	doc.Scenes = []domain.SceneCard{{ID: "scene-1", Name: "Harbor"}}
	doc.Techniques = []domain.Technique{{ID: "tech-1", Name: "Dolly"}}
	best := "run-1-v2"
	score := 90
	seed := uint32(42)
	doc.Runs = []domain.Run{{
		ID:            "run-1",
		SceneID:       "scene-1",
		TechniqueID:   "tech-1",
		VariantCount:  2,
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		BestVariantID: &best,
		PassThreshold: 80,
		RootSeed:      &seed,
	}}
	doc.Variants = []domain.Variant{
		{ID: "run-1-v1", RunID: "run-1", Index: 1, Seed: 7, Status: domain.StatusDraft},
		{
			ID: "run-1-v2", RunID: "run-1", Index: 2, Seed: 4294967295,
			QCBreakdown: &domain.Breakdown{CharacterConsistency: 5, CompositionConsistency: 4, ArtifactCleanliness: 4, TextSafety: 5},
			QCScore:     &score,
			Status:      domain.StatusBest,
		},
	}
	return doc
}

func TestEncodeDecode_PreservesDocument(t *testing.T) {
	doc := validDocument()

	data, err := EncodeDocument(doc)
	require.NoError(t, err)

	got, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestDecodeDocument_DefaultDocument(t *testing.T) {
	data, err := EncodeDocument(domain.NewDocument())
	require.NoError(t, err)

	got, err := DecodeDocument(data)
	require.NoError(t, err)
	assert.Equal(t, domain.NewDocument(), got)
}

func TestDecodeDocument_RejectsMalformed(t *testing.T) {
	_, err := DecodeDocument([]byte(`{"version":1,`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestDecodeDocument_RejectsWrongVersion(t *testing.T) {
	raw := encodeRaw(t, validDocument())
	raw["version"] = float64(2)

	_, err := DecodeDocument(mustJSON(t, raw))
	require.Error(t, err)
	assert.Equal(t, []string{"version"}, keysOf(t, err))
}

func TestDecodeDocument_FieldErrorsArePathQualified(t *testing.T) {
	raw := encodeRaw(t, validDocument())
	variants := raw["variants"].([]any)
	variants[1].(map[string]any)["qc_breakdown"].(map[string]any)["text_safety"] = float64(6)
	raw["runs"].([]any)[0].(map[string]any)["variant_count"] = float64(0)

	_, err := DecodeDocument(mustJSON(t, raw))
	require.Error(t, err)
	assert.Equal(t, []string{"runs[0].variant_count", "variants[1].qc_breakdown.text_safety"}, keysOf(t, err))
}

func TestCheckInvariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *domain.Document)
		keys   []string
	}{
		{
			name:   "valid",
			mutate: func(d *domain.Document) {},
		},
		{
			name:   "duplicate scene",
			mutate: func(d *domain.Document) { d.Scenes = append(d.Scenes, d.Scenes[0]) },
			keys:   []string{"scenes[1].id"},
		},
		{
			name:   "dangling technique",
			mutate: func(d *domain.Document) { d.Runs[0].TechniqueID = "missing" },
			keys:   []string{"runs[0].technique_id"},
		},
		{
			name:   "dangling variant",
			mutate: func(d *domain.Document) { d.Variants[0].RunID = "missing" },
			keys:   []string{"variants[0].run_id", "runs[0].variant_count"},
		},
		{
			name:   "best from another run",
			mutate: func(d *domain.Document) { id := "nope"; d.Runs[0].BestVariantID = &id; d.Variants[1].Status = domain.StatusPass },
			keys:   []string{"runs[0].best_variant_id"},
		},
		{
			name:   "second best",
			mutate: func(d *domain.Document) { d.Variants[0].Status = domain.StatusBest },
			keys:   []string{"variants[0].status"},
		},
		{
			name:   "best not marked",
			mutate: func(d *domain.Document) { d.Variants[1].Status = domain.StatusPass },
			keys:   []string{"variants[1].status"},
		},
		{
			name:   "scored draft",
			mutate: func(d *domain.Document) { s := 10; d.Variants[0].QCScore = &s },
			keys:   []string{"variants[0].status"},
		},
		{
			name:   "unscored pass",
			mutate: func(d *domain.Document) { d.Variants[0].Status = domain.StatusPass },
			keys:   []string{"variants[0].status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := CheckInvariants(doc)
			if tt.keys == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Equal(t, tt.keys, keysOf(t, err))
		})
	}
}

func TestEncodeDocument_RefusesInvalid(t *testing.T) {
	doc := validDocument()
	doc.Runs[0].PassThreshold = 101

	_, err := EncodeDocument(doc)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, ValidateDocument(doc), ErrInvalid)
	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalid)
}

func encodeRaw(t *testing.T, doc *domain.Document) map[string]any {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	raw, err := ParseObject(data)
	require.NoError(t, err)
	return raw
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
