// Package tests holds reusable contract suites for the ports package.
package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/ports"
	"github.com/aretw0/vignette/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// BackendFactory returns an empty backend. It is called once per subtest.
type BackendFactory func(t *testing.T) ports.StorageBackend

// RunBackendContract verifies that a StorageBackend implementation adheres to the
// ports.StorageBackend contract.
func RunBackendContract(t *testing.T, newBackend BackendFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("Read creates the default document", func(t *testing.T) {
		backend := newBackend(t)

		doc, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.NewDocument(), doc)

		again, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, doc, again)
	})

	t.Run("Write then Read", func(t *testing.T) {
		backend := newBackend(t)
		doc := SampleDocument()

		require.NoError(t, backend.Write(ctx, doc))

		loaded, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, doc, loaded)
	})

	t.Run("Write replaces the document", func(t *testing.T) {
		backend := newBackend(t)
		require.NoError(t, backend.Write(ctx, SampleDocument()))

		replacement := domain.NewDocument()
		replacement.LockedCore.StyleLock = "ink"
		require.NoError(t, backend.Write(ctx, replacement))

		loaded, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, replacement, loaded)
	})

	t.Run("Write rejects invalid documents", func(t *testing.T) {
		backend := newBackend(t)
		valid := SampleDocument()
		require.NoError(t, backend.Write(ctx, valid))

		invalid := SampleDocument()
		invalid.Runs[0].VariantCount = 3
		err := backend.Write(ctx, invalid)
		assert.ErrorIs(t, err, schema.ErrInvalid)

		loaded, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, valid, loaded, "a rejected write must leave the stored document untouched")
	})

	t.Run("First Read does not overwrite a concurrent Write", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			backend := newBackend(t)

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := backend.Read(ctx)
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, backend.Write(ctx, SampleDocument()))
			}()
			wg.Wait()

			loaded, err := backend.Read(ctx)
			require.NoError(t, err)
			require.Equal(t, SampleDocument(), loaded, "iteration %d", i)
		}
	})

	t.Run("Reads are independent copies", func(t *testing.T) {
		backend := newBackend(t)
		require.NoError(t, backend.Write(ctx, SampleDocument()))

		first, err := backend.Read(ctx)
		require.NoError(t, err)
		first.Scenes[0].Name = "changed"
		first.Variants = nil

		second, err := backend.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, SampleDocument(), second)
	})
}

// SampleDocument returns a small valid document with one graded run.
func SampleDocument() *domain.Document {
	doc := domain.NewDocument()
	doc.LockedCore = domain.LockedCore{
		CharacterLock:   "girl with a red scarf",
		StyleLock:       "soft watercolor",
		CompositionLock: "subject on the left third",
		NegativeLock:    "no extra limbs",
		TextPolicy:      domain.TextPolicyNone,
	}
	doc.Scenes = []domain.SceneCard{{
		ID: "scene-1", Name: "Harbor", Goal: "longing", Action: "waits on the pier",
		Environment: "foggy harbor", Lighting: "dawn",
	}}
	doc.Techniques = []domain.Technique{{ID: "tech-1", Name: "Dolly", Category: "camera", Cue: "slow push in"}}

	score := 90
	seed := uint32(765078620)
	best := "run-1_v2"
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
		{
			ID: "run-1_v1", RunID: "run-1", Index: 1, Seed: 1778982843,
			Controls: domain.Controls{Camera: "close-up", Emotion: "melancholic", Motion: "turning head"},
			QCBreakdown: &domain.Breakdown{
				CharacterConsistency: 5, CompositionConsistency: 4, ArtifactCleanliness: 4, TextSafety: 5,
			},
			QCScore: &score,
			Status:  domain.StatusPass,
		},
		{
			ID: "run-1_v2", RunID: "run-1", Index: 2, Seed: 2792887066,
			Controls: domain.Controls{Camera: "dutch angle", Emotion: "melancholic", Motion: "subtle breathing"},
			Status:   domain.StatusBest,
		},
	}
	return doc
}
