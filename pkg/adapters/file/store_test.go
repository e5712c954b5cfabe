package file_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/vignette/pkg/adapters/file"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/ports"
	"github.com/aretw0/vignette/pkg/ports/tests"
	"github.com/aretw0/vignette/pkg/schema"
	"github.com/aretw0/vignette/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	tests.RunBackendContract(t, func(t *testing.T) ports.StorageBackend {
		return file.New(filepath.Join(t.TempDir(), "store.json"))
	})
}

func TestFileStore_CreatesParentsAndDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.json")
	store := file.New(path)

	doc, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.NewDocument(), doc)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 1`)
}

func TestFileStore_FirstReadKeepsConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		s := store.New(file.New(filepath.Join(t.TempDir(), "store.json")))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Read(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := s.Mutate(ctx, func(d *domain.Document) error {
				d.Scenes = append(d.Scenes, domain.SceneCard{ID: "scene-1", Name: "Harbor"})
				return nil
			})
			assert.NoError(t, err)
		}()
		wg.Wait()

		doc, err := s.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, doc.Scene("scene-1"), "iteration %d: committed scene lost", i)
	}
}

func TestFileStore_InitializeLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	backend := file.New(filepath.Join(dir, "store.json"))
	ctx := context.Background()

	_, err := backend.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, tests.SampleDocument()))
	_, err = backend.Read(ctx)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "store.json"))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, tests.SampleDocument()))
	bad := tests.SampleDocument()
	bad.Variants[0].RunID = "ghost"
	require.Error(t, store.Write(ctx, bad))
	require.NoError(t, store.Write(ctx, domain.NewDocument()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.json", entries[0].Name())
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"version": 1,`,
		"wrong version": `{"version": 2, "locked_core": {}, "scenes": [], "techniques": [], "runs": [], "variants": []}`,
		"missing keys":  `{"version": 1}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := file.New(path).Read(context.Background())
			assert.ErrorIs(t, err, schema.ErrInvalid)

			// The corrupt file is reported, never repaired.
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, content, string(data))
		})
	}
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultPath, file.New("").Path())
}
