package http

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/vignette"
	"github.com/aretw0/vignette/pkg/adapters/memory"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/export"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	engine := vignette.New(memory.NewStore(), vignette.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	}))
	return NewHandler(engine, opts...)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// seedCatalog creates scene-1, tech-1 and a two-variant run-1.
func seedCatalog(t *testing.T, h http.Handler) {
	t.Helper()
	w := do(t, h, "PUT", "/core", `{"character_lock":"red fox courier","style_lock":"ink wash","composition_lock":"rule of thirds","negative_lock":"no logos"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, h, "POST", "/scenes/", `{"id":"scene-1","name":"Harbor","goal":"arrival"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, h, "POST", "/techniques/", `{"id":"tech-1","name":"Dolly","category":"camera","cue":"slow push in"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, h, "POST", "/runs/", `{"run_id":"run-1","scene_id":"scene-1","technique_id":"tech-1","variant_count":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestGetHealth(t *testing.T) {
	w := do(t, newHandler(t), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, strings.TrimSpace(vignette.Version), body["version"])
}

func TestGenerate(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	w := do(t, h, "GET", "/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[runView](t, w)
	assert.Equal(t, 2, view.Run.VariantCount)
	assert.Equal(t, 80, view.Run.PassThreshold)
	require.NotNil(t, view.Run.RootSeed)
	assert.Equal(t, uint32(765078620), *view.Run.RootSeed)
	require.Len(t, view.Variants, 2)
	assert.Equal(t, uint32(1778982843), view.Variants[0].Seed)
	assert.Equal(t, uint32(2792887066), view.Variants[1].Seed)
	assert.Contains(t, view.Variants[0].PromptText, "red fox courier")
	for _, v := range view.Variants {
		assert.Equal(t, domain.StatusDraft, v.Status)
	}
}

func TestGenerate_Errors(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	tests := []struct {
		name string
		body string
		code int
		key  string
	}{
		{"malformed json", `{"scene_id":`, http.StatusBadRequest, ""},
		{"not an object", `["scene-1"]`, http.StatusUnprocessableEntity, "$"},
		{"missing scene", `{"technique_id":"tech-1"}`, http.StatusUnprocessableEntity, "scene_id"},
		{"threshold out of range", `{"scene_id":"scene-1","technique_id":"tech-1","pass_threshold":101}`, http.StatusUnprocessableEntity, "pass_threshold"},
		{"negative seed", `{"scene_id":"scene-1","technique_id":"tech-1","base_seed":-1}`, http.StatusUnprocessableEntity, "base_seed"},
		{"duplicate run", `{"run_id":"run-1","scene_id":"scene-1","technique_id":"tech-1"}`, http.StatusUnprocessableEntity, "run_id"},
		{"unknown scene", `{"scene_id":"nope","technique_id":"tech-1"}`, http.StatusNotFound, ""},
		{"unknown technique", `{"scene_id":"scene-1","technique_id":"nope"}`, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/runs/", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			body := decode[errorBody](t, w)
			assert.NotEmpty(t, body.Error)
			if tt.key != "" {
				require.NotEmpty(t, body.Fields)
				assert.Equal(t, tt.key, body.Fields[0].Key)
			}
		})
	}
}

func TestGenerate_BaseSeed(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	w := do(t, h, "POST", "/runs/", `{"scene_id":"scene-1","technique_id":"tech-1","variant_count":3,"base_seed":42}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[vignette.GenerateResult](t, w)
	assert.NotEmpty(t, res.Run.ID)
	require.Len(t, res.Variants, 3)
	assert.Equal(t, []uint32{1013904265, 2027808488, 3041712711},
		[]uint32{res.Variants[0].Seed, res.Variants[1].Seed, res.Variants[2].Seed})
}

func TestGenerate_VariantCountDefaults(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	for body, want := range map[string]int{
		`{"scene_id":"scene-1","technique_id":"tech-1"}`:                     12,
		`{"scene_id":"scene-1","technique_id":"tech-1","variant_count":0}`:   12,
		`{"scene_id":"scene-1","technique_id":"tech-1","variant_count":-3}`:  1,
		`{"scene_id":"scene-1","technique_id":"tech-1","variant_count":100}`: 24,
	} {
		w := do(t, h, "POST", "/runs/", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		res := decode[vignette.GenerateResult](t, w)
		assert.Len(t, res.Variants, want, body)
		assert.Equal(t, want, res.Run.VariantCount, body)
	}
}

func TestUpdateQC(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	w := do(t, h, "POST", "/variants/run-1_v1/qc", `{"qc_breakdown":{"character_consistency":5,"composition_consistency":4,"artifact_cleanliness":4,"text_safety":5}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[vignette.QCResult](t, w)
	require.NotNil(t, res.Variant.QCScore)
	assert.Equal(t, 90, *res.Variant.QCScore)
	assert.Equal(t, domain.StatusPass, res.Variant.Status)
	require.NotNil(t, res.Changes)
	assert.Equal(t, []domain.StatusChange{{VariantID: "run-1_v1", From: domain.StatusDraft, To: domain.StatusPass}}, res.Changes.Statuses)

	// Raising the threshold reclassifies the graded variant.
	w = do(t, h, "POST", "/variants/run-1_v1/qc", `{"qc_breakdown":{"character_consistency":5,"composition_consistency":4,"artifact_cleanliness":4,"text_safety":5},"threshold":95}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res = decode[vignette.QCResult](t, w)
	assert.Equal(t, domain.StatusFail, res.Variant.Status)
	assert.Equal(t, 95, res.Run.PassThreshold)
}

func TestUpdateQC_Errors(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)
	full := `"character_consistency":5,"composition_consistency":4,"artifact_cleanliness":4`

	w := do(t, h, "POST", "/variants/ghost/qc", `{"qc_breakdown":{`+full+`,"text_safety":5}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "POST", "/variants/run-1_v1/qc", `{"qc_breakdown":{`+full+`,"text_safety":6}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "qc_breakdown.text_safety", decode[errorBody](t, w).Fields[0].Key)

	w = do(t, h, "POST", "/variants/run-1_v1/qc", `{"qc_breakdown":{`+full+`}}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "qc_breakdown.text_safety", decode[errorBody](t, w).Fields[0].Key)

	// Nothing was committed by the rejected submissions.
	view := decode[runView](t, do(t, h, "GET", "/runs/run-1", ""))
	assert.Nil(t, view.Variants[0].QCScore)
}

func TestMarkBest(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	w := do(t, h, "POST", "/runs/run-1/best", `{"variant_id":"run-1_v2"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[vignette.BestResult](t, w)
	require.NotNil(t, res.Run.BestVariantID)
	assert.Equal(t, "run-1_v2", *res.Run.BestVariantID)
	assert.Equal(t, domain.StatusBest, res.BestVariant.Status)

	w = do(t, h, "POST", "/runs/run-1/best", `{"variant_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, h, "POST", "/runs/run-1/best", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCatalogCRUD(t *testing.T) {
	h := newHandler(t)

	w := do(t, h, "POST", "/scenes/", `{"name":"Rooftop"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	scene := decode[domain.SceneCard](t, w)
	assert.NotEmpty(t, scene.ID)

	w = do(t, h, "PUT", "/scenes/"+scene.ID, `{"id":"ignored","name":"Rooftop at dusk","lighting":"sodium"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, scene.ID, decode[domain.SceneCard](t, w).ID)

	scenes := decode[[]domain.SceneCard](t, do(t, h, "GET", "/scenes/", ""))
	require.Len(t, scenes, 1)
	assert.Equal(t, "Rooftop at dusk", scenes[0].Name)

	w = do(t, h, "POST", "/scenes/", `{"id":"`+scene.ID+`","name":"dup"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, h, "POST", "/scenes/", `{"name":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = do(t, h, "PUT", "/scenes/ghost", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/scenes/"+scene.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", "/scenes/"+scene.ID, "").Code)

	w = do(t, h, "POST", "/techniques/", `{"id":"tech-1","name":"Dolly"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = do(t, h, "PUT", "/techniques/tech-1", `{"name":"Dolly zoom","notes":"vertigo"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	techniques := decode[[]domain.Technique](t, do(t, h, "GET", "/techniques/", ""))
	require.Len(t, techniques, 1)
	assert.Equal(t, "vertigo", techniques[0].Notes)
	assert.Equal(t, http.StatusNoContent, do(t, h, "DELETE", "/techniques/tech-1", "").Code)
}

func TestPutCore_RejectsUnknownPolicy(t *testing.T) {
	w := do(t, newHandler(t), "PUT", "/core", `{"character_lock":"a","style_lock":"b","composition_lock":"c","negative_lock":"d","text_policy":"shout"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "text_policy", decode[errorBody](t, w).Fields[0].Key)
}

func TestGetDocument(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	doc := decode[domain.Document](t, do(t, h, "GET", "/document", ""))
	assert.Equal(t, domain.DocumentVersion, doc.Version)
	assert.Len(t, doc.Runs, 1)
	assert.Len(t, doc.Variants, 2)
}

func TestExportCSV(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)

	w := do(t, h, "GET", "/runs/run-1/export.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `"run-1.csv"`)

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, export.CSVHeader, records[0])

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/runs/ghost/export.csv", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHandler(t, WithMetrics(observability.NewMetrics(reg)), WithGatherer(reg))
	seedCatalog(t, h)
	do(t, h, "GET", "/runs/run-1", "")
	do(t, h, "GET", "/runs/ghost", "")

	w := do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `vignette_http_requests_total{code="2xx",method="GET",route="/runs/{id}"} 1`)
	assert.Contains(t, body, `vignette_http_requests_total{code="4xx",method="GET",route="/runs/{id}"} 1`)
	assert.Contains(t, body, `vignette_http_requests_total{code="2xx",method="POST",route="/runs/"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	h := newHandler(t)
	seedCatalog(t, h)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/runs/run-1/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	readUntil := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
		return ""
	}
	// The ping is written after the subscription is registered.
	assert.Equal(t, "data: connected", readUntil("data: "))

	w := do(t, h, "POST", "/runs/run-1/best", `{"variant_id":"run-1_v1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "event: diff", readUntil("event: "))
	var diff domain.RunDiff
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(readUntil("data: "), "data: ")), &diff))
	assert.Equal(t, "run-1", diff.RunID)
	require.NotNil(t, diff.BestVariantID)
	assert.Equal(t, "run-1_v1", *diff.BestVariantID)
}

func TestSubscribeEvents_UnknownRun(t *testing.T) {
	w := do(t, newHandler(t), "GET", "/runs/ghost/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamManager(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe("run-1")
	assert.Equal(t, 1, sm.Subscribers("run-1"))

	sm.Broadcast("run-2", "ignored")
	sm.Broadcast("run-1", "hello")
	assert.Equal(t, "hello", <-ch)

	// A full buffer drops instead of blocking.
	for i := 0; i < 20; i++ {
		sm.Broadcast("run-1", "flood")
	}
	assert.Len(t, ch, cap(ch))

	cancel()
	assert.Equal(t, 0, sm.Subscribers("run-1"))
}
