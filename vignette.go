package vignette

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/generator"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/ports"
	"github.com/aretw0/vignette/pkg/qc"
	"github.com/aretw0/vignette/pkg/schema"
	"github.com/aretw0/vignette/pkg/store"
	"github.com/aretw0/vignette/pkg/workflow"
	"github.com/google/uuid"
)

// Engine is the high-level entry point for the vignette library.
// Every write goes through one store.Store, so concurrent callers never lose updates.
type Engine struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records store and generation metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

// WithClock overrides time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the UUID generator used for ids the caller leaves empty.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New initializes an Engine over backend.
func New(backend ports.StorageBackend, opts ...Option) *Engine {
	eng := &Engine{
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(eng)
	}
	eng.store = store.New(backend,
		store.WithLogger(eng.logger),
		store.WithMetrics(eng.metrics),
	)
	return eng
}

// Store returns the store engine shared by every operation.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Document returns the committed document.
func (e *Engine) Document(ctx context.Context) (*domain.Document, error) {
	return e.store.Read(ctx)
}

// Run returns a run and its variants in batch order.
func (e *Engine) Run(ctx context.Context, runID string) (domain.Run, []domain.Variant, error) {
	doc, err := e.store.Read(ctx)
	if err != nil {
		return domain.Run{}, nil, err
	}
	run := doc.Run(runID)
	if run == nil {
		return domain.Run{}, nil, domain.NotFound("run", runID)
	}
	return run.Clone(), doc.VariantsOf(runID), nil
}

// GenerateRequest asks for a new run of a scene rendered with a technique.
type GenerateRequest struct {
	RunID         string  `json:"run_id,omitempty" mapstructure:"run_id"`
	SceneID       string  `json:"scene_id" mapstructure:"scene_id"`
	TechniqueID   string  `json:"technique_id" mapstructure:"technique_id"`
	// VariantCount is clamped to [1, 24]; 0 (or omitted) means the default of 12.
	VariantCount  int     `json:"variant_count,omitempty" mapstructure:"variant_count"`
	BaseSeed      *uint32 `json:"base_seed,omitempty" mapstructure:"base_seed"`
	PassThreshold *int    `json:"pass_threshold,omitempty" mapstructure:"pass_threshold"`
}

// GenerateResult is the committed run and its draft variants.
type GenerateResult struct {
	Run      domain.Run       `json:"run"`
	Variants []domain.Variant `json:"variants"`
}

// Generate creates a run and its whole variant batch in one mutation.
// The scene, technique and locked core are read from the same draft the run is
// committed to, so the batch always matches what is stored.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	runID := req.RunID
	if runID == "" {
		runID = e.newID()
	}
	threshold := qc.DefaultThreshold
	if req.PassThreshold != nil {
		threshold = *req.PassThreshold
	}
	if err := qc.ValidateThreshold(threshold); err != nil {
		return GenerateResult{}, err
	}

	var res GenerateResult
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		if d.Run(runID) != nil {
			return schema.Invalid("run_id", "a run with this id already exists", runID)
		}
		scene := d.Scene(req.SceneID)
		if scene == nil {
			return domain.NotFound("scene", req.SceneID)
		}
		technique := d.Technique(req.TechniqueID)
		if technique == nil {
			return domain.NotFound("technique", req.TechniqueID)
		}

		batch := generator.Generate(generator.Input{
			RunID:        runID,
			VariantCount: req.VariantCount,
			LockedCore:   d.LockedCore,
			Scene:        *scene,
			Technique:    *technique,
			BaseSeed:     req.BaseSeed,
		})
		root := batch.RootSeed
		run := domain.Run{
			ID:            runID,
			SceneID:       scene.ID,
			TechniqueID:   technique.ID,
			VariantCount:  batch.Count,
			CreatedAt:     e.now().UTC().Truncate(time.Second),
			PassThreshold: threshold,
			RootSeed:      &root,
		}
		d.Runs = append(d.Runs, run)
		d.Variants = append(d.Variants, batch.Variants...)

		res = GenerateResult{Run: run.Clone(), Variants: d.VariantsOf(runID)}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	e.metrics.Generated(len(res.Variants))
	e.logger.Info("run generated",
		"run_id", res.Run.ID,
		"scene_id", res.Run.SceneID,
		"technique_id", res.Run.TechniqueID,
		"variants", len(res.Variants),
		"root_seed", *res.Run.RootSeed,
	)
	return res, nil
}

// QCRequest submits a QC breakdown for one variant.
// A non-nil Threshold replaces the run's pass threshold first.
type QCRequest struct {
	VariantID string           `json:"variant_id" mapstructure:"variant_id"`
	Breakdown domain.Breakdown `json:"qc_breakdown" mapstructure:"qc_breakdown"`
	Threshold *int             `json:"threshold,omitempty" mapstructure:"threshold"`
}

// QCResult is the graded variant, its run, and every status the update moved.
type QCResult struct {
	Variant domain.Variant  `json:"variant"`
	Run     domain.Run      `json:"run"`
	Changes *domain.RunDiff `json:"changes,omitempty"`
}

// UpdateQC scores a variant and reclassifies its run when the threshold changes.
func (e *Engine) UpdateQC(ctx context.Context, req QCRequest) (QCResult, error) {
	var res QCResult
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		var before *domain.Document
		if v := d.Variant(req.VariantID); v != nil {
			before = d.RunSnapshot(v.RunID)
		}
		variant, run, err := workflow.ApplyQC(d, req.VariantID, req.Breakdown, req.Threshold)
		if err != nil {
			return err
		}
		res = QCResult{Variant: variant, Run: run, Changes: domain.Diff(before, d, run.ID)}
		return nil
	})
	if err != nil {
		return QCResult{}, err
	}

	e.metrics.Graded(string(res.Variant.Status))
	e.logger.Info("variant graded",
		"variant_id", res.Variant.ID,
		"run_id", res.Run.ID,
		"score", *res.Variant.QCScore,
		"status", res.Variant.Status,
	)
	return res, nil
}

// BestResult is the run and its new best variant.
type BestResult struct {
	Run         domain.Run      `json:"run"`
	BestVariant domain.Variant  `json:"best_variant"`
	Changes     *domain.RunDiff `json:"changes,omitempty"`
}

// MarkBest makes variantID the best variant of runID, regardless of its score.
func (e *Engine) MarkBest(ctx context.Context, runID, variantID string) (BestResult, error) {
	var res BestResult
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		before := d.RunSnapshot(runID)
		run, best, err := workflow.MarkBest(d, runID, variantID)
		if err != nil {
			return err
		}
		res = BestResult{Run: run, BestVariant: best, Changes: domain.Diff(before, d, runID)}
		return nil
	})
	if err != nil {
		return BestResult{}, err
	}

	e.logger.Info("best variant marked", "run_id", runID, "variant_id", variantID)
	return res, nil
}

// ReplaceLockedCore swaps the locked core as a whole. Existing prompts are not rewritten.
func (e *Engine) ReplaceLockedCore(ctx context.Context, core domain.LockedCore) (domain.LockedCore, error) {
	if core.TextPolicy == "" {
		core.TextPolicy = domain.TextPolicyNone
	}
	if err := schema.ValidateValue(schema.LockedCoreSchema(), core); err != nil {
		return domain.LockedCore{}, err
	}
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		d.LockedCore = core
		return nil
	})
	if err != nil {
		return domain.LockedCore{}, err
	}
	e.logger.Info("locked core replaced", "text_policy", core.TextPolicy)
	return core, nil
}

// Scenes lists every scene card.
func (e *Engine) Scenes(ctx context.Context) ([]domain.SceneCard, error) {
	doc, err := e.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Scenes, nil
}

// CreateScene adds a scene card, assigning a UUID when its id is empty.
func (e *Engine) CreateScene(ctx context.Context, scene domain.SceneCard) (domain.SceneCard, error) {
	if scene.ID == "" {
		scene.ID = e.newID()
	}
	if err := schema.ValidateValue(schema.SceneSchema(), scene); err != nil {
		return domain.SceneCard{}, err
	}
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		if d.Scene(scene.ID) != nil {
			return schema.Invalid("id", "a scene with this id already exists", scene.ID)
		}
		d.Scenes = append(d.Scenes, scene)
		return nil
	})
	if err != nil {
		return domain.SceneCard{}, err
	}
	e.logger.Info("scene created", "scene_id", scene.ID)
	return scene, nil
}

// UpdateScene replaces the fields of scene id. The id itself never changes.
func (e *Engine) UpdateScene(ctx context.Context, id string, scene domain.SceneCard) (domain.SceneCard, error) {
	scene.ID = id
	if err := schema.ValidateValue(schema.SceneSchema(), scene); err != nil {
		return domain.SceneCard{}, err
	}
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		current := d.Scene(id)
		if current == nil {
			return domain.NotFound("scene", id)
		}
		*current = scene
		return nil
	})
	if err != nil {
		return domain.SceneCard{}, err
	}
	return scene, nil
}

// DeleteScene removes a scene and every run generated from it.
func (e *Engine) DeleteScene(ctx context.Context, id string) error {
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		return workflow.DeleteScene(d, id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("scene deleted", "scene_id", id)
	return nil
}

// Techniques lists every technique.
func (e *Engine) Techniques(ctx context.Context) ([]domain.Technique, error) {
	doc, err := e.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Techniques, nil
}

// CreateTechnique adds a technique, assigning a UUID when its id is empty.
func (e *Engine) CreateTechnique(ctx context.Context, technique domain.Technique) (domain.Technique, error) {
	if technique.ID == "" {
		technique.ID = e.newID()
	}
	if err := schema.ValidateValue(schema.TechniqueSchema(), technique); err != nil {
		return domain.Technique{}, err
	}
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		if d.Technique(technique.ID) != nil {
			return schema.Invalid("id", "a technique with this id already exists", technique.ID)
		}
		d.Techniques = append(d.Techniques, technique)
		return nil
	})
	if err != nil {
		return domain.Technique{}, err
	}
	e.logger.Info("technique created", "technique_id", technique.ID)
	return technique, nil
}

// UpdateTechnique replaces the fields of technique id. The id itself never changes.
func (e *Engine) UpdateTechnique(ctx context.Context, id string, technique domain.Technique) (domain.Technique, error) {
	technique.ID = id
	if err := schema.ValidateValue(schema.TechniqueSchema(), technique); err != nil {
		return domain.Technique{}, err
	}
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		current := d.Technique(id)
		if current == nil {
			return domain.NotFound("technique", id)
		}
		*current = technique
		return nil
	})
	if err != nil {
		return domain.Technique{}, err
	}
	return technique, nil
}

// DeleteTechnique removes a technique and every run generated with it.
func (e *Engine) DeleteTechnique(ctx context.Context, id string) error {
	_, err := e.store.Mutate(ctx, func(d *domain.Document) error {
		return workflow.DeleteTechnique(d, id)
	})
	if err != nil {
		return err
	}
	e.logger.Info("technique deleted", "technique_id", id)
	return nil
}

// Close releases the backend when it holds a connection.
func (e *Engine) Close() error {
	if c, ok := e.store.Backend().(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close backend: %w", err)
		}
	}
	return nil
}
