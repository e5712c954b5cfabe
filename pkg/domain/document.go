package domain

import "time"

// DocumentVersion is the only document layout this build reads and writes.
const DocumentVersion = 1

// LockedCore holds the prompt constraints shared by every run.
// It is only ever replaced as a whole.
type LockedCore struct {
	CharacterLock   string     `json:"character_lock" mapstructure:"character_lock"`
	StyleLock       string     `json:"style_lock" mapstructure:"style_lock"`
	CompositionLock string     `json:"composition_lock" mapstructure:"composition_lock"`
	NegativeLock    string     `json:"negative_lock" mapstructure:"negative_lock"`
	TextPolicy      TextPolicy `json:"text_policy" mapstructure:"text_policy"`
}

// SceneCard describes what a run should depict.
type SceneCard struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Goal        string `json:"goal" mapstructure:"goal"`
	Action      string `json:"action" mapstructure:"action"`
	Environment string `json:"environment" mapstructure:"environment"`
	Lighting    string `json:"lighting" mapstructure:"lighting"`
}

// Technique describes how a run should be rendered.
type Technique struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Category string `json:"category" mapstructure:"category"`
	Cue      string `json:"cue" mapstructure:"cue"`
	Notes    string `json:"notes" mapstructure:"notes"`
}

// Run is one generation batch for a scene/technique pair.
type Run struct {
	ID            string    `json:"id" mapstructure:"id"`
	SceneID       string    `json:"scene_id" mapstructure:"scene_id"`
	TechniqueID   string    `json:"technique_id" mapstructure:"technique_id"`
	VariantCount  int       `json:"variant_count" mapstructure:"variant_count"`
	CreatedAt     time.Time `json:"created_at" mapstructure:"created_at"`
	BestVariantID *string   `json:"best_variant_id" mapstructure:"best_variant_id"`
	PassThreshold int       `json:"pass_threshold" mapstructure:"pass_threshold"`

	// RootSeed is the seed every variant seed of this run was derived from.
	RootSeed *uint32 `json:"root_seed,omitempty" mapstructure:"root_seed"`
}

// IsBest reports whether variantID is the run's current best pick.
func (r *Run) IsBest(variantID string) bool {
	return r.BestVariantID != nil && *r.BestVariantID == variantID
}

// Controls are the categorical choices drawn for one variant.
type Controls struct {
	Camera  string `json:"camera" mapstructure:"camera"`
	Emotion string `json:"emotion" mapstructure:"emotion"`
	Motion  string `json:"motion" mapstructure:"motion"`
}

// Breakdown holds the four QC sub-scores, each in [0,5].
type Breakdown struct {
	CharacterConsistency   float64 `json:"character_consistency" mapstructure:"character_consistency"`
	CompositionConsistency float64 `json:"composition_consistency" mapstructure:"composition_consistency"`
	ArtifactCleanliness    float64 `json:"artifact_cleanliness" mapstructure:"artifact_cleanliness"`
	TextSafety             float64 `json:"text_safety" mapstructure:"text_safety"`
}

// Variant is a single generated prompt inside a run.
// Seed, Controls and PromptText never change after generation.
type Variant struct {
	ID         string   `json:"id" mapstructure:"id"`
	RunID      string   `json:"run_id" mapstructure:"run_id"`
	Index      int      `json:"index,omitempty" mapstructure:"index"`
	Seed       uint32   `json:"seed" mapstructure:"seed"`
	Controls   Controls `json:"controls" mapstructure:"controls"`
	PromptText string   `json:"prompt_text" mapstructure:"prompt_text"`

	QCBreakdown *Breakdown `json:"qc_breakdown" mapstructure:"qc_breakdown"`
	QCScore     *int       `json:"qc_score" mapstructure:"qc_score"`
	Status      Status     `json:"status" mapstructure:"status"`
}

// Document is the whole persisted state.
type Document struct {
	Version    int         `json:"version" mapstructure:"version"`
	LockedCore LockedCore  `json:"locked_core" mapstructure:"locked_core"`
	Scenes     []SceneCard `json:"scenes" mapstructure:"scenes"`
	Techniques []Technique `json:"techniques" mapstructure:"techniques"`
	Runs       []Run       `json:"runs" mapstructure:"runs"`
	Variants   []Variant   `json:"variants" mapstructure:"variants"`
}

// NewDocument returns the empty default document written on first use.
func NewDocument() *Document {
	return &Document{
		Version:    DocumentVersion,
		LockedCore: LockedCore{TextPolicy: TextPolicyNone},
		Scenes:     []SceneCard{},
		Techniques: []Technique{},
		Runs:       []Run{},
		Variants:   []Variant{},
	}
}

// Scene returns a pointer into d.Scenes, or nil.
func (d *Document) Scene(id string) *SceneCard {
	for i := range d.Scenes {
		if d.Scenes[i].ID == id {
			return &d.Scenes[i]
		}
	}
	return nil
}

// Technique returns a pointer into d.Techniques, or nil.
func (d *Document) Technique(id string) *Technique {
	for i := range d.Techniques {
		if d.Techniques[i].ID == id {
			return &d.Techniques[i]
		}
	}
	return nil
}

// Run returns a pointer into d.Runs, or nil.
func (d *Document) Run(id string) *Run {
	for i := range d.Runs {
		if d.Runs[i].ID == id {
			return &d.Runs[i]
		}
	}
	return nil
}

// Variant returns a pointer into d.Variants, or nil.
func (d *Document) Variant(id string) *Variant {
	for i := range d.Variants {
		if d.Variants[i].ID == id {
			return &d.Variants[i]
		}
	}
	return nil
}

// VariantsOf returns the variants owned by runID in document order.
// The returned values are copies.
func (d *Document) VariantsOf(runID string) []Variant {
	var out []Variant
	for _, v := range d.Variants {
		if v.RunID == runID {
			out = append(out, v.Clone())
		}
	}
	return out
}
