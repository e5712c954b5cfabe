package schema

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/vignette/pkg/domain"
)

// DecodeDocument parses, validates and decodes a persisted document.
// Any failure is returned as a validation error; the data is never coerced.
func DecodeDocument(data []byte) (*domain.Document, error) {
	raw, err := ParseObject(data)
	if err != nil {
		return nil, err
	}
	if err := Validate(DocumentSchema(), raw); err != nil {
		return nil, err
	}

	doc := &domain.Document{}
	if err := decodeInto(raw, doc); err != nil {
		return nil, err
	}
	normalize(doc)

	if err := CheckInvariants(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// EncodeDocument serializes doc after round-tripping it through DecodeDocument,
// so nothing that would fail a later read is ever written.
func EncodeDocument(doc *domain.Document) ([]byte, error) {
	if doc == nil {
		return nil, &ValidationError{Key: "$", Reason: "document is nil"}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	if _, err := DecodeDocument(data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateDocument reports whether doc would survive a write and a read.
func ValidateDocument(doc *domain.Document) error {
	_, err := EncodeDocument(doc)
	return err
}

// normalize replaces nil collections so encoded documents always carry arrays.
func normalize(doc *domain.Document) {
	if doc.Scenes == nil {
		doc.Scenes = []domain.SceneCard{}
	}
	if doc.Techniques == nil {
		doc.Techniques = []domain.Technique{}
	}
	if doc.Runs == nil {
		doc.Runs = []domain.Run{}
	}
	if doc.Variants == nil {
		doc.Variants = []domain.Variant{}
	}
}

// CheckInvariants verifies the cross-entity rules a field schema cannot express:
// unique ids, references, batch sizes, and the status/score/best pairing.
func CheckInvariants(doc *domain.Document) error {
	var errs []error
	fail := func(key, reason string, value any) {
		errs = append(errs, &ValidationError{Key: key, Reason: reason, Value: value})
	}

	scenes := make(map[string]bool, len(doc.Scenes))
	for i, s := range doc.Scenes {
		if scenes[s.ID] {
			fail(fmt.Sprintf("scenes[%d].id", i), "duplicate id "+s.ID, nil)
		}
		scenes[s.ID] = true
	}
	techniques := make(map[string]bool, len(doc.Techniques))
	for i, t := range doc.Techniques {
		if techniques[t.ID] {
			fail(fmt.Sprintf("techniques[%d].id", i), "duplicate id "+t.ID, nil)
		}
		techniques[t.ID] = true
	}

	runs := make(map[string]*domain.Run, len(doc.Runs))
	for i := range doc.Runs {
		r := &doc.Runs[i]
		key := fmt.Sprintf("runs[%d]", i)
		if _, dup := runs[r.ID]; dup {
			fail(key+".id", "duplicate id "+r.ID, nil)
		}
		runs[r.ID] = r
		if !scenes[r.SceneID] {
			fail(key+".scene_id", "unknown scene "+r.SceneID, nil)
		}
		if !techniques[r.TechniqueID] {
			fail(key+".technique_id", "unknown technique "+r.TechniqueID, nil)
		}
	}

	owned := make(map[string]int, len(doc.Runs))
	variants := make(map[string]*domain.Variant, len(doc.Variants))
	for i := range doc.Variants {
		v := &doc.Variants[i]
		key := fmt.Sprintf("variants[%d]", i)
		if _, dup := variants[v.ID]; dup {
			fail(key+".id", "duplicate id "+v.ID, nil)
		}
		variants[v.ID] = v

		run, ok := runs[v.RunID]
		if !ok {
			fail(key+".run_id", "unknown run "+v.RunID, nil)
			continue
		}
		owned[v.RunID]++

		isBest := run.IsBest(v.ID)
		switch {
		case isBest && v.Status != domain.StatusBest:
			fail(key+".status", fmt.Sprintf("run best variant must have status best, got %s", v.Status), nil)
		case !isBest && v.Status == domain.StatusBest:
			fail(key+".status", "status best without being the run's best_variant_id", nil)
		case !isBest:
			scored := v.QCScore != nil
			graded := v.QCBreakdown != nil
			draft := v.Status == domain.StatusDraft
			if scored != graded || scored == draft {
				fail(key+".status", fmt.Sprintf("status %s inconsistent with qc_score/qc_breakdown", v.Status), nil)
			}
		}
	}

	for i := range doc.Runs {
		r := &doc.Runs[i]
		key := fmt.Sprintf("runs[%d]", i)
		if owned[r.ID] != r.VariantCount {
			fail(key+".variant_count", fmt.Sprintf("run owns %d variants, expected %d", owned[r.ID], r.VariantCount), nil)
		}
		if r.BestVariantID != nil {
			best, ok := variants[*r.BestVariantID]
			if !ok || best.RunID != r.ID {
				fail(key+".best_variant_id", "must reference a variant of this run", *r.BestVariantID)
			}
		}
	}

	return aggregate(errs)
}
