package schema

import (
	"fmt"
	"math"

	"github.com/aretw0/vignette/pkg/domain"
)

// Bounds shared by the document and request schemas.
const (
	MinVariantCount = 1
	MaxVariantCount = 24
	MinThreshold    = 0
	MaxThreshold    = 100
	MinSubScore     = 0.0
	MaxSubScore     = 5.0
)

// Seed validates a uint32 seed.
func Seed() Type { return IntRange(0, math.MaxUint32) }

// Threshold validates a pass threshold.
func Threshold() Type { return IntRange(MinThreshold, MaxThreshold) }

// LockedCoreSchema describes domain.LockedCore.
func LockedCoreSchema() Schema {
	return Schema{
		"character_lock":   String(),
		"style_lock":       String(),
		"composition_lock": String(),
		"negative_lock":    String(),
		"text_policy":      Enum(domain.TextPolicies()...),
	}
}

// SceneSchema describes domain.SceneCard.
func SceneSchema() Schema {
	return Schema{
		"id":          NonEmptyString(),
		"name":        NonEmptyString(),
		"goal":        String(),
		"action":      String(),
		"environment": String(),
		"lighting":    String(),
	}
}

// TechniqueSchema describes domain.Technique.
func TechniqueSchema() Schema {
	return Schema{
		"id":       NonEmptyString(),
		"name":     NonEmptyString(),
		"category": String(),
		"cue":      String(),
		"notes":    Optional(String()),
	}
}

// BreakdownSchema describes domain.Breakdown; every sub-score is in [0,5].
func BreakdownSchema() Schema {
	sub := FloatRange(MinSubScore, MaxSubScore)
	return Schema{
		"character_consistency":   sub,
		"composition_consistency": sub,
		"artifact_cleanliness":    sub,
		"text_safety":             sub,
	}
}

// RunSchema describes domain.Run.
func RunSchema() Schema {
	return Schema{
		"id":              NonEmptyString(),
		"scene_id":        NonEmptyString(),
		"technique_id":    NonEmptyString(),
		"variant_count":   IntRange(MinVariantCount, MaxVariantCount),
		"created_at":      Timestamp(),
		"best_variant_id": Nullable(NonEmptyString()),
		"pass_threshold":  Threshold(),
		"root_seed":       Optional(Seed()),
	}
}

// VariantSchema describes domain.Variant.
func VariantSchema() Schema {
	return Schema{
		"id":     NonEmptyString(),
		"run_id": NonEmptyString(),
		"index":  Optional(IntRange(MinVariantCount, MaxVariantCount)),
		"seed":   Seed(),
		"controls": Object(Schema{
			"camera":  String(),
			"emotion": String(),
			"motion":  String(),
		}),
		"prompt_text":  String(),
		"qc_breakdown": Nullable(Object(BreakdownSchema())),
		"qc_score":     Nullable(IntRange(0, 100)),
		"status":       Enum(domain.Statuses()...),
	}
}

// DocumentSchema describes the persisted domain.Document.
func DocumentSchema() Schema {
	return Schema{
		"version": Custom("version", func(v any) error {
			if f, ok := v.(float64); ok && f == domain.DocumentVersion {
				return nil
			}
			if i, ok := v.(int); ok && i == domain.DocumentVersion {
				return nil
			}
			return fmt.Errorf("unsupported document version %v, expected %d", v, domain.DocumentVersion)
		}),
		"locked_core": Object(LockedCoreSchema()),
		"scenes":      Slice(Object(SceneSchema())),
		"techniques":  Slice(Object(TechniqueSchema())),
		"runs":        Slice(Object(RunSchema())),
		"variants":    Slice(Object(VariantSchema())),
	}
}
