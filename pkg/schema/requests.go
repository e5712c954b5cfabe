package schema

import "github.com/aretw0/vignette/pkg/domain"

// Request schemas shared by the HTTP and MCP adapters. Fields the engine fills
// in, like generated ids, are optional.

// GenerateRequestSchema describes a generation request.
// variant_count is clamped by the generator, so any integer is accepted.
func GenerateRequestSchema() Schema {
	return Schema{
		"run_id":         Optional(NonEmptyString()),
		"scene_id":       NonEmptyString(),
		"technique_id":   NonEmptyString(),
		"variant_count":  Optional(Int()),
		"base_seed":      Optional(Seed()),
		"pass_threshold": Optional(Threshold()),
	}
}

// QCRequestSchema describes a QC submission. The variant id travels separately.
func QCRequestSchema() Schema {
	return Schema{
		"qc_breakdown": Object(BreakdownSchema()),
		"threshold":    Optional(Threshold()),
	}
}

// BestRequestSchema describes a best pick within a run.
func BestRequestSchema() Schema {
	return Schema{
		"variant_id": NonEmptyString(),
	}
}

// LockedCoreRequestSchema is LockedCoreSchema with the text policy defaulted.
func LockedCoreRequestSchema() Schema {
	return LockedCoreSchema().With("text_policy", Optional(Enum(domain.TextPolicies()...)))
}

// SceneRequestSchema is SceneSchema with the id assigned by the engine.
func SceneRequestSchema() Schema {
	return SceneSchema().With("id", Optional(String()))
}

// TechniqueRequestSchema is TechniqueSchema with the id assigned by the engine.
func TechniqueRequestSchema() Schema {
	return TechniqueSchema().With("id", Optional(String()))
}
