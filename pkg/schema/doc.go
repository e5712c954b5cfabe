// Package schema validates untyped, parsed input before it becomes a typed value.
//
// It defines a small type system (strings, bounded numbers, enums, objects, slices,
// nullable and optional wrappers). A Schema maps field names to types; Validate walks
// a map[string]any and reports every failure as a ValidationError whose Key is the
// full field path (for example "runs[2].pass_threshold").
//
// The same rules serve two callers: the storage backends, which decode and encode
// the persisted Document through DecodeDocument/EncodeDocument, and the request
// adapters, which check bodies with the exported entity schemas before decoding them
// with Decode.
//
//	body := map[string]any{"variant_id": "run-1_v3"}
//	var req struct {
//	    VariantID string `mapstructure:"variant_id"`
//	}
//	if err := schema.Decode(schema.Schema{"variant_id": schema.NonEmptyString()}, body, &req); err != nil {
//	    // errors.Is(err, schema.ErrInvalid)
//	}
package schema
