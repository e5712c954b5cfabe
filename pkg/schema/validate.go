package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Schema is a map of field names to their expected types.
// Example: {"id": NonEmptyString(), "variant_count": IntRange(1, 24)}
type Schema map[string]Type

// With returns a copy of s with key set to t.
func (s Schema) With(key string, t Type) Schema {
	out := make(Schema, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	out[key] = t
	return out
}

// MarshalJSON describes the schema as nested field names to type names.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
	}
	return json.Marshal(describeSchema(s))
}

// Validate checks if data conforms to the schema.
// Returns an *AggregateError with all validation failures found, in field order.
// Keys not named by the schema are ignored.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		// No schema = no validation
		return nil
	}

	var errs []error
	for _, fieldName := range schema.keys() {
		fieldType := schema[fieldName]
		value, exists := data[fieldName]
		if !exists {
			if opt, ok := fieldType.(optionalType); ok && opt.optional() {
				continue
			}
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "required",
				Value:  nil,
			})
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, nest(fieldName, err, value)...)
		}
	}

	return aggregate(errs)
}

// Decode validates data against schema and then decodes it into out, which must be
// a pointer to a struct tagged with `mapstructure`.
func Decode(schema Schema, data map[string]any, out any) error {
	if err := Validate(schema, data); err != nil {
		return err
	}
	return decodeInto(data, out)
}

func decodeInto(data any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:     out,
		TagName:    "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return &ValidationError{Key: "$", Reason: err.Error()}
	}
	return nil
}

// ValidateValue checks a typed value against schema through its JSON form, so
// adapters and the engine apply the exact rules used for stored documents.
func ValidateValue(schema Schema, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	raw, err := ParseObject(data)
	if err != nil {
		return err
	}
	return Validate(schema, raw)
}

// ParseObject unmarshals JSON that must be an object.
// Malformed JSON and non-object roots are reported as ValidationErrors on "$".
func ParseObject(data []byte) (map[string]any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Key: "$", Reason: "malformed JSON: " + err.Error()}
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Key: "$", Reason: "expected object", Value: raw}
	}
	return m, nil
}
