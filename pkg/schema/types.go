package schema

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Type defines the contract for field validation.
// Implementations determine how values are validated against a type.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// optionalType marks types whose key may be missing from the parent object.
type optionalType interface {
	optional() bool
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct {
	nonEmpty bool
}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if t.nonEmpty && strings.TrimSpace(s) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// IntType validates whole numbers, optionally bounded.
type IntType struct {
	min, max *int64
}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case uint32:
		n = int64(v)
	case float64:
		// Accept floats that are whole numbers (from JSON unmarshaling)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		if v > math.MaxInt64 || v < math.MinInt64 {
			return fmt.Errorf("int out of range")
		}
		n = int64(v)
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
	if t.min != nil && n < *t.min {
		return fmt.Errorf("must be >= %d", *t.min)
	}
	if t.max != nil && n > *t.max {
		return fmt.Errorf("must be <= %d", *t.max)
	}
	return nil
}

// FloatType validates finite numbers, optionally bounded.
type FloatType struct {
	min, max *float64
}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	var f float64
	switch v := value.(type) {
	case float32:
		f = float64(v)
	case float64:
		f = v
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("must be a finite number")
	}
	if t.min != nil && f < *t.min {
		return fmt.Errorf("must be >= %g", *t.min)
	}
	if t.max != nil && f > *t.max {
		return fmt.Errorf("must be <= %g", *t.max)
	}
	return nil
}

// EnumType validates strings against a closed set.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.values, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	for _, v := range t.values {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(t.values, ", "))
}

// TimestampType validates RFC 3339 strings.
type TimestampType struct{}

func (t *TimestampType) Name() string { return "timestamp" }

func (t *TimestampType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected RFC 3339 string, got %T", value)
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return fmt.Errorf("invalid timestamp: %v", err)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return fmt.Errorf("expected slice, got %T", value)
	}

	var errs []error
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			errs = append(errs, nest(fmt.Sprintf("[%d]", i), err, elem)...)
		}
	}
	return aggregate(errs)
}

// ObjectType validates a nested map against a Schema.
type ObjectType struct {
	schema Schema
}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Validate(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return Validate(t.schema, m)
}

// NullableType accepts null in addition to the wrapped type. The key must be present.
type NullableType struct {
	inner Type
}

func (t *NullableType) Name() string { return t.inner.Name() + "|null" }

func (t *NullableType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

// OptionalType accepts a missing key or null in addition to the wrapped type.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

func (t *OptionalType) optional() bool { return true }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// NonEmptyString rejects strings that are empty after trimming.
func NonEmptyString() Type { return &StringType{nonEmpty: true} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// IntRange creates an integer validator bounded to [min, max].
func IntRange(min, max int64) Type { return &IntType{min: &min, max: &max} }

// Float creates a float type validator.
func Float() Type { return &FloatType{} }

// FloatRange creates a float validator bounded to [min, max].
func FloatRange(min, max float64) Type { return &FloatType{min: &min, max: &max} }

// Enum creates a validator for a closed set of strings.
func Enum[T ~string](values ...T) Type {
	vs := make([]string, len(values))
	for i, v := range values {
		vs[i] = string(v)
	}
	return &EnumType{values: vs}
}

// Timestamp creates an RFC 3339 timestamp validator.
func Timestamp() Type { return &TimestampType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Object creates a validator for a nested object.
func Object(s Schema) Type { return &ObjectType{schema: s} }

// Nullable allows null for a required key.
func Nullable(t Type) Type { return &NullableType{inner: t} }

// Optional allows the key to be missing or null.
func Optional(t Type) Type { return &OptionalType{inner: t} }

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// describe renders a Type as a JSON-friendly description used by Schema.MarshalJSON.
func describe(t Type) any {
	switch tt := t.(type) {
	case *ObjectType:
		return describeSchema(tt.schema)
	case *SliceType:
		return []any{describe(tt.elemType)}
	case *NullableType:
		if _, nested := tt.inner.(*ObjectType); nested {
			return map[string]any{"nullable": describe(tt.inner)}
		}
	case *OptionalType:
		if _, nested := tt.inner.(*ObjectType); nested {
			return map[string]any{"optional": describe(tt.inner)}
		}
	}
	return t.Name()
}

func describeSchema(s Schema) map[string]any {
	out := make(map[string]any, len(s))
	for _, key := range s.keys() {
		out[key] = describe(s[key])
	}
	return out
}

func (s Schema) keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
