package openapi

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnsupportedType is returned for Go types that have no JSON
	// representation (channels, functions, complex numbers).
	ErrUnsupportedType = errors.New("openapi: unsupported type")

	// ErrRecursiveType is returned when a type refers to itself. Compiled
	// documents keep every schema inline, so recursion cannot be expressed.
	ErrRecursiveType = errors.New("openapi: recursive type")
)

// Converter renders a Go type as an inline OpenAPI schema. The compiler
// depends on a Converter to turn request sections into schemas.
type Converter interface {
	Convert(t reflect.Type) (*Schema, error)
}

// ConverterFunc adapts an ordinary function to the Converter interface.
type ConverterFunc func(t reflect.Type) (*Schema, error)

// Convert calls f(t).
func (f ConverterFunc) Convert(t reflect.Type) (*Schema, error) {
	return f(t)
}

var timeType = reflect.TypeOf(time.Time{})

// SchemaGenerator converts Go types to inline schemas. Field names follow
// `json` tags, constraints are read from `validate` and `openapi` tags and
// defaults from `default` tags.
//
// A field is required when its `validate` tag contains the "required" rule.
// Pointers are nullable; a pointer to a struct becomes an anyOf wrapper
// around the object schema.
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object
type SchemaGenerator struct{}

// NewSchemaGenerator creates a new schema generator.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{}
}

// Convert implements Converter.
func (g *SchemaGenerator) Convert(t reflect.Type) (*Schema, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrUnsupportedType)
	}

	return g.generateType(t, make(map[reflect.Type]bool))
}

// Generate produces a schema for the type of the given value.
func (g *SchemaGenerator) Generate(v any) (*Schema, error) {
	return g.Convert(reflect.TypeOf(v))
}

// generateType produces a Schema for t. visiting holds the struct types on
// the current descent and is used to detect recursion.
func (g *SchemaGenerator) generateType(t reflect.Type, visiting map[reflect.Type]bool) (*Schema, error) {
	if t.Kind() == reflect.Pointer {
		inner, err := g.generateType(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}

		if inner.Type == "object" {
			return &Schema{AnyOf: []*Schema{inner}, Nullable: true}, nil
		}

		inner.Nullable = true

		return inner, nil
	}

	if t.Kind() == reflect.Struct && t != timeType {
		if visiting[t] {
			return nil, fmt.Errorf("%w: %s", ErrRecursiveType, t)
		}

		visiting[t] = true
		defer delete(visiting, t)

		return g.generateStructSchema(t, visiting)
	}

	return g.generateInlineType(t, visiting)
}

// generateInlineType maps Go primitive and composite types to schema types.
//
// See: https://spec.openapis.org/oas/v3.0.3#data-types
func (g *SchemaGenerator) generateInlineType(t reflect.Type, visiting map[reflect.Type]bool) (*Schema, error) {
	if t == timeType {
		return &Schema{Type: "string", Format: "date-time"}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &Schema{Type: "integer", Format: "int32"}, nil

	case reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer", Format: "int64"}, nil

	case reflect.Float32:
		return &Schema{Type: "number", Format: "float"}, nil

	case reflect.Float64:
		return &Schema{Type: "number", Format: "double"}, nil

	case reflect.String:
		return &Schema{Type: "string"}, nil

	case reflect.Slice, reflect.Array:
		if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}, nil
		}

		items, err := g.generateType(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}

		return &Schema{Type: "array", Items: items}, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &Schema{Type: "object"}, nil
		}

		values, err := g.generateType(t.Elem(), visiting)
		if err != nil {
			return nil, err
		}

		return &Schema{Type: "object", AdditionalProperties: values}, nil

	case reflect.Interface:
		return &Schema{}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
}

// generateStructSchema builds an object schema from struct fields.
func (g *SchemaGenerator) generateStructSchema(t reflect.Type, visiting map[reflect.Type]bool) (*Schema, error) {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	var required []string
	if err := g.collectFields(t, schema, &required, visiting); err != nil {
		return nil, err
	}

	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}

	if len(required) > 0 {
		schema.Required = RequiredFields(required...)
	}

	return schema, nil
}

// collectFields collects struct fields into schema, inlining embedded
// structs without an explicit json name.
func (g *SchemaGenerator) collectFields(t reflect.Type, schema *Schema, required *[]string, visiting map[reflect.Type]bool) error {
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := FieldName(field)

		if field.Anonymous && !hasJSONName(jsonTag) {
			ft := field.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}

			if ft.Kind() == reflect.Struct {
				if err := g.collectFields(ft, schema, required, visiting); err != nil {
					return err
				}

				continue
			}
		}

		fieldSchema, err := g.generateType(field.Type, visiting)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		rules := field.Tag.Get("validate")
		applyValidateTag(fieldSchema, rules)
		applyOpenAPITag(fieldSchema, field.Tag.Get("openapi"))

		if def, ok := field.Tag.Lookup("default"); ok {
			fieldSchema.Default = parseTagValue(valueSchema(fieldSchema), def)
		}

		schema.Properties[name] = fieldSchema

		if hasRule(rules, "required") {
			*required = append(*required, name)
		}
	}

	return nil
}

// FieldName returns the JSON property name of a struct field: the `json`
// tag name when present, the Go field name otherwise.
func FieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}

	return name
}

func hasJSONName(tag string) bool {
	name, _, _ := strings.Cut(tag, ",")
	return name != ""
}

// valueSchema returns the schema carrying the value type: the object branch
// of a nullable anyOf wrapper, or the schema itself.
func valueSchema(s *Schema) *Schema {
	if len(s.AnyOf) == 1 && s.Type == "" {
		return s.AnyOf[0]
	}

	return s
}

// hasRule reports whether a validator rule list contains rule before any
// "dive" marker.
func hasRule(rules, rule string) bool {
	for part := range strings.SplitSeq(rules, ",") {
		if part == "dive" {
			return false
		}

		if part == rule {
			return true
		}
	}

	return false
}

// applyValidateTag translates go-playground/validator rules into schema
// keywords. Rules after "dive" apply to elements and are ignored.
func applyValidateTag(schema *Schema, rules string) {
	if rules == "" {
		return
	}

	target := valueSchema(schema)

	for part := range strings.SplitSeq(rules, ",") {
		key, value, _ := strings.Cut(part, "=")

		switch key {
		case "dive":
			return
		case "email":
			target.Format = "email"
		case "url", "uri", "http_url":
			target.Format = "uri"
		case "uuid", "uuid4", "uuid7":
			target.Format = "uuid"
		case "datetime":
			target.Format = "date-time"
		case "ip", "ipv4":
			target.Format = "ipv4"
		case "ipv6":
			target.Format = "ipv6"
		case "oneof":
			values := strings.Fields(value)
			target.Enum = make([]any, len(values))
			for i, v := range values {
				target.Enum[i] = parseTagValue(target, v)
			}
		case "len":
			applyBound(target, value, true)
			applyBound(target, value, false)
		case "min", "gte":
			applyBound(target, value, true)
		case "max", "lte":
			applyBound(target, value, false)
		}
	}
}

// applyBound sets the lower or upper bound matching the schema type:
// length for strings, item count for arrays and value for numbers.
func applyBound(schema *Schema, value string, lower bool) {
	switch schema.Type {
	case "string":
		if v, err := strconv.Atoi(value); err == nil {
			if lower {
				schema.MinLength = &v
			} else {
				schema.MaxLength = &v
			}
		}
	case "array":
		if v, err := strconv.Atoi(value); err == nil {
			if lower {
				schema.MinItems = &v
			} else {
				schema.MaxItems = &v
			}
		}
	case "integer", "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			if lower {
				schema.Minimum = &v
			} else {
				schema.Maximum = &v
			}
		}
	}
}

// applyOpenAPITag parses the `openapi` struct tag and applies annotations
// to the schema. Values in the tag override validator-derived ones.
//
//	Name string `json:"name" openapi:"description=Display name,example=Alice"`
func applyOpenAPITag(schema *Schema, tag string) {
	if tag == "" {
		return
	}

	target := valueSchema(schema)

	for part := range strings.SplitSeq(tag, ",") {
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if hasValue {
			value = strings.TrimSpace(value)
		}

		switch key {
		case "description":
			schema.Description = value
		case "title":
			schema.Title = value
		case "example":
			schema.Example = parseTagValue(target, value)
		case "format":
			target.Format = value
		case "pattern":
			target.Pattern = value
		case "enum":
			values := strings.Split(value, "|")
			target.Enum = make([]any, len(values))
			for i, v := range values {
				target.Enum[i] = parseTagValue(target, v)
			}
		case "minimum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				target.Minimum = &v
			}
		case "maximum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				target.Maximum = &v
			}
		case "multipleOf":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				target.MultipleOf = &v
			}
		case "minLength":
			if v, err := strconv.Atoi(value); err == nil {
				target.MinLength = &v
			}
		case "maxLength":
			if v, err := strconv.Atoi(value); err == nil {
				target.MaxLength = &v
			}
		case "uniqueItems":
			target.UniqueItems = true
		case "deprecated":
			schema.Deprecated = true
		case "readOnly":
			schema.ReadOnly = true
		case "writeOnly":
			schema.WriteOnly = true
		}
	}
}

// parseTagValue converts a string tag value to the Go type matching the
// schema type. Values that do not parse are returned unchanged.
func parseTagValue(schema *Schema, value string) any {
	switch schema.Type {
	case "integer":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case "number":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case "boolean":
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	case "array":
		if value == "[]" {
			return []any{}
		}
	}

	return value
}
