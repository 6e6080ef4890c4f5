package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

// Version is the OpenAPI version written to every compiled document.
const Version = "3.0.0"

// Document represents the root of an OpenAPI v3.0 document.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Servers    []Server             `json:"servers"`
	Tags       []Tag                `json:"tags"`
	Paths      map[string]*PathItem `json:"paths"`
	Components Components           `json:"components"`
}

// Info provides metadata about the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
type Info struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	TermsOfService string   `json:"termsOfService,omitempty"`
	Contact        *Contact `json:"contact,omitempty"`
	License        *License `json:"license,omitempty"`
	Version        string   `json:"version"`
}

// Contact represents contact information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#contact-object
type Contact struct {
	Name  string `json:"name,omitempty"`
	URL   string `json:"url,omitempty"`
	Email string `json:"email,omitempty"`
}

// License represents license information for the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#license-object
type License struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Server represents a server.
//
// See: https://spec.openapis.org/oas/v3.0.3#server-object
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// PathItem describes the operations available on a single path.
//
// See: https://spec.openapis.org/oas/v3.0.3#path-item-object
type PathItem struct {
	Get     *Operation `json:"get,omitempty"`
	Put     *Operation `json:"put,omitempty"`
	Post    *Operation `json:"post,omitempty"`
	Delete  *Operation `json:"delete,omitempty"`
	Options *Operation `json:"options,omitempty"`
	Head    *Operation `json:"head,omitempty"`
	Patch   *Operation `json:"patch,omitempty"`
	Trace   *Operation `json:"trace,omitempty"`
}

// Operation returns the operation stored for method, or nil.
func (p *PathItem) Operation(method string) *Operation {
	if slot := p.slot(method); slot != nil {
		return *slot
	}

	return nil
}

// SetOperation stores op for method. It reports false when the method has
// no Path Item field.
func (p *PathItem) SetOperation(method string, op *Operation) bool {
	slot := p.slot(method)
	if slot == nil {
		return false
	}

	*slot = op

	return true
}

// Operations returns the operations of the path item keyed by lower-case
// method name.
func (p *PathItem) Operations() map[string]*Operation {
	out := make(map[string]*Operation)

	for _, m := range []string{
		http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete,
		http.MethodOptions, http.MethodHead, http.MethodPatch, http.MethodTrace,
	} {
		if op := p.Operation(m); op != nil {
			out[lowerMethod(m)] = op
		}
	}

	return out
}

func (p *PathItem) slot(method string) **Operation {
	switch method {
	case http.MethodGet:
		return &p.Get
	case http.MethodPut:
		return &p.Put
	case http.MethodPost:
		return &p.Post
	case http.MethodDelete:
		return &p.Delete
	case http.MethodOptions:
		return &p.Options
	case http.MethodHead:
		return &p.Head
	case http.MethodPatch:
		return &p.Patch
	case http.MethodTrace:
		return &p.Trace
	}

	return nil
}

// Operation describes a single API operation on a path.
//
// See: https://spec.openapis.org/oas/v3.0.3#operation-object
type Operation struct {
	Tags        []string             `json:"tags,omitempty"`
	Summary     string               `json:"summary,omitempty"`
	Description string               `json:"description,omitempty"`
	Parameters  []*Parameter         `json:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses"`
}

// Parameter describes a single operation parameter.
//
// See: https://spec.openapis.org/oas/v3.0.3#parameter-object
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody describes a single request body.
//
// See: https://spec.openapis.org/oas/v3.0.3#request-body-object
type RequestBody struct {
	Description string                `json:"description,omitempty"`
	Required    bool                  `json:"required"`
	Content     map[string]*MediaType `json:"content"`
}

// Response describes a single response from an API operation.
//
// See: https://spec.openapis.org/oas/v3.0.3#response-object
type Response struct {
	Description string                `json:"description"`
	Content     map[string]*MediaType `json:"content,omitempty"`
}

// MediaType describes a media type with a schema.
//
// See: https://spec.openapis.org/oas/v3.0.3#media-type-object
type MediaType struct {
	Schema  *Schema `json:"schema,omitempty"`
	Example any     `json:"example,omitempty"`
}

// Required holds either the list of required property names of an object
// schema or a per-property boolean flag. Form rewriting marks replaced
// properties with a boolean flag.
type Required struct {
	fields []string
	flag   *bool
}

// RequiredFields creates a Required holding property names.
func RequiredFields(names ...string) Required {
	return Required{fields: names}
}

// RequiredFlag creates a Required holding a boolean flag.
func RequiredFlag(v bool) Required {
	return Required{flag: &v}
}

// Fields returns the required property names.
func (r Required) Fields() []string {
	return r.fields
}

// Flag returns the boolean flag and whether it is set.
func (r Required) Flag() (bool, bool) {
	if r.flag == nil {
		return false, false
	}

	return *r.flag, true
}

// Contains reports whether name is in the required property list.
func (r Required) Contains(name string) bool {
	for _, f := range r.fields {
		if f == name {
			return true
		}
	}

	return false
}

// IsZero implements the yaml.v3 IsZeroer interface and backs omitzero.
func (r Required) IsZero() bool {
	return r.flag == nil && len(r.fields) == 0
}

// MarshalJSON encodes the flag as a JSON boolean or the fields as an array.
func (r Required) MarshalJSON() ([]byte, error) {
	if r.flag != nil {
		return json.Marshal(*r.flag)
	}

	return json.Marshal(r.fields)
}

// UnmarshalJSON decodes either a JSON boolean or an array of names.
func (r *Required) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		r.flag = &flag
		r.fields = nil
		return nil
	}

	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("required: %w", err)
	}

	r.fields = fields
	r.flag = nil

	return nil
}

// MarshalYAML encodes the flag as a YAML boolean or the fields as a sequence.
func (r Required) MarshalYAML() (any, error) {
	if r.flag != nil {
		return *r.flag, nil
	}

	return r.fields, nil
}

// UnmarshalYAML decodes either a YAML boolean or a sequence of names.
func (r *Required) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var flag bool
		if err := node.Decode(&flag); err != nil {
			return err
		}

		r.flag = &flag
		r.fields = nil

		return nil
	case yaml.SequenceNode:
		var fields []string
		if err := node.Decode(&fields); err != nil {
			return err
		}

		r.fields = fields
		r.flag = nil

		return nil
	default:
		return fmt.Errorf("unsupported YAML node kind %d for Required", node.Kind)
	}
}

// Schema represents an OpenAPI 3.0 Schema Object, an extended subset of
// JSON Schema Wright Draft 00.
//
// See: https://spec.openapis.org/oas/v3.0.3#schema-object
type Schema struct {
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	Example     any    `json:"example,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
	ReadOnly    bool   `json:"readOnly,omitempty"`
	WriteOnly   bool   `json:"writeOnly,omitempty"`

	// Numeric constraints.
	MultipleOf *float64 `json:"multipleOf,omitempty"`
	Minimum    *float64 `json:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty"`

	// String constraints.
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Array constraints.
	Items       *Schema `json:"items,omitempty"`
	MinItems    *int    `json:"minItems,omitempty"`
	MaxItems    *int    `json:"maxItems,omitempty"`
	UniqueItems bool    `json:"uniqueItems,omitempty"`

	// Object constraints.
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Required             Required           `json:"required,omitzero" yaml:"required,omitempty"`

	Enum  []any     `json:"enum,omitempty"`
	AllOf []*Schema `json:"allOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
}

// Components holds reusable objects. Compiled documents keep schemas inline,
// so Schemas is always present but empty.
//
// See: https://spec.openapis.org/oas/v3.0.3#components-object
type Components struct {
	Schemas map[string]*Schema `json:"schemas"`
}

// Tag adds metadata to a single tag used by Operation Objects.
//
// See: https://spec.openapis.org/oas/v3.0.3#tag-object
type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// JSON returns the indented JSON encoding of the document.
func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// YAML returns the YAML encoding of the document. The JSON encoding is
// decoded into a yaml.Node first so key names and order follow the JSON
// field tags.
func (d *Document) YAML() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert document to yaml: %w", err)
	}

	return yaml.Marshal(&node)
}
