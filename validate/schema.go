// Package validate binds declarative request schemas to routes.
//
// A schema is a struct whose fields are request sections, identified by
// their json names: "params", "query", "body" and "formData".
//
//	type UpdateUser struct {
//	    Params struct {
//	        ID string `json:"id" validate:"required,uuid"`
//	    } `json:"params"`
//	    Body struct {
//	        Email  string `json:"email" validate:"required,email"`
//	        Active *bool  `json:"active" default:"true"`
//	    } `json:"body"`
//	}
//
//	schema := validate.MustNew[UpdateUser]()
//	r.With(validate.Request(schema)).Put("/users/:id", update)
//
// Request decodes each section, applies `default` tag values, runs
// go-playground/validator rules and stores the result in the request
// context for the handler:
//
//	in, _ := validate.Parsed[UpdateUser](r)
//
// The same schema is exposed to documentation tooling through Shape.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotStruct is returned when a schema type is not a struct.
var ErrNotStruct = errors.New("validate: schema type must be a struct")

// Section names.
const (
	SectionParams   = "params"
	SectionQuery    = "query"
	SectionBody     = "body"
	SectionFormData = "formData"
)

var sectionNames = []string{SectionParams, SectionQuery, SectionBody, SectionFormData}

// Schema describes the sections of a request.
type Schema struct {
	typ      reflect.Type
	sections map[string]int
}

// New builds the schema of T.
func New[T any]() (*Schema, error) {
	return Of(reflect.TypeFor[T]())
}

// MustNew is like New but panics on error.
func MustNew[T any]() *Schema {
	s, err := New[T]()
	if err != nil {
		panic(err)
	}

	return s
}

// Of builds the schema of a struct type.
func Of(t reflect.Type) (*Schema, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}

	s := &Schema{typ: t, sections: make(map[string]int)}

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := sectionName(field)
		for _, known := range sectionNames {
			if name == known {
				s.sections[name] = i
			}
		}
	}

	return s, nil
}

// sectionName returns the json name of a field, or its Go name with a
// lower-case first letter.
func sectionName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name != "" {
		return name
	}

	return strings.ToLower(field.Name[:1]) + field.Name[1:]
}

// Type returns the schema struct type.
func (s *Schema) Type() reflect.Type {
	return s.typ
}

// Shape returns the type of every declared section keyed by section name.
func (s *Schema) Shape() map[string]reflect.Type {
	out := make(map[string]reflect.Type, len(s.sections))
	for name, idx := range s.sections {
		out[name] = s.typ.Field(idx).Type
	}

	return out
}

// Has reports whether the schema declares section.
func (s *Schema) Has(section string) bool {
	_, ok := s.sections[section]
	return ok
}
