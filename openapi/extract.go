package openapi

import "reflect"

// Section names a part of an HTTP request described by a request schema.
type Section string

// Request schema sections.
const (
	SectionParams   Section = "params"
	SectionQuery    Section = "query"
	SectionBody     Section = "body"
	SectionFormData Section = "formData"
)

// Shaper is implemented by request schemas. Shape returns the Go type
// declared for each present section, keyed by section name.
type Shaper interface {
	Shape() map[string]reflect.Type
}

// SectionOf returns the type declared for a section of schema. Any failure
// to read the shape, including a panic, reports the section as absent.
func SectionOf(schema any, name Section) (t reflect.Type, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = nil, false
		}
	}()

	shaper, isShaper := schema.(Shaper)
	if !isShaper {
		return nil, false
	}

	t, ok = shaper.Shape()[string(name)]
	if !ok || t == nil {
		return nil, false
	}

	return t, true
}
