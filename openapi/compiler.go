package openapi

import (
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LocalhostServer is the server name meaning "no public URL configured".
// Compiled documents then point at http://localhost:<port>.
const LocalhostServer = "localhost"

// Default document metadata, overridden field by field by caller info.
const (
	DefaultTitle       = "Auto-Generated API Documentation"
	DefaultVersion     = "1.0.0"
	DefaultDescription = "API documentation generated from registered routes and validation schemas"
)

var pathParamPattern = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

var actions = map[string]string{
	http.MethodGet:    "Get",
	http.MethodPost:   "Create",
	http.MethodPut:    "Update",
	http.MethodPatch:  "Modify",
	http.MethodDelete: "Delete",
}

// Compiler turns a route catalogue into an OpenAPI document.
//
// Converter renders request sections into schemas. When it is nil the
// compiler degrades to string parameters and untyped object bodies.
// Logger receives per-route diagnostics; nil means slog.Default().
type Compiler struct {
	Converter Converter
	Logger    *slog.Logger
}

// NewCompiler returns a compiler using the reflection SchemaGenerator.
func NewCompiler(logger *slog.Logger) *Compiler {
	return &Compiler{
		Converter: NewSchemaGenerator(),
		Logger:    logger,
	}
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

// Compile builds the document for cat. info is shallow-merged over the
// default metadata. serverURL is used verbatim when it carries a scheme,
// prefixed with https:// when it does not, and replaced by
// http://localhost:<port> when it is LocalhostServer or empty.
//
// A failure while reading the schema of one route is logged and leaves that
// route without parameters and request body; it never aborts compilation.
func (c *Compiler) Compile(cat Catalogue, info Info, serverURL string, port int) *Document {
	doc := &Document{
		OpenAPI: Version,
		Info:    mergeInfo(info),
		Servers: []Server{{
			URL:         ServerURL(serverURL, port),
			Description: "Development server",
		}},
		Tags:       []Tag{},
		Paths:      make(map[string]*PathItem),
		Components: Components{Schemas: make(map[string]*Schema)},
	}

	for _, group := range cat.Groups {
		tag := TagFor(group.Key)
		doc.Tags = append(doc.Tags, tag)

		for _, rec := range group.Routes {
			c.compileRoute(doc, rec, tag.Name)
		}
	}

	RewriteFileFields(doc)

	return doc
}

func (c *Compiler) compileRoute(doc *Document, rec RouteRecord, tag string) {
	template := ConvertPath(rec.Path)
	if template == "" {
		template = "/"
	}

	item := doc.Paths[template]
	if item == nil {
		item = &PathItem{}
	}

	for _, method := range rec.Methods {
		method = strings.ToUpper(method)
		if method == http.MethodHead || method == http.MethodOptions {
			continue
		}

		summary := Summary(method, template)
		op := &Operation{
			Tags:        []string{tag},
			Summary:     summary,
			Description: summary + " endpoint for " + template,
			Responses: map[string]*Response{
				"200": {Description: "Successful response"},
				"400": {Description: "Bad Request"},
				"500": {Description: "Internal Server Error"},
			},
		}

		if len(rec.Schemas) > 0 {
			if err := c.enrich(op, method, template, rec.Schemas[0]); err != nil {
				c.logger().Warn("skipping request schema",
					"path", template,
					"method", method,
					"error", err,
				)
			}
		}

		if !item.SetOperation(method, op) {
			c.logger().Warn("method has no openapi operation field",
				"path", template,
				"method", method,
			)
		}
	}

	if len(item.Operations()) > 0 {
		doc.Paths[template] = item
	}
}

// enrich adds parameters and a request body derived from schema. On error
// op is left untouched.
func (c *Compiler) enrich(op *Operation, method, template string, schema any) (err error) {
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("panic: %v", rv)
		}
	}()

	var params []*Parameter

	var paramsSchema *Schema
	if t, ok := SectionOf(schema, SectionParams); ok {
		if paramsSchema, err = c.convert(t); err != nil {
			return fmt.Errorf("params: %w", err)
		}
	}

	for _, name := range PathParams(template) {
		ps := &Schema{Type: "string"}
		if paramsSchema != nil {
			if prop, ok := paramsSchema.Properties[name]; ok && prop != nil {
				ps = cleanParamSchema(prop)
			}
		}

		params = append(params, &Parameter{Name: name, In: "path", Required: true, Schema: ps})
	}

	if t, ok := SectionOf(schema, SectionQuery); ok {
		query, err := c.convert(t)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		if query != nil {
			for _, name := range slices.Sorted(maps.Keys(query.Properties)) {
				params = append(params, &Parameter{
					Name:     name,
					In:       "query",
					Required: query.Required.Contains(name),
					Schema:   cleanParamSchema(query.Properties[name]),
				})
			}
		}
	}

	var body *RequestBody

	if isMutating(method) {
		if t, ok := SectionOf(schema, SectionBody); ok {
			s, err := c.convertBody(t)
			if err != nil {
				return fmt.Errorf("body: %w", err)
			}

			body = &RequestBody{
				Required: true,
				Content:  map[string]*MediaType{"application/json": {Schema: s}},
			}
		} else if t, ok := SectionOf(schema, SectionFormData); ok {
			s, err := c.convertBody(t)
			if err != nil {
				return fmt.Errorf("formData: %w", err)
			}

			body = &RequestBody{
				Required: false,
				Content:  map[string]*MediaType{multipartForm: {Schema: s}},
			}
		}
	}

	op.Parameters = DedupeParameters(params)
	op.RequestBody = body

	return nil
}

// convert renders t, returning nil without error when no converter is set.
func (c *Compiler) convert(t reflect.Type) (*Schema, error) {
	if c.Converter == nil {
		return nil, nil
	}

	return c.Converter.Convert(t)
}

func (c *Compiler) convertBody(t reflect.Type) (*Schema, error) {
	s, err := c.convert(t)
	if err != nil {
		return nil, err
	}

	if s == nil {
		return &Schema{Type: "object"}, nil
	}

	return valueSchema(s), nil
}

// cleanParamSchema copies a property schema for use as a parameter schema.
// Objects without properties cannot be expressed as a parameter and
// degrade to strings.
func cleanParamSchema(s *Schema) *Schema {
	if s == nil {
		return &Schema{Type: "string"}
	}

	out := *valueSchema(s)
	if out.Type == "object" && len(out.Properties) == 0 {
		return &Schema{Type: "string"}
	}

	out.Required = Required{}
	if s.Nullable {
		out.Nullable = true
	}

	return &out
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// ConvertPath rewrites ":name" placeholders into OpenAPI "{name}" form.
func ConvertPath(path string) string {
	return pathParamPattern.ReplaceAllString(path, "{$1}")
}

// PathParams returns the parameter names of an OpenAPI path template in
// order of appearance.
func PathParams(template string) []string {
	var names []string

	for seg := range strings.SplitSeq(template, "/") {
		for {
			start := strings.IndexByte(seg, '{')
			if start < 0 {
				break
			}

			end := strings.IndexByte(seg[start:], '}')
			if end < 0 {
				break
			}

			names = append(names, seg[start+1:start+end])
			seg = seg[start+end+1:]
		}
	}

	return names
}

// Summary returns "<Action> <resource>" for a method and path template.
// The resource is the last path segment that is not a parameter, or
// "resource" when there is none.
func Summary(method, template string) string {
	action, ok := actions[method]
	if !ok {
		action = method
	}

	return action + " " + resourceName(template)
}

func resourceName(template string) string {
	segments := strings.Split(template, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || strings.HasPrefix(seg, "{") || strings.HasPrefix(seg, ":") {
			continue
		}

		return seg
	}

	return "resource"
}

// TagFor returns the tag describing a catalogue group.
func TagFor(groupKey string) Tag {
	name := strings.Replace(groupKey, "/", "", 1)
	if name == "" {
		name = "default"
	}

	return Tag{
		Name:        name,
		Description: cases.Title(language.English).String(groupKey) + " related endpoints",
	}
}

// ServerURL resolves the public server URL of a compiled document.
func ServerURL(serverURL string, port int) string {
	switch {
	case serverURL == "" || serverURL == LocalhostServer:
		return "http://localhost:" + strconv.Itoa(port)
	case !strings.HasPrefix(serverURL, "http"):
		return "https://" + serverURL
	default:
		return serverURL
	}
}

func mergeInfo(info Info) Info {
	out := Info{
		Title:       DefaultTitle,
		Version:     DefaultVersion,
		Description: DefaultDescription,
	}

	if info.Title != "" {
		out.Title = info.Title
	}

	if info.Version != "" {
		out.Version = info.Version
	}

	if info.Description != "" {
		out.Description = info.Description
	}

	if info.TermsOfService != "" {
		out.TermsOfService = info.TermsOfService
	}

	if info.Contact != nil {
		out.Contact = info.Contact
	}

	if info.License != nil {
		out.License = info.License
	}

	return out
}

func lowerMethod(method string) string {
	return strings.ToLower(method)
}
