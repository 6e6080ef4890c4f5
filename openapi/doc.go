// Package openapi compiles an OpenAPI v3.0 document from a live router tree
// and the request schemas bound to its routes.
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Pipeline
//
// Documentation is produced in one forward pass:
//
//	cat := openapi.Walk(root)                                   // route catalogue
//	doc := openapi.NewCompiler(logger).Compile(cat, info, "localhost", 3000)
//
// Walk traverses the router depth first. Every leaf becomes a RouteRecord
// carrying its full ":name" path, its uppercased methods and every schema
// exposed by its middlewares. Records are grouped by nesting depth under
// keys of the form "router -- <depth>"; each group becomes one tag.
//
// Compile converts every record into operations:
//
//   - ":id" placeholders become "{id}" path templates.
//   - HEAD and OPTIONS are skipped.
//   - The summary is "<Action> <resource>" (GET Get, POST Create, PUT Update,
//     PATCH Modify, DELETE Delete) where resource is the last static path
//     segment.
//   - Responses 200, 400 and 500 are always declared.
//   - The first schema of a route supplies path parameters (params section),
//     query parameters (query section) and, for POST, PUT and PATCH, either
//     a JSON body (body section) or a multipart body (formData section).
//
// A route whose schema cannot be read or converted is still documented,
// without parameters and request body, and a warning is logged.
//
// # Request Schemas
//
// A request schema is any value implementing Shaper. The validate package
// builds one from a struct whose fields are the request sections:
//
//	type SignupRequest struct {
//	    Body struct {
//	        Email  string `json:"email" validate:"required,email"`
//	        Active *bool  `json:"active" default:"true"`
//	    } `json:"body"`
//	}
//
// Section types are rendered by a Converter. SchemaGenerator, the default,
// reads `json`, `validate`, `openapi` and `default` struct tags and keeps
// every schema inline, so components.schemas stays empty.
//
// # Multipart Forms
//
// After compilation RewriteFileFields replaces file descriptor properties of
// multipart bodies with {type: string, format: binary, required: false} and
// other array properties with {type: string, default: []}.
//
// # Serving
//
// Handle registers the JSON, YAML and interactive UI endpoints:
//
//	openapi.Handle(r, "/docs", doc, nil)
//	// /docs               -> Swagger UI
//	// /docs/swagger.json  -> JSON document
//	// /docs/swagger.yaml  -> YAML document
package openapi
