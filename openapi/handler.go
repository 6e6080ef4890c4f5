package openapi

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/vitalvas/fastapify/router"
)

// DocsUI selects which interactive documentation UI to serve.
type DocsUI int

const (
	DocsSwaggerUI DocsUI = iota
	DocsRapiDoc
	DocsRedoc
)

// ParseDocsUI maps a UI name ("swagger", "rapidoc", "redoc") to a DocsUI.
// Unknown names select Swagger UI.
func ParseDocsUI(name string) DocsUI {
	switch strings.ToLower(name) {
	case "rapidoc":
		return DocsRapiDoc
	case "redoc":
		return DocsRedoc
	default:
		return DocsSwaggerUI
	}
}

// DefaultDocsTitle is the HTML page title of the docs UI.
const DefaultDocsTitle = "API Documentation"

// HandleConfig configures the endpoints registered by Handle.
type HandleConfig struct {
	// UI selects the interactive docs UI (default: DocsSwaggerUI).
	UI DocsUI

	// Title overrides the HTML page title (default: DefaultDocsTitle).
	Title string

	// SwaggerUIConfig replaces the default SwaggerUIBundle options
	// (docExpansion "list", filter, showRequestHeaders, withCredentials).
	//
	// See: https://swagger.io/docs/open-source-tools/swagger-ui/usage/configuration/
	SwaggerUIConfig map[string]any
}

func defaultSwaggerUIConfig() map[string]any {
	return map[string]any{
		"docExpansion":       "list",
		"filter":             true,
		"showRequestHeaders": true,
		"withCredentials":    true,
	}
}

// Handle registers the documentation endpoints for doc under route:
//
//	<route>               - interactive HTML docs
//	<route>/              - interactive HTML docs
//	<route>/swagger.json  - document as JSON
//	<route>/swagger.yaml  - document as YAML
//
// Both encodings are produced once, up front; doc must not change afterwards.
func Handle(r *router.Router, route string, doc *Document, cfg *HandleConfig) error {
	if cfg == nil {
		cfg = &HandleConfig{}
	}

	jsonData, err := doc.JSON()
	if err != nil {
		return fmt.Errorf("encode document as json: %w", err)
	}

	yamlData, err := doc.YAML()
	if err != nil {
		return fmt.Errorf("encode document as yaml: %w", err)
	}

	base := strings.TrimRight(route, "/")
	jsonPath := base + "/swagger.json"

	r.Get(jsonPath, rawHandler("application/json", jsonData))
	r.Get(base+"/swagger.yaml", rawHandler("application/x-yaml", yamlData))

	title := cfg.Title
	if title == "" {
		title = DefaultDocsTitle
	}

	var page string
	switch cfg.UI {
	case DocsRapiDoc:
		page = rapidocTemplate(title, jsonPath)
	case DocsRedoc:
		page = redocTemplate(title, jsonPath)
	default:
		uiConfig := cfg.SwaggerUIConfig
		if uiConfig == nil {
			uiConfig = defaultSwaggerUIConfig()
		}

		page = swaggerUITemplate(title, jsonPath, uiConfig)
	}

	ui := rawHandler("text/html; charset=utf-8", []byte(page))
	if base == "" {
		r.Get("/", ui)
	} else {
		r.Get(base, ui)
		r.Get(base+"/", ui)
	}

	return nil
}

func rawHandler(contentType string, data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func swaggerUITemplate(title, specPath string, config map[string]any) string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var extra strings.Builder
	for _, k := range keys {
		v, err := json.Marshal(config[k])
		if err != nil {
			continue
		}
		fmt.Fprintf(&extra, ", %s: %s", k, v)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"%s});
</script>
</body>
</html>`, html.EscapeString(title), specPath, extra.String())
}

func rapidocTemplate(title, specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%s</title>
<script type="module" src="https://unpkg.com/rapidoc/dist/rapidoc-min.js"></script>
</head>
<body>
<rapi-doc spec-url=%q render-style="read"></rapi-doc>
</body>
</html>`, html.EscapeString(title), specPath)
}

func redocTemplate(title, specPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%s</title>
</head>
<body>
<redoc spec-url=%q></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`, html.EscapeString(title), specPath)
}
