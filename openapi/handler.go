package openapi

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// HandleConfig configures the endpoints registered by Handle.
type HandleConfig struct {
	// Title overrides the HTML page title (default: document info.title).
	Title string

	// JSONFilename is the path for the JSON document endpoint
	// (default: "openapi.json"). Set to "-" to disable. Relative paths are
	// joined with the base path, absolute paths are used as-is.
	JSONFilename string

	// YAMLFilename is the path for the YAML document endpoint
	// (default: "openapi.yaml"). Set to "-" to disable.
	YAMLFilename string

	// DisableDocs disables the Swagger UI page.
	DisableDocs bool
}

func (cfg HandleConfig) jsonFilename() string {
	if cfg.JSONFilename == "" {
		return "openapi.json"
	}

	return cfg.JSONFilename
}

func (cfg HandleConfig) yamlFilename() string {
	if cfg.YAMLFilename == "" {
		return "openapi.yaml"
	}

	return cfg.YAMLFilename
}

// resolvePath returns the full route path for a filename.
func resolvePath(basePath, filename string) string {
	if strings.HasPrefix(filename, "/") {
		return filename
	}

	return basePath + "/" + filename
}

// Handle registers GET routes serving doc under basePath:
//
//	<basePath>/             - Swagger UI (unless DisableDocs)
//	<basePath>/openapi.json - document as JSON
//	<basePath>/openapi.yaml - document as YAML
//
// The document is serialized once, on first request. cfg may be nil.
func Handle(r *mux.Router, basePath string, doc *Document, cfg *HandleConfig) {
	if cfg == nil {
		cfg = &HandleConfig{}
	}

	basePath = strings.TrimRight(basePath, "/")

	var jsonPath, yamlPath string

	if f := cfg.jsonFilename(); f != "-" {
		jsonPath = resolvePath(basePath, f)
		r.Handle(jsonPath, serialized("application/json", func() ([]byte, error) {
			return json.MarshalIndent(doc, "", "  ")
		})).Methods(http.MethodGet)
	}

	if f := cfg.yamlFilename(); f != "-" {
		yamlPath = resolvePath(basePath, f)
		r.Handle(yamlPath, serialized("application/x-yaml", func() ([]byte, error) {
			return yaml.Marshal(doc)
		})).Methods(http.MethodGet)
	}

	specURL := jsonPath
	if specURL == "" {
		specURL = yamlPath
	}

	if cfg.DisableDocs || specURL == "" {
		return
	}

	title := cfg.Title
	if title == "" {
		title = doc.Info.Title
	}

	page := []byte(swaggerUITemplate(title, specURL))
	docs := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})

	r.Handle(basePath+"/", docs).Methods(http.MethodGet)
	if basePath != "" {
		r.Handle(basePath, docs).Methods(http.MethodGet)
	}
}

// serialized serves the output of marshal, computed on first request.
func serialized(contentType string, marshal func() ([]byte, error)) http.Handler {
	var (
		once     sync.Once
		data     []byte
		buildErr error
	)

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		once.Do(func() {
			data, buildErr = marshal()
		})

		if buildErr != nil {
			http.Error(w, "failed to serialize OpenAPI document", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	})
}

func swaggerUITemplate(title, specPath string) string {
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
SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});
</script>
</body>
</html>`, html.EscapeString(title), specPath)
}
