package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds an OpenAPI 3.0 document from the routes registered on an
// echo instance. Only paths under prefix are described.
type Generator struct {
	routes  func() []*echo.Route
	version string
	prefix  string
}

// NewGenerator creates a generator. Pass e.Routes so the document reflects
// routes registered after construction.
func NewGenerator(routes func() []*echo.Route, version, prefix string) *Generator {
	return &Generator{routes: routes, version: version, prefix: strings.TrimRight(prefix, "/")}
}

var documented = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true,
}

// GenerateSpec produces the OpenAPI document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	routes := g.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	paths := make(map[string]map[string]interface{})
	tagSet := map[string]bool{}
	for _, r := range routes {
		if !documented[r.Method] || !strings.HasPrefix(r.Path, g.prefix+"/") || strings.Contains(r.Path, "*") {
			continue
		}
		rel := strings.TrimPrefix(r.Path, g.prefix)
		path, params := openAPIPath(rel)
		tag := strings.SplitN(strings.TrimPrefix(rel, "/"), "/", 2)[0]
		tagSet[tag] = true

		op := map[string]interface{}{
			"summary":     r.Method + " " + path,
			"operationId": operationID(r.Method, rel),
			"tags":        []string{tag},
			"responses":   responsesFor(r.Method),
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			op["requestBody"] = map[string]interface{}{
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{"schema": map[string]string{"type": "object"}},
				},
			}
		}
		if paths[path] == nil {
			paths[path] = map[string]interface{}{}
		}
		paths[path][strings.ToLower(r.Method)] = op
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, map[string]string{"name": t})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i]["name"] < tags[j]["name"] })

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "DentSeq data collection API",
			"version":     g.version,
			"description": "Treatment plans, appointment sequences and review workflow for dental sequencing data",
		},
		"servers": []map[string]string{{"url": g.prefix}},
		"tags":    tags,
		"paths":   paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{"Error": errorSchema()},
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
}

// openAPIPath converts echo ":param" segments to "{param}".
func openAPIPath(p string) (string, []map[string]interface{}) {
	segs := strings.Split(p, "/")
	var params []map[string]interface{}
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			name := s[1:]
			segs[i] = "{" + name + "}"
			params = append(params, map[string]interface{}{
				"name": name, "in": "path", "required": true,
				"schema": map[string]string{"type": "string"},
			})
		}
	}
	return strings.Join(segs, "/"), params
}

func operationID(method, p string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '-' || r == ':' }) {
		b.WriteString(strings.ToUpper(s[:1]) + s[1:])
	}
	return b.String()
}

func responsesFor(method string) map[string]interface{} {
	errRef := map[string]interface{}{
		"description": "Error",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": map[string]string{"$ref": "#/components/schemas/Error"}},
		},
	}
	ok := map[string]interface{}{"description": "OK"}
	switch method {
	case http.MethodDelete:
		return map[string]interface{}{"204": map[string]string{"description": "Deleted"}, "default": errRef}
	case http.MethodPost:
		return map[string]interface{}{"200": ok, "201": map[string]string{"description": "Created"}, "default": errRef}
	}
	return map[string]interface{}{"200": ok, "default": errRef}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error": map[string]string{"type": "string"},
		},
		"required": []string{"error"},
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html>
<head>
  <title>DentSeq API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({ url: "openapi.json", dom_id: "#swagger-ui" });
  </script>
</body>
</html>`

// RegisterRoutes registers the OpenAPI endpoints.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	apiGroup.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
