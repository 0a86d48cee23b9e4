package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/version"
)

//go:embed openapi.json
var rawSpec []byte

var (
	specOnce sync.Once
	specJSON []byte
	specErr  error
)

// spec parses the embedded document once and applies the shared tweaks
func spec() ([]byte, error) {
	specOnce.Do(func() {
		var doc map[string]any
		if specErr = json.Unmarshal(rawSpec, &doc); specErr != nil {
			return
		}
		if info, ok := doc["info"].(map[string]any); ok {
			info["version"] = version.Info("atlas-api").Version
		}
		doc["servers"] = []any{map[string]any{"url": "/api/v1"}}
		addErrorSchema(doc)
		addDefaultResponses(doc)
		specJSON, specErr = json.Marshal(doc)
	})
	return specJSON, specErr
}

func serveDocJSON(w http.ResponseWriter, _ *http.Request) {
	b, err := spec()
	if err != nil {
		http.Error(w, "spec parse error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

func addErrorSchema(doc map[string]any) {
	comps, _ := doc["components"].(map[string]any)
	if comps == nil {
		comps = map[string]any{}
		doc["components"] = comps
	}
	schemas, _ := comps["schemas"].(map[string]any)
	if schemas == nil {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	schemas["ErrorResponse"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer"},
			"status":      map[string]any{"type": "string"},
			"code":        map[string]any{"type": "integer"},
			"error":       map[string]any{"type": "string"},
			"field":       map[string]any{"type": "string"},
			"request_id":  map[string]any{"type": "string"},
		},
		"required": []any{"status_code", "status"},
	}
}

// addDefaultResponses gives every operation a 400 and a 500 error envelope
// unless it documents its own
func addDefaultResponses(doc map[string]any) {
	paths, _ := doc["paths"].(map[string]any)
	ref := func(desc string) map[string]any {
		return map[string]any{
			"description": desc,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				},
			},
		}
	}
	for _, p := range paths {
		ops, _ := p.(map[string]any)
		for _, o := range ops {
			op, _ := o.(map[string]any)
			if op == nil {
				continue
			}
			resps, _ := op["responses"].(map[string]any)
			if resps == nil {
				resps = map[string]any{}
				op["responses"] = resps
			}
			if _, ok := resps["400"]; !ok {
				resps["400"] = ref("Bad Request")
			}
			if _, ok := resps["500"]; !ok {
				resps["500"] = ref("Internal Server Error")
			}
		}
	}
}
