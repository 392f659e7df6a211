package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	moduleSchemaOnce sync.Once
	moduleSchema     *openapi3.Schema
)

// ModuleSchema is the response contract the model output must satisfy:
// an object with non-empty string title and html and an optional string summary.
func ModuleSchema() *openapi3.Schema {
	moduleSchemaOnce.Do(func() {
		moduleSchema = openapi3.NewObjectSchema().
			WithProperty("title", openapi3.NewStringSchema().WithMinLength(1)).
			WithProperty("summary", openapi3.NewStringSchema().WithNullable()).
			WithProperty("html", openapi3.NewStringSchema().WithMinLength(1)).
			WithRequired([]string{"title", "html"})
	})
	return moduleSchema
}

// ParseResponse decodes the raw model text. Any decoding failure is a
// KindMalformedResponse.
func ParseResponse(raw string) (any, error) {
	var payload any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, &GenerationError{Kind: KindMalformedResponse, Err: err}
	}
	return payload, nil
}

// ValidateModule checks payload against ModuleSchema and normalizes it.
// A missing or null summary becomes "".
func ValidateModule(payload any) (Module, error) {
	if err := ModuleSchema().VisitJSON(payload); err != nil {
		return Module{}, &GenerationError{Kind: KindUnexpectedShape, Err: fmt.Errorf("schema: %w", err), Raw: payload}
	}
	obj := payload.(map[string]any)
	mod := Module{
		Title: obj["title"].(string),
		HTML:  obj["html"].(string),
	}
	if s, ok := obj["summary"].(string); ok {
		mod.Summary = s
	}
	return mod, nil
}
