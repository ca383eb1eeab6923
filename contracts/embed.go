// Package contracts embeds the OpenAPI contract served by the API.
package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// APISpec is the raw contract document.
//
//go:embed api.yaml
var APISpec []byte

// Load parses and validates the embedded contract.
// Servers are cleared so request routing matches on path only.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(APISpec)
	if err != nil {
		return nil, fmt.Errorf("load api contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate api contract: %w", err)
	}
	doc.Servers = nil

	return doc, nil
}
