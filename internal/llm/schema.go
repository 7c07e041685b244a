package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Every canonical field is required; values may be strings, numbers or null.
// Extra properties are allowed because the model also returns the document text.
func BuildInvoiceJSONSchema() map[string]any {
	props := map[string]any{}
	for _, f := range constants.CanonicalFields() {
		props[f] = map[string]any{"type": []string{"string", "number", "null"}}
	}
	props[constants.FieldTrackingNumber] = map[string]any{"type": []string{"string", "null"}}

	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
		"required":   constants.CanonicalFields(),
	}
}

// CompileSchema compiles a schema map once so it can validate many documents.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// SchemaParser is the structured-output mode: it decodes with Base and then requires the
// object to match a JSON Schema, so a non-compliant reply is retried instead of exported.
type SchemaParser struct {
	Base   ResponseParser
	schema *jsonschema.Schema
}

// NewSchemaParser compiles schemaMap; a nil base defaults to GreedyParser.
func NewSchemaParser(base ResponseParser, schemaMap map[string]any) (*SchemaParser, error) {
	if base == nil {
		base = GreedyParser{}
	}
	s, err := CompileSchema(schemaMap)
	if err != nil {
		return nil, err
	}
	return &SchemaParser{Base: base, schema: s}, nil
}

func (p *SchemaParser) Parse(raw string) (map[string]any, error) {
	m, err := p.Base.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := p.schema.Validate(map[string]any(m)); err != nil {
		return nil, &common.ParseError{Reason: "json does not match schema", Err: err}
	}
	return m, nil
}
