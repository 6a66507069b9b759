package application

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

//go:embed schemas/events.yaml
var schemaFS embed.FS

const schemaBaseURI = "https://schemas.marketplace.local/webhooks/"

// PayloadSchemas validates mapped payloads against the expected shape of each event.
type PayloadSchemas struct {
	schemas map[domain.EventName]*jsonschema.Schema
}

// LoadPayloadSchemas compiles the embedded per-event schemas.
func LoadPayloadSchemas() (*PayloadSchemas, error) {
	data, err := schemaFS.ReadFile("schemas/events.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read payload schemas: %w", err)
	}
	return compilePayloadSchemas(data)
}

func compilePayloadSchemas(data []byte) (*PayloadSchemas, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse payload schemas: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	uris := make(map[domain.EventName]string, len(raw))
	for name, schema := range raw {
		// yaml -> json -> jsonschema document
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		uri := schemaBaseURI + strings.ReplaceAll(name, " ", "-") + ".json"
		if err := compiler.AddResource(uri, doc); err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		uris[domain.EventName(name)] = uri
	}

	schemas := make(map[domain.EventName]*jsonschema.Schema, len(uris))
	for name, uri := range uris {
		compiled, err := compiler.Compile(uri)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
		}
		schemas[name] = compiled
	}
	return &PayloadSchemas{schemas: schemas}, nil
}

// Validate checks the payload against the schema registered for event.
// Events without a schema pass.
func (p *PayloadSchemas) Validate(event domain.EventName, payload map[string]any) error {
	if p == nil {
		return nil
	}
	schema, ok := p.schemas[event]
	if !ok {
		return nil
	}

	// Round-trip so the instance only holds jsonschema-compatible types
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("invalid %s payload: %w", event, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid %s payload: %w", event, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("invalid %s payload: %w", event, err)
	}
	return nil
}

// Has reports whether a schema exists for event
func (p *PayloadSchemas) Has(event domain.EventName) bool {
	_, ok := p.schemas[event]
	return ok
}

// decodePayload converts a validated payload into a typed struct.
func decodePayload(payload map[string]any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
