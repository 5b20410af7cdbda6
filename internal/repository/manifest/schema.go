package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	sigsyaml "sigs.k8s.io/yaml"
)

const schemaURL = "brewlite://formula.schema.json"

//go:embed schema.json
var schemaSource string

//nolint:gochecknoglobals // Compiled once on first use.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(schemaURL, schemaSource)
})

// validateStructure checks raw formula bytes against the embedded schema.
func validateStructure(data []byte, format Format) error {
	instance, err := toJSONValue(data, format)
	if err != nil {
		return err
	}

	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile formula schema: %w", err)
	}

	return schema.Validate(instance)
}

// toJSONValue decodes data into the generic value model the validator expects.
func toJSONValue(data []byte, format Format) (any, error) {
	var (
		raw []byte
		err error
	)

	switch format {
	case FormatTOML:
		var tree map[string]any
		if err = toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}

		raw, err = json.Marshal(tree)
	default:
		raw, err = sigsyaml.YAMLToJSON(data)
	}

	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var value any
	if err = json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return value, nil
}
