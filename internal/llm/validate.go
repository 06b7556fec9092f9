package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	datasetSchemaOnce sync.Once
	datasetSchema     *jsonschema.Schema
	datasetSchemaErr  error
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema("schema.json", schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

// ValidateDatasetJSON validates data against BuildDatasetJSONSchema, compiled once.
func ValidateDatasetJSON(data []byte) error {
	datasetSchemaOnce.Do(func() {
		datasetSchema, datasetSchemaErr = compileSchema("dataset.json", BuildDatasetJSONSchema())
	})
	if datasetSchemaErr != nil {
		return datasetSchemaErr
	}
	return validateWith(datasetSchema, data)
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
