package types

import (
	"encoding/json"
	"fmt"
)

const primitiveSchemaColumnType = "primitiveSchemaColumn"

type schemaDocument struct {
	Columns []struct {
		Kind string `json:"_type"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"columns"`
}

// ColumnsFromJSON decodes the schema document returned by the engine's SQL schema
// endpoint: {"columns": [{"_type": "primitiveSchemaColumn", "name": ..., "type": ...}]}.
func ColumnsFromJSON(data []byte) ([]Column, error) {
	var doc schemaDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}

	columns := make([]Column, 0, len(doc.Columns))
	for _, c := range doc.Columns {
		if c.Kind != "" && c.Kind != primitiveSchemaColumnType {
			return nil, fmt.Errorf("column '%s': only primitive columns are supported, got %s", c.Name, c.Kind)
		}
		t, err := ParsePrimitiveType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c.Name, err)
		}
		columns = append(columns, NewColumn(c.Name, t))
	}
	return columns, nil
}
