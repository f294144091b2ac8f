package fields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// payloadSchema constrains what we accept from the external extraction
// service: an array of {label, value} objects, nothing else.
const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "additionalProperties": false,
    "properties": {
      "label": {"type": "string", "minLength": 1},
      "value": {"type": "string"}
    },
    "required": ["label", "value"]
  }
}`

var compiledSchema = jsonschema.MustCompileString("fields.json", payloadSchema)

// DecodePairs validates raw JSON against the extraction payload schema
// and decodes it into pairs.
func DecodePairs(raw []byte) ([]Pair, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("fields: decode payload: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("fields: payload schema: %w", err)
	}
	var pairs []Pair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("fields: unmarshal pairs: %w", err)
	}
	return pairs, nil
}
