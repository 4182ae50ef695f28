package model

import (
	"encoding/json"
	"fmt"
)

// fieldDefinitionJSON mirrors FieldDefinition without methods so decoding does
// not recurse into UnmarshalJSON.
type fieldDefinitionJSON FieldDefinition

// UnmarshalJSON decodes a field definition and rejects payloads inconsistent
// with the type tag. The JSON shape round-trips losslessly: arrays stay
// ordered and the discriminated payloads stay consistent with their tag.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var raw fieldDefinitionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: decode field definition: %w", err)
	}
	decoded := FieldDefinition(raw)
	if decoded.Type.Known() {
		if err := decoded.checkStrayPayloads(); err != nil {
			return err
		}
	}
	*f = decoded
	return nil
}
