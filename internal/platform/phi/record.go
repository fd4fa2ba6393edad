package phi

import (
	"encoding/json"
	"fmt"
)

// EncryptEntityFields returns a copy of record with every PHI field of
// entityType replaced by its encrypted form. Non-PHI keys — including keys
// of entity types with no configured PHI fields — pass through verbatim.
// Nil values are left untouched.
func (c *Codec) EncryptEntityFields(record map[string]any, entityType string, phiMap *EntityPHIMap) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if value == nil || !phiMap.IsPHI(entityType, key) {
			out[key] = value
			continue
		}

		encrypted, err := c.EncryptField(stringifyValue(value))
		if err != nil {
			return nil, fmt.Errorf("phi: encrypt %s.%s: %w", entityType, key, err)
		}
		out[key] = encrypted
	}
	return out, nil
}

// DecryptEntityFields is the inverse of EncryptEntityFields. Unreadable PHI
// values degrade to empty strings (the codec's fail-soft policy) so one
// corrupt field does not abort the whole record read.
func (c *Codec) DecryptEntityFields(record map[string]any, entityType string, phiMap *EntityPHIMap) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if value == nil || !phiMap.IsPHI(entityType, key) {
			out[key] = value
			continue
		}

		encrypted, ok := value.(string)
		if !ok {
			// A PHI column holding a non-string was never encrypted by us.
			out[key] = value
			continue
		}
		out[key] = c.DecryptField(encrypted)
	}
	return out
}

// stringifyValue renders a field value for encryption. Strings pass through;
// other types are JSON-encoded so the stored form is unambiguous.
func stringifyValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}
