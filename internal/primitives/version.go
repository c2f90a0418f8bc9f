package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion returns schema.Version when set, else the first 8 bytes of
// SHA256 over the schema JSON. Equal schemas always hash to the same version.
func ComputeVersion(schema *Schema) string {
	if schema.Version != "" {
		return schema.Version
	}

	s := *schema
	s.Version = ""
	data, err := json.Marshal(&s)
	if err != nil {
		return "invalid"
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
