package sverilog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/morty-hdl/morty/internal/validator"
)

// LoadManifest decodes a JSON bundle-list manifest (spec.md §6) and
// validates it against the CUE contract in internal/validator, using a
// decode-then-validate shape.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	if v, verr := validator.New(); verr == nil {
		if err := v.ValidateJSON(data); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	for i := range m {
		if m[i].Defines == nil {
			m[i].Defines = DefineMap{}
		}
	}
	return m, nil
}

// WriteManifest validates and writes the retained-file manifest emitted by
// C7 (spec.md §4.7).
func WriteManifest(path string, m Manifest) error {
	if v, verr := validator.New(); verr == nil {
		if err := v.Validate(m); err != nil {
			return fmt.Errorf("emitted manifest failed its own schema: %w", err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	data = append(data, '\n')

	return writeFileAtomic(path, data)
}
