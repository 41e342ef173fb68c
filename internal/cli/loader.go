package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/plantops/engine/internal/logic"
)

// LoadDiagram reads a diagram file. Files ending in .yaml or .yml are YAML,
// anything else is the JSON form the server stores.
func LoadDiagram(path string) (logic.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return logic.Document{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return logic.Decode(b)
	}
}

// ParseYAML converts a YAML diagram to JSON first, so both formats share
// the lenient numeric decoding of the stored form.
func ParseYAML(b []byte) (logic.Document, error) {
	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return logic.Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		return logic.Decode(nil)
	}
	j, err := json.Marshal(raw)
	if err != nil {
		return logic.Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	return logic.Decode(j)
}
