package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"forest-machine-map/pkg/machines"
)

// document is the object form of a catalog file: {"machines": [...]}.
type document struct {
	Machines []machines.Record `json:"machines" yaml:"machines"`
}

// ReadFile reads a catalog file. The format follows the extension:
// .yaml/.yml for YAML, anything else for JSON.
func ReadFile(path string) ([]machines.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	}
	return DecodeJSON(data)
}

// DecodeJSON accepts either a list of records or a {"machines": [...]} object.
func DecodeJSON(data []byte) ([]machines.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []machines.Record
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse catalog json: %w", err)
		}
		return list, nil
	}
	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}
	return doc.Machines, nil
}

// DecodeYAML accepts either a sequence of records or a mapping with a
// machines key.
func DecodeYAML(data []byte) ([]machines.Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []machines.Record
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("parse catalog yaml: %w", err)
		}
		return list, nil
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return doc.Machines, nil
}
