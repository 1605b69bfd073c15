// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"
)

// Decode parses a JSON or YAML catalog into an ordered node tree.
// An empty input decodes to an empty node, which Build rejects.
func Decode(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &doc, nil
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (*yaml.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Decode(data)
}

// DecodeFile reads and decodes the catalog at path.
func DecodeFile(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Decode(data)
}
