// Package routefile reads route records from YAML or JSON files. A file
// holds either a single route or a list of routes.
package routefile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dutyplan/core/model"
)

// Load reads every route of the file at path. The format follows the
// extension.
func Load(path string) ([]model.RouteDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	docs, err := Decode(f, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// LoadOne reads a file that must contain exactly one route.
func LoadOne(path string) (model.RouteDocument, error) {
	docs, err := Load(path)
	if err != nil {
		return model.RouteDocument{}, err
	}
	if len(docs) != 1 {
		return model.RouteDocument{}, fmt.Errorf("%s: expected one route, found %d", path, len(docs))
	}
	return docs[0], nil
}

// Decode reads routes from r in the given format ("yaml", "yml" or "json").
func Decode(r io.Reader, format string) ([]model.RouteDocument, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return decodeYAML(b)
	case "json":
		return decodeJSON(b)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func decodeJSON(b []byte) ([]model.RouteDocument, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []model.RouteDocument
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc model.RouteDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return []model.RouteDocument{doc}, nil
}

func decodeYAML(b []byte) ([]model.RouteDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var docs []model.RouteDocument
		if err := node.Decode(&docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc model.RouteDocument
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return []model.RouteDocument{doc}, nil
}
