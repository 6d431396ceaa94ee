// Package fieldmap holds the label to id mappings used when reading and writing Testmo
// case fields. The defaults are embedded; a YAML file may replace them.
package fieldmap

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultMappings []byte

// ErrUnknownField is returned when a mapping section does not exist.
var ErrUnknownField = errors.New("unknown field")

// Mappings maps a field name to its section: label->id pairs, tag categories or defaults.
type Mappings map[string]any

// Defaults returns the embedded mappings.
func Defaults() Mappings {
	m, err := Parse(defaultMappings)
	if err != nil {
		// embedded file is part of the build
		panic(fmt.Sprintf("invalid embedded field mappings: %v", err))
	}
	return m
}

// Parse decodes a mappings document.
func Parse(data []byte) (Mappings, error) {
	var m Mappings
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("error parsing field mappings YAML: %w", err)
	}
	if len(m) == 0 {
		return nil, errors.New("field mappings document is empty")
	}
	return m, nil
}

// Load reads mappings from path. An empty path selects the embedded defaults; an
// unreadable or invalid file falls back to them with a warning.
func Load(path string) Mappings {
	if path == "" {
		return Defaults()
	}
	data, err := os.ReadFile(path)
	if err == nil {
		var m Mappings
		if m, err = Parse(data); err == nil {
			slog.Info("Loaded field mappings", "path", path, "fields", len(m))
			return m
		}
	}
	slog.Warn("Falling back to embedded field mappings", "path", path, "error", err)
	return Defaults()
}

// Fields lists the section names in sorted order.
func (m Mappings) Fields() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Section returns a single mapping section.
func (m Mappings) Section(field string) (any, error) {
	section, ok := m[field]
	if !ok {
		return nil, fmt.Errorf("%w %q, known fields: %v", ErrUnknownField, field, m.Fields())
	}
	return section, nil
}

// Lookup resolves a label to its id within a label->id section.
func (m Mappings) Lookup(field, label string) (int64, bool) {
	section, ok := m[field].(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := section[label].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case uint64:
		return int64(v), true //nolint:gosec
	default:
		return 0, false
	}
}
