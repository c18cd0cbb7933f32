package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names.
const (
	keySchemaVersion = "schema_version"
	keyScheduler     = "scheduler"
	keyWindow        = "window"
	keyContent       = "content"
	keyLogging       = "logging"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keySchemaVersion: true,
	keyScheduler:     true,
	keyWindow:        true,
	keyContent:       true,
	keyLogging:       true,
}

// MergeYAMLFile reads the YAML file at path and merges it onto target.
// Errors from reading the file wrap the os error, so errors.Is(err,
// os.ErrNotExist) identifies a missing file.
func MergeYAMLFile(target *Config, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	warnings, err := MergeYAML(target, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return warnings, nil
}

// MergeYAML merges a YAML document onto target. Each top-level section present
// in the document is decoded onto the current value of that section, so keys
// absent from the document keep their current values. Unknown top-level keys
// are skipped and reported as warnings.
func MergeYAML(target *Config, data []byte) ([]string, error) {
	if target == nil {
		return nil, errors.New("nil target *Config in MergeYAML")
	}

	var overlay map[string]yaml.Node
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(overlay))
	for key := range overlay {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		if !knownTopLevelKeys[key] {
			warnings = append(warnings, fmt.Sprintf("unknown config key %q ignored", key))
			continue
		}
		node := overlay[key]
		if err := decodeSection(target, key, &node); err != nil {
			return nil, fmt.Errorf("applying config section %q: %w", key, err)
		}
	}

	return warnings, nil
}

// decodeSection decodes node onto the field of target named by key.
func decodeSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keySchemaVersion:
		return node.Decode(&target.SchemaVersion)
	case keyScheduler:
		return node.Decode(&target.Scheduler)
	case keyWindow:
		return node.Decode(&target.Window)
	case keyContent:
		return node.Decode(&target.Content)
	case keyLogging:
		return node.Decode(&target.Logging)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
