package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

var descriptorExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// LoadDir reads descriptors laid out as <dir>/<version>/<model>.{yaml,yml,json}
func LoadDir(dir string) (map[string]map[string]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", dir, err)
	}

	out := make(map[string]map[string]Descriptor)
	for _, vEntry := range entries {
		if !vEntry.IsDir() {
			continue
		}
		version := vEntry.Name()
		files, err := os.ReadDir(filepath.Join(dir, version))
		if err != nil {
			return nil, fmt.Errorf("metadata: read %s: %w", version, err)
		}
		for _, f := range files {
			ext := filepath.Ext(f.Name())
			if f.IsDir() || !descriptorExts[ext] {
				continue
			}
			model := strings.TrimSuffix(f.Name(), ext)
			d, err := LoadFile(filepath.Join(dir, version, f.Name()))
			if err != nil {
				return nil, err
			}
			if out[version] == nil {
				out[version] = make(map[string]Descriptor)
			}
			if _, dup := out[version][model]; dup {
				return nil, fmt.Errorf("metadata: %s/%s defined in more than one file", version, model)
			}
			out[version][model] = d
		}
	}
	return out, nil
}

// LoadFile parses one YAML or JSON descriptor
func LoadFile(path string) (Descriptor, error) {
	var d Descriptor
	b, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("metadata: %w", err)
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("metadata: parse %s: %w", path, err)
	}
	return d, nil
}

// Decode converts loosely typed configuration values (as produced by a
// config loader) into descriptors keyed by version and model.
func Decode(v interface{}) (map[string]map[string]Descriptor, error) {
	if v == nil {
		return map[string]map[string]Descriptor{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("metadata: encode inline metadata: %w", err)
	}
	out := make(map[string]map[string]Descriptor)
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("metadata: decode inline metadata: %w", err)
	}
	return out, nil
}

// Merge combines descriptor sets; a model defined in more than one set is an error
func Merge(sets ...map[string]map[string]Descriptor) (map[string]map[string]Descriptor, error) {
	out := make(map[string]map[string]Descriptor)
	for _, set := range sets {
		for version, models := range set {
			if out[version] == nil {
				out[version] = make(map[string]Descriptor)
			}
			for name, d := range models {
				if _, dup := out[version][name]; dup {
					return nil, fmt.Errorf("metadata: %s/%s defined more than once", version, name)
				}
				out[version][name] = d
			}
		}
	}
	return out, nil
}
