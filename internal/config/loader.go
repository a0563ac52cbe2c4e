package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// LoadProfile loads a profile from a file.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
//
// name selects an entry of a multi-profile file. It may be empty when the
// file holds a single profile or a single-entry "profiles" map.
func LoadProfile(path, name string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseProfile(data, path, name)
}

// ParseProfile parses profile data. The format is taken from the extension
// of path and defaults to YAML.
func ParseProfile(data []byte, path, name string) (*Profile, error) {
	doc, err := decodeDocument(data, path)
	if err != nil {
		return nil, err
	}

	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	// Re-encode so profile selection and decoding work on canonical JSON
	// whatever the source format was.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}

	selected, selectedName, err := selectProfile(raw, name)
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(selected, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	p.Name = selectedName
	p.ApplyDefaults()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// decodeDocument decodes YAML or JSON into plain JSON values.
func decodeDocument(data []byte, path string) (interface{}, error) {
	var doc interface{}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		var y interface{}
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		// YAML scalars decode to Go ints and the like; the schema validator
		// expects what encoding/json produces.
		b, err := json.Marshal(y)
		if err != nil {
			return nil, fmt.Errorf("failed to convert YAML config: %w", err)
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("failed to convert YAML config: %w", err)
		}
	}

	if doc == nil {
		doc = map[string]interface{}{}
	}
	return doc, nil
}

// selectProfile returns the raw JSON of the requested profile and its name.
func selectProfile(raw []byte, name string) ([]byte, string, error) {
	profiles := gjson.GetBytes(raw, "profiles")
	if !profiles.Exists() {
		if name != "" {
			return nil, "", fmt.Errorf("profile %q requested but config has no profiles section", name)
		}
		return raw, "default", nil
	}

	if name == "" {
		names := profileNames(profiles)
		if len(names) != 1 {
			return nil, "", fmt.Errorf("config defines %d profiles (%s), select one with --profile",
				len(names), strings.Join(names, ", "))
		}
		name = names[0]
	}

	entry := profiles.Get(gjson.Escape(name))
	if !entry.Exists() {
		return nil, "", fmt.Errorf("profile %q not found (available: %s)",
			name, strings.Join(profileNames(profiles), ", "))
	}
	return []byte(entry.Raw), name, nil
}

func profileNames(profiles gjson.Result) []string {
	var names []string
	profiles.ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	sort.Strings(names)
	return names
}
