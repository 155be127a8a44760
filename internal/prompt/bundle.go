package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle holds the loaded prompt maps for one agent set. Each YAML file
// becomes one named prompt with string fields (typically system and user).
type Bundle struct {
	prompts map[string]map[string]string
}

// LoadBundle reads every *.yml / *.yaml file under dir in fsys.
func LoadBundle(fsys fs.FS, dir string) (*Bundle, error) {
	paths, err := fs.Glob(fsys, path.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	yamlPaths, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob prompt dir: %w", err)
	}
	paths = append(paths, yamlPaths...)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no prompt files under %s", dir)
	}

	prompts := make(map[string]map[string]string, len(paths))
	for _, filePath := range paths {
		name := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		mapping, err := loadYAMLMapping(fsys, filePath)
		if err != nil {
			return nil, err
		}
		prompts[name] = mapping
	}
	return &Bundle{prompts: prompts}, nil
}

// System returns the static system prompt for name.
func (b *Bundle) System(name string) (string, error) {
	return b.field(name, "system")
}

// User formats the user prompt template for name with values.
func (b *Bundle) User(name string, values map[string]string) (string, error) {
	template, err := b.field(name, "user")
	if err != nil {
		return "", err
	}
	filled, err := Format(template, values)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", name, err)
	}
	return filled, nil
}

func (b *Bundle) field(name, key string) (string, error) {
	if b == nil {
		return "", fmt.Errorf("prompts not initialized")
	}
	mapping, ok := b.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	value, ok := mapping[key]
	if !ok {
		return "", fmt.Errorf("prompt %s: field missing: %s", name, key)
	}
	return value, nil
}

func loadYAMLMapping(fsys fs.FS, filePath string) (map[string]string, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt yaml: %w", err)
	}

	mapping := make(map[string]string, len(raw))
	for key, value := range raw {
		if value == nil {
			mapping[key] = ""
			continue
		}
		mapping[key] = fmt.Sprint(value)
	}

	if system, ok := mapping["system"]; ok && strings.TrimSpace(system) != "" {
		if err := validateSystemStatic(filePath, system); err != nil {
			return nil, err
		}
	}
	return mapping, nil
}
