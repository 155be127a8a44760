// Package prompt loads stage prompts from YAML files and fills their
// {placeholder} templates.
package prompt

import (
	"fmt"
	"strings"
)

// Format substitutes {key} placeholders in template with values. Doubled
// braces escape literal braces. Missing keys are errors so a renamed
// placeholder fails loudly instead of producing a half-filled prompt.
func Format(template string, values map[string]string) (string, error) {
	var builder strings.Builder
	builder.Grow(len(template))

	for i := 0; i < len(template); {
		switch template[i] {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				builder.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("invalid template: missing '}'")
			}
			key := template[i+1 : i+1+end]
			value, ok := values[key]
			if !ok {
				return "", fmt.Errorf("missing template value for %q", key)
			}
			builder.WriteString(value)
			i += end + 2
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				builder.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("invalid template: unexpected '}'")
		default:
			builder.WriteByte(template[i])
			i++
		}
	}

	return builder.String(), nil
}

// validateSystemStatic rejects system prompts that carry template
// variables; system text is sent as-is, so a placeholder there is a
// prompt-file bug.
func validateSystemStatic(name string, system string) error {
	for i := 0; i < len(system); {
		switch system[i] {
		case '{':
			if i+1 < len(system) && system[i+1] == '{' {
				i += 2
				continue
			}
			end := strings.IndexByte(system[i+1:], '}')
			if end < 0 {
				return fmt.Errorf("%s: invalid system prompt template syntax", name)
			}
			key := system[i+1 : i+1+end]
			return fmt.Errorf("%s: system prompt must not contain template variables %q", name, key)
		case '}':
			if i+1 < len(system) && system[i+1] == '}' {
				i += 2
				continue
			}
			return fmt.Errorf("%s: invalid system prompt template syntax", name)
		default:
			i++
		}
	}
	return nil
}
