// Package prompt renders the engine's collaborator prompts from templates.
// This lives in internal to avoid committing to public API stability
// prematurely.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Render replaces template variables using Go's text/template package.
func Render(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
	}).Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// MustRender renders the template and panics on error. Intended for
// package-level prompt constants that are validated by tests.
func MustRender(text string, state map[string]any) string {
	out, err := Render(text, state)
	if err != nil {
		panic(fmt.Sprintf("prompt render: %v", err))
	}
	return out
}
