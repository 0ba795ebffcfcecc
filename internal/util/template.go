package util

import (
	"fmt"
	"strings"
	"text/template"
)

// templateFuncs are the helpers available inside instruction and context
// templates. Built once; templates only read from it.
var templateFuncs = template.FuncMap{
	"default": defaultFunc,
	"upper":   strings.ToUpper,
	"lower":   strings.ToLower,
	"title":   titleFunc,
	"join":    joinFunc,
}

// RenderTemplate renders text/template markers in text against data. Strings
// without markers are returned as-is without parsing. Kept internal so the
// template dialect (func set, delimiters) can evolve without a public API
// commitment.
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	return sb.String(), nil
}

// defaultFunc substitutes defaultVal for nil or empty-string values, pipeline
// style: {{.UserName | default "anonymous"}}.
func defaultFunc(defaultVal, val any) any {
	if val == nil || val == "" {
		return defaultVal
	}
	return val
}

// titleFunc upcases the first byte and lowercases the rest. ASCII-oriented,
// matching how instruction templates use it.
func titleFunc(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// joinFunc joins arbitrary items with sep: {{.Items | join ", "}}.
func joinFunc(sep string, items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprint(item)
	}
	return strings.Join(parts, sep)
}
