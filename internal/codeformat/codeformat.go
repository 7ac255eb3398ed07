// Package codeformat pretty-prints code block content.
//
// Formatting never fails loudly: a source that does not parse, or a
// language without a formatter, reports ok=false and the caller leaves the
// block untouched.
package codeformat

import (
	"bytes"
	"encoding/json"
	"go/format"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Request is a formatting request. Cursor is a rune offset into Source.
type Request struct {
	Language string
	Source   string
	Cursor   int
}

// Result is formatted source with the cursor moved to the matching place.
type Result struct {
	Formatted string
	Cursor    int
}

type formatter func(src string) (string, error)

var formatters = map[string]formatter{
	"json": formatJSON,
	"yaml": formatYAML,
	"toml": formatTOML,
	"go":   formatGo,
}

var aliases = map[string]string{
	"yml":    "yaml",
	"golang": "go",
}

// Supported reports whether a formatter exists for language.
func Supported(language string) bool {
	_, ok := formatters[normalize(language)]
	return ok
}

// Languages returns the formatter language names.
func Languages() []string {
	return []string{"go", "json", "toml", "yaml"}
}

// Format formats the request source. ok is false when the language has no
// formatter or the source does not parse.
func Format(req Request) (Result, bool) {
	f, ok := formatters[normalize(req.Language)]
	if !ok {
		return Result{}, false
	}
	out, err := f(req.Source)
	if err != nil {
		return Result{}, false
	}
	return Result{Formatted: out, Cursor: mapCursor(req.Source, out, req.Cursor)}, true
}

func normalize(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if a, ok := aliases[l]; ok {
		return a
	}
	return l
}

func formatJSON(src string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(src), "", "  "); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatYAML(src string) (string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(src), &node); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func formatTOML(src string) (string, error) {
	var v map[string]any
	if err := toml.Unmarshal([]byte(src), &v); err != nil {
		return "", err
	}
	out, err := toml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func formatGo(src string) (string, error) {
	out, err := format.Source([]byte(src))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// mapCursor finds the offset in formatted that follows the same number of
// non-space runes as cursor does in source.
func mapCursor(source, formatted string, cursor int) int {
	src := []rune(source)
	if cursor <= 0 {
		return 0
	}
	if cursor > len(src) {
		cursor = len(src)
	}
	count := 0
	for _, r := range src[:cursor] {
		if !unicode.IsSpace(r) {
			count++
		}
	}

	out := []rune(formatted)
	if count == 0 {
		return 0
	}
	seen := 0
	for i, r := range out {
		if unicode.IsSpace(r) {
			continue
		}
		seen++
		if seen == count {
			return i + 1
		}
	}
	return len(out)
}
