// Package naming sanitizes Win32 metadata identifiers (type names, field
// names, namespace segments) into the Go identifiers and import-path
// segments the rest of the generator emits.
package naming

import (
	"strings"
	"unicode"

	"goa.design/goa/v3/codegen"
)

// reservedWords are Go keywords that collide with common Win32 field/param
// names (a struct literally has a field named "Type"). EscapeReserved
// appends a trailing underscore rather than renaming, so the relationship
// to the metadata name stays visually obvious.
var reservedWords = map[string]bool{
	"type": true, "func": true, "range": true, "map": true, "interface": true,
	"chan": true, "select": true, "import": true, "package": true, "go": true,
	"defer": true, "fallthrough": true, "var": true, "const": true, "return": true,
}

// SanitizeToken converts an arbitrary string into a filesystem-safe token.
// It is used to derive deterministic directory/package fragments from a
// Win32 namespace segment (e.g. "Win32" -> "win32").
//
// The returned token:
//   - is lower snake_case
//   - contains only [a-z0-9_]
//   - never starts/ends with '_' and never contains repeated "__"
//
// When the sanitized result is empty, SanitizeToken returns fallback.
func SanitizeToken(name, fallback string) string {
	s := strings.ToLower(codegen.SnakeCase(name))
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	if s == "" {
		return fallback
	}
	return s
}

// NamespaceSegments splits a dotted Win32 namespace ("Windows.Win32.Foundation")
// into sanitized, lowercase path segments suitable for joining into a Go
// import path.
func NamespaceSegments(namespace string) []string {
	parts := strings.Split(namespace, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, SanitizeToken(p, "ns"))
	}
	return out
}

// Identifier builds a stable dotted identifier by sanitizing parts and joining
// them with '.'.
func Identifier(parts ...string) string {
	sanitized := make([]string, 0, len(parts))
	for _, part := range parts {
		token := SanitizeToken(part, "segment")
		if token != "" {
			sanitized = append(sanitized, token)
		}
	}
	if len(sanitized) == 0 {
		return "id"
	}
	return strings.Join(sanitized, ".")
}

// HumanizeTitle converts a slug-like name (snake_case, kebab-case, dotted)
// into a conservative Title Case string, used for doc-comment banners.
func HumanizeTitle(s string) string {
	if s == "" {
		return s
	}
	// use last segment after '.' when present
	if i := strings.LastIndexByte(s, '.'); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	parts := strings.Fields(s)
	for i := range parts {
		if len(parts[i]) == 0 {
			continue
		}
		r := []rune(parts[i])
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// EscapeReserved appends a trailing underscore to name if it collides with
// a Go keyword, otherwise returns codegen.Goify(name, exported). Win32
// metadata field and parameter names routinely collide with Go keywords,
// which Goify alone does not resolve since the collision is with the
// language, not another identifier already in scope.
func EscapeReserved(name string, exported bool) string {
	if reservedWords[strings.ToLower(name)] {
		return name + "_"
	}
	return codegen.Goify(name, exported)
}
