// Package config holds the Options a Generator is constructed with and
// applies their defaults/validation once, at construction time.
package config

import "fmt"

// Options configures one generation session. Every field has a documented
// default; the zero value of Options is valid input to Normalize.
type Options struct {
	// ClassName groups extern P/Invoke declarations under a single
	// configured name. It appears only in the doc comment emitted above
	// each extern function ("X is grouped under ClassName"); no generated
	// identifier is derived from it.
	ClassName string
	// EmitSingleFile controls whether Files() concatenates every
	// fragment into one compilation unit or returns one per top-level
	// entity. Grouping only; content is identical either way.
	EmitSingleFile bool
	// Namespace is the Go-package-path analogue of a managed host's
	// root namespace (e.g. "Microsoft.Windows.Sdk").
	Namespace string
}

const (
	defaultClassName = "PInvoke"
	defaultNamespace = "windows.win32"
)

// Normalize fills unset fields with their defaults and validates the rest,
// returning the effective Options a Generator should use.
func Normalize(o Options) (Options, error) {
	if o.ClassName == "" {
		o.ClassName = defaultClassName
	}
	if o.Namespace == "" {
		o.Namespace = defaultNamespace
	}
	if !isValidGoPackagePathSegment(o.ClassName) {
		return Options{}, fmt.Errorf("config: ClassName %q is not a valid Go identifier prefix", o.ClassName)
	}
	return o, nil
}

func isValidGoPackagePathSegment(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
