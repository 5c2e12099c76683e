// Package collision detects and resolves identifier clashes between
// generated symbols and symbols the host compilation already declares, and
// between two metadata emissions that would otherwise declare the same
// generated name for semantically distinct entities.
package collision

import "github.com/win32gen/win32gen/metadata"

// HostSymbols is a package name -> declared identifier set snapshot
// supplied by the caller at facade-construction time: the Go analogue of
// "observed syntax trees" from a managed host. A small adapter can build
// this from a go/ast file set or a flat identifier list.
type HostSymbols map[string]map[string]bool

// Declares reports whether pkg already declares ident in the host
// compilation.
func (hs HostSymbols) Declares(pkg, ident string) bool {
	if hs == nil {
		return false
	}
	return hs[pkg][ident]
}

// Resolver tracks every identifier this generation session has emitted so
// far, keyed by package, so it can detect both host-symbol collisions and
// cross-emission collisions within the same run.
type Resolver struct {
	host     HostSymbols
	declared map[string]map[string]metadata.Entity // pkg -> ident -> owning entity
}

func New(host HostSymbols) *Resolver {
	return &Resolver{host: host, declared: make(map[string]map[string]metadata.Entity)}
}

// Decision is the outcome of resolving one candidate identifier.
type Decision int

const (
	// Accept: the identifier is free to use as-is.
	Accept Decision = iota
	// Qualify: the identifier collides with a host symbol. The emitters
	// declare the entity under a Win32-suffixed name instead; references
	// produced by package project still use the metadata name and are
	// not rewritten.
	Qualify
	// Suppress: the identifier collides with a prior, semantically
	// distinct emission; this emission is dropped and existing
	// references rebind to the earlier declaration.
	Suppress
)

// Resolve decides what to do with candidate ident in pkg for entity e.
// Repeat calls with the same (pkg, ident, e) return Accept, since repeat
// requests for the same metadata entity are not a new, distinct
// declaration; after a host collision the first call returns Qualify and
// later calls return Accept.
func (r *Resolver) Resolve(pkg, ident string, e metadata.Entity) Decision {
	if owner, ok := r.declared[pkg][ident]; ok {
		if owner == e {
			return Accept
		}
		return Suppress
	}
	if r.host.Declares(pkg, ident) {
		r.record(pkg, ident, e)
		return Qualify
	}
	r.record(pkg, ident, e)
	return Accept
}

func (r *Resolver) record(pkg, ident string, e metadata.Entity) {
	if r.declared[pkg] == nil {
		r.declared[pkg] = make(map[string]metadata.Entity)
	}
	r.declared[pkg][ident] = e
}
