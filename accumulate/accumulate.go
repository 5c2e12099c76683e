// Package accumulate implements the deduplicated, keyed fragment store that
// turns a stream of emitted entities into a final set of compilation units:
// a map from EmissionKey to the codegen.File that entity produced, driven
// by a FIFO pending-key work loop so dependency scheduling (a struct field
// referencing another struct, a method parameter referencing a COM
// interface) terminates once every reachable entity has been emitted
// exactly once.
package accumulate

import (
	"golang.org/x/tools/imports"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/metadata"
)

// EmissionKey identifies one schedulable unit of generated output. It is a
// comparable struct, not a string, so it can key the accumulator's map
// directly and be compared/hashed by the Go runtime without a separate
// encode step.
type EmissionKey struct {
	Entity metadata.Entity
	Kind   EntityKind
}

// EntityKind discriminates the emitter responsible for one EmissionKey.
type EntityKind int

const (
	KindMethod EntityKind = iota
	KindStruct
	KindUnion
	KindEnum
	KindInterface
	KindDelegate
	KindConstant
	KindHandle
)

// Emitter produces the generated source fragment for one entity, returning
// the further EmissionKeys that fragment depends on so the accumulator can
// schedule them.
type Emitter interface {
	Emit(e metadata.Entity) (*codegen.File, []EmissionKey, error)
}

// Store is the map[EmissionKey]*codegen.File plus FIFO pending-key queue
// described by the Unit Accumulator: Add schedules a key exactly once
// regardless of how many times it is requested, and Drain runs the work
// loop to completion, calling emitters keyed by EntityKind.
type Store struct {
	emitters       map[EntityKind]Emitter
	files          map[EmissionKey]*codegen.File
	seen           map[EmissionKey]bool
	pending        []EmissionKey
	insertionOrder []EmissionKey
	deps           map[EmissionKey][]EmissionKey
}

func NewStore(emitters map[EntityKind]Emitter) *Store {
	return &Store{
		emitters: emitters,
		files:    make(map[EmissionKey]*codegen.File),
		seen:     make(map[EmissionKey]bool),
		deps:     make(map[EmissionKey][]EmissionKey),
	}
}

// Add schedules key for emission if it has not already been seen in this
// session. Safe to call repeatedly with the same key from many dependents.
func (s *Store) Add(key EmissionKey) {
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.pending = append(s.pending, key)
	s.insertionOrder = append(s.insertionOrder, key)
}

// Drain runs the pending-key work loop until empty, invoking stop() between
// pops so callers can implement cooperative cancellation (the facade passes
// a context.Context check here).
func (s *Store) Drain(stop func() error) error {
	for len(s.pending) > 0 {
		if err := stop(); err != nil {
			return err
		}
		key := s.pending[0]
		s.pending = s.pending[1:]
		if _, ok := s.files[key]; ok {
			continue
		}
		em, ok := s.emitters[key.Kind]
		if !ok {
			continue
		}
		file, deps, err := em.Emit(key.Entity)
		if err != nil {
			return err
		}
		if file != nil {
			s.files[key] = file
		}
		s.deps[key] = deps
		for _, d := range deps {
			s.Add(d)
		}
	}
	return nil
}

// Files returns the accumulated compilation units. When singleFile is true
// every fragment's SectionTemplates are concatenated into one
// codegen.File at path; otherwise one *codegen.File per key is returned, in
// stable key-insertion order. Either way the underlying section content is
// unchanged — this controls grouping only.
func (s *Store) Files(singleFile bool, singleFilePath string) []*codegen.File {
	ordered := s.orderedKeys()
	if !singleFile {
		out := make([]*codegen.File, 0, len(ordered))
		for _, k := range ordered {
			if f := s.files[k]; f != nil {
				out = append(out, f)
			}
		}
		return out
	}
	var sections []*codegen.SectionTemplate
	for _, k := range ordered {
		if f := s.files[k]; f != nil {
			sections = append(sections, f.SectionTemplates...)
		}
	}
	return []*codegen.File{{Path: singleFilePath, SectionTemplates: sections}}
}

// OrderedKeys returns every key that produced a file, in schedule order.
// The dependency keys and file path of each key are available through
// DepsOf and PathOf. Used for building an ir.Session snapshot of a
// completed session without exposing the Store's internal maps.
func (s *Store) OrderedKeys() []EmissionKey {
	return s.orderedKeys()
}

// DepsOf returns the dependency keys key's emitter reported when it ran.
func (s *Store) DepsOf(key EmissionKey) []EmissionKey {
	return s.deps[key]
}

// PathOf returns the file path key's emitted fragment contributed to.
func (s *Store) PathOf(key EmissionKey) string {
	if f := s.files[key]; f != nil {
		return f.Path
	}
	return ""
}

// orderedKeys returns every key that produced a file, in the order Add
// first scheduled it, so output ordering is a deterministic function of
// request order rather than Go's randomized map iteration.
func (s *Store) orderedKeys() []EmissionKey {
	order := make([]EmissionKey, 0, len(s.files))
	seenOrder := make(map[EmissionKey]bool, len(s.files))
	for _, k := range s.insertionOrder {
		if s.files[k] != nil && !seenOrder[k] {
			order = append(order, k)
			seenOrder[k] = true
		}
	}
	return order
}

// FinalizeImports runs goimports-equivalent import organization over a
// rendered file's bytes before it is considered final, so no generated
// file ever carries unused or misgrouped imports regardless of which
// emitters happened to contribute sections to it.
func FinalizeImports(filename string, src []byte) ([]byte, error) {
	return imports.Process(filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: false,
	})
}
