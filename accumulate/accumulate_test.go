package accumulate

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/goa/v3/codegen"

	"github.com/win32gen/win32gen/metadata"
)

// entityComparer compares metadata.Entity by its exported Token() accessor,
// since the struct's backing field is unexported and cmp otherwise panics on
// unexported fields rather than silently misreporting equality.
var entityComparer = cmp.Comparer(func(a, b metadata.Entity) bool { return a.Token() == b.Token() })

// stubEmitter records every entity it was asked to emit and returns a fixed
// file/deps/err triple, letting tests drive Store without a real metadata
// index.
type stubEmitter struct {
	calls int
	file  *codegen.File
	deps  []EmissionKey
	err   error
}

func (s *stubEmitter) Emit(metadata.Entity) (*codegen.File, []EmissionKey, error) {
	s.calls++
	return s.file, s.deps, s.err
}

func TestStoreAddDedupes(t *testing.T) {
	enum := &stubEmitter{file: &codegen.File{Path: "enum.go"}}
	s := NewStore(map[EntityKind]Emitter{KindEnum: enum})
	key := EmissionKey{Kind: KindEnum}
	s.Add(key)
	s.Add(key)
	s.Add(key)
	require.NoError(t, s.Drain(func() error { return nil }))
	assert.Equal(t, 1, enum.calls)
}

func TestStoreDrainSchedulesDependencies(t *testing.T) {
	structKey := EmissionKey{Kind: KindStruct}
	enumKey := EmissionKey{Kind: KindEnum}

	str := &stubEmitter{file: &codegen.File{Path: "struct.go"}, deps: []EmissionKey{enumKey}}
	enum := &stubEmitter{file: &codegen.File{Path: "enum.go"}}

	s := NewStore(map[EntityKind]Emitter{KindStruct: str, KindEnum: enum})
	s.Add(structKey)
	require.NoError(t, s.Drain(func() error { return nil }))

	assert.Equal(t, 1, str.calls)
	assert.Equal(t, 1, enum.calls)
	assert.Equal(t, []EmissionKey{enumKey}, s.DepsOf(structKey))
	assert.Equal(t, "struct.go", s.PathOf(structKey))
	assert.Equal(t, "enum.go", s.PathOf(enumKey))
}

func TestStoreDrainStopsOnCancellation(t *testing.T) {
	enum := &stubEmitter{file: &codegen.File{Path: "enum.go"}}
	s := NewStore(map[EntityKind]Emitter{KindEnum: enum})
	s.Add(EmissionKey{Kind: KindEnum})

	wantErr := errors.New("cancelled")
	err := s.Drain(func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, enum.calls)
}

func TestStoreDrainPropagatesEmitError(t *testing.T) {
	wantErr := errors.New("emit failed")
	enum := &stubEmitter{err: wantErr}
	s := NewStore(map[EntityKind]Emitter{KindEnum: enum})
	s.Add(EmissionKey{Kind: KindEnum})

	err := s.Drain(func() error { return nil })
	assert.ErrorIs(t, err, wantErr)
}

func TestStoreDrainSkipsUnregisteredKind(t *testing.T) {
	s := NewStore(map[EntityKind]Emitter{})
	s.Add(EmissionKey{Kind: KindMethod})
	require.NoError(t, s.Drain(func() error { return nil }))
	assert.Empty(t, s.OrderedKeys())
}

func TestStoreFilesGroupedSeparately(t *testing.T) {
	structKey := EmissionKey{Kind: KindStruct}
	enumKey := EmissionKey{Kind: KindEnum}

	str := &stubEmitter{file: &codegen.File{
		Path:             "struct.go",
		SectionTemplates: []*codegen.SectionTemplate{{Name: "s"}},
	}}
	enum := &stubEmitter{file: &codegen.File{
		Path:             "enum.go",
		SectionTemplates: []*codegen.SectionTemplate{{Name: "e"}},
	}}

	s := NewStore(map[EntityKind]Emitter{KindStruct: str, KindEnum: enum})
	s.Add(structKey)
	s.Add(enumKey)
	require.NoError(t, s.Drain(func() error { return nil }))

	files := s.Files(false, "")
	require.Len(t, files, 2)
	assert.Equal(t, "struct.go", files[0].Path)
	assert.Equal(t, "enum.go", files[1].Path)
}

func TestStoreFilesSingleFileConcatenatesSections(t *testing.T) {
	structKey := EmissionKey{Kind: KindStruct}
	enumKey := EmissionKey{Kind: KindEnum}

	str := &stubEmitter{file: &codegen.File{
		Path:             "struct.go",
		SectionTemplates: []*codegen.SectionTemplate{{Name: "s"}},
	}}
	enum := &stubEmitter{file: &codegen.File{
		Path:             "enum.go",
		SectionTemplates: []*codegen.SectionTemplate{{Name: "e"}},
	}}

	s := NewStore(map[EntityKind]Emitter{KindStruct: str, KindEnum: enum})
	s.Add(structKey)
	s.Add(enumKey)
	require.NoError(t, s.Drain(func() error { return nil }))

	files := s.Files(true, "all.go")
	require.Len(t, files, 1)
	assert.Equal(t, "all.go", files[0].Path)
	require.Len(t, files[0].SectionTemplates, 2)
	assert.Equal(t, "s", files[0].SectionTemplates[0].Name)
	assert.Equal(t, "e", files[0].SectionTemplates[1].Name)
}

func TestStoreOrderedKeysFollowsInsertionOrder(t *testing.T) {
	a := EmissionKey{Kind: KindStruct}
	b := EmissionKey{Kind: KindEnum}
	c := EmissionKey{Kind: KindConstant}

	stub := func() *stubEmitter { return &stubEmitter{file: &codegen.File{Path: "x.go"}} }
	s := NewStore(map[EntityKind]Emitter{KindStruct: stub(), KindEnum: stub(), KindConstant: stub()})
	s.Add(b)
	s.Add(c)
	s.Add(a)
	require.NoError(t, s.Drain(func() error { return nil }))

	assert.Equal(t, []EmissionKey{b, c, a}, s.OrderedKeys())
}

// TestStoreDepsOfStructuralDiff uses go-cmp (with a Comparer for the
// unexported-field metadata.Entity) instead of assert.Equal so a future
// regression in dependency-key scheduling prints a structural diff rather
// than an opaque "not equal" failure.
func TestStoreDepsOfStructuralDiff(t *testing.T) {
	structKey := EmissionKey{Kind: KindStruct}
	enumKey := EmissionKey{Kind: KindEnum}
	handleKey := EmissionKey{Kind: KindHandle}

	str := &stubEmitter{file: &codegen.File{Path: "struct.go"}, deps: []EmissionKey{enumKey, handleKey}}
	enum := &stubEmitter{file: &codegen.File{Path: "enum.go"}}
	handle := &stubEmitter{file: &codegen.File{Path: "handle.go"}}

	s := NewStore(map[EntityKind]Emitter{KindStruct: str, KindEnum: enum, KindHandle: handle})
	s.Add(structKey)
	require.NoError(t, s.Drain(func() error { return nil }))

	want := []EmissionKey{enumKey, handleKey}
	if diff := cmp.Diff(want, s.DepsOf(structKey), entityComparer); diff != "" {
		t.Errorf("DepsOf(structKey) mismatch (-want +got):\n%s", diff)
	}
}

// TestStoreAddIsIdempotentProperty checks, over many random repeat-call
// patterns, that however many times Add schedules the same key, each
// distinct key's emitter runs exactly once and OrderedKeys carries no
// duplicates — the round-trip/idempotence law the Unit Accumulator
// promises callers that fan dependency requests in from many emitters.
func TestStoreAddIsIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	const kindSpan = 8 // KindMethod..KindHandle

	properties.Property("repeated Add of the same keys emits each exactly once", prop.ForAll(
		func(kinds []int) bool {
			emitters := make(map[EntityKind]Emitter, kindSpan)
			stubs := make(map[EntityKind]*stubEmitter, kindSpan)
			for k := EntityKind(0); k < kindSpan; k++ {
				se := &stubEmitter{file: &codegen.File{Path: "x.go"}}
				emitters[k] = se
				stubs[k] = se
			}
			s := NewStore(emitters)

			distinct := make(map[EntityKind]bool)
			for _, raw := range kinds {
				kind := EntityKind(raw % kindSpan)
				distinct[kind] = true
				s.Add(EmissionKey{Kind: kind})
			}
			if err := s.Drain(func() error { return nil }); err != nil {
				return false
			}

			for kind, se := range stubs {
				want := 0
				if distinct[kind] {
					want = 1
				}
				if se.calls != want {
					return false
				}
			}
			return len(s.OrderedKeys()) == len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 50)),
	))

	properties.TestingRun(t)
}

func TestStoreFilesSkipsNilFileEntities(t *testing.T) {
	// An emitter returning a nil *codegen.File (suppressed emission)
	// contributes no file but must not appear in Files() output.
	s := NewStore(map[EntityKind]Emitter{KindEnum: &stubEmitter{file: nil}})
	s.Add(EmissionKey{Kind: KindEnum})
	require.NoError(t, s.Drain(func() error { return nil }))
	assert.Empty(t, s.Files(false, ""))
	assert.Empty(t, s.OrderedKeys())
}
