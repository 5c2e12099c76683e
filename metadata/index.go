package metadata

import (
	"iter"
	"path"
	"sort"
	"strings"
)

// Index is a random-access, name-indexed view over one .winmd file,
// supporting lookup by type name, method name, and module pattern. An
// Index is cheap to keep open for a whole generation session and is
// poisoned by the first MetadataCorruptError it encounters: every later
// call returns the same error without re-reading.
type Index struct {
	mapped *mappedFile
	root   *streams

	poison error

	typeByKey     map[string]uint32 // "namespace\x00name" -> TypeDef row
	methodByKey   map[string]uint32 // "module\x00name" (module lowercased) -> MethodDef row
	methodsByName map[string][]uint32
	nested        map[uint32]bool // TypeDef rows that are nested (excluded from "top level")
}

// Open maps path and parses its metadata root. The returned Index must be
// closed with Close when the generation session ends.
func Open(path string) (*Index, error) {
	mf, data, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(data)
	if err != nil {
		mf.Close()
		return nil, err
	}
	idx := &Index{mapped: mf, root: root}
	if err := idx.buildCaches(); err != nil {
		mf.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the mmap'd backing file.
func (idx *Index) Close() error {
	if idx.mapped == nil {
		return nil
	}
	return idx.mapped.Close()
}

func (idx *Index) fail(err error) error {
	if idx.poison == nil {
		idx.poison = err
	}
	return idx.poison
}

func typeKey(namespace, name string) string { return namespace + "\x00" + name }

func (idx *Index) buildCaches() error {
	idx.typeByKey = make(map[string]uint32)
	idx.methodByKey = make(map[string]uint32)
	idx.methodsByName = make(map[string][]uint32)
	idx.nested = make(map[uint32]bool)

	ts := idx.root.tables
	for row := uint32(1); row <= ts.rowCounts[tblTypeDef]; row++ {
		r, err := ts.row(tblTypeDef, row)
		if err != nil {
			return idx.fail(&MetadataCorruptError{Reason: "reading TypeDef row", Err: err})
		}
		nameOff := readIdx(r, 4, ts.heapIdxSize(ts.wideString))
		nsOff := readIdx(r, 4+ts.heapIdxSize(ts.wideString), ts.heapIdxSize(ts.wideString))
		name, err := idx.root.strings.String(nameOff)
		if err != nil {
			return idx.fail(&MetadataCorruptError{Reason: "TypeDef name", Err: err})
		}
		ns, err := idx.root.strings.String(nsOff)
		if err != nil {
			return idx.fail(&MetadataCorruptError{Reason: "TypeDef namespace", Err: err})
		}
		idx.typeByKey[typeKey(ns, name)] = row
	}
	for row := uint32(1); row <= ts.rowCounts[tblNestedClass]; row++ {
		r, err := ts.row(tblNestedClass, row)
		if err != nil {
			return idx.fail(&MetadataCorruptError{Reason: "reading NestedClass row", Err: err})
		}
		nestedSize := ts.tableIdxSize(tblTypeDef)
		nestedRow := readIdx(r, 0, nestedSize)
		idx.nested[nestedRow] = true
	}

	// MethodDef -> owning module name, via ImplMap (member forwarding to a
	// ModuleRef) for P/Invoke methods.
	for row := uint32(1); row <= ts.rowCounts[tblImplMap]; row++ {
		r, err := ts.row(tblImplMap, row)
		if err != nil {
			return idx.fail(&MetadataCorruptError{Reason: "reading ImplMap row", Err: err})
		}
		off := 2
		mfSize := ts.codedIdxSize(codedMemberForward)
		mfVal := readIdx(r, off, mfSize)
		off += mfSize
		strSize := ts.heapIdxSize(ts.wideString)
		impNameOff := readIdx(r, off, strSize)
		off += strSize
		modRefSize := ts.tableIdxSize(tblModuleRef)
		modRefRow := readIdx(r, off, modRefSize)

		tbl, methodRow := decodeCoded(mfVal, codedMemberForward)
		if tbl != tblMethodDef {
			continue
		}
		modRefR, err := ts.row(tblModuleRef, modRefRow)
		if err != nil {
			continue
		}
		modNameOff := readIdx(modRefR, 0, strSize)
		modName, err := idx.root.strings.String(modNameOff)
		if err != nil {
			continue
		}
		entryName, err := idx.root.strings.String(impNameOff)
		if err != nil {
			continue
		}
		_ = entryName
		methodR, err := ts.row(tblMethodDef, methodRow)
		if err != nil {
			continue
		}
		methodNameOff := readIdx(methodR, 8, strSize)
		methodName, err := idx.root.strings.String(methodNameOff)
		if err != nil {
			continue
		}
		idx.methodByKey[strings.ToLower(modName)+"\x00"+methodName] = methodRow
		idx.methodsByName[methodName] = append(idx.methodsByName[methodName], methodRow)
	}
	return nil
}

// FindType resolves a type by namespace and simple name.
func (idx *Index) FindType(namespace, name string) (TypeDef, bool, error) {
	if idx.poison != nil {
		return TypeDef{}, false, idx.poison
	}
	row, ok := idx.typeByKey[typeKey(namespace, name)]
	if !ok {
		return TypeDef{}, false, nil
	}
	td, err := idx.decodeTypeDef(row)
	if err != nil {
		return TypeDef{}, false, idx.fail(err)
	}
	return td, true, nil
}

// FindMethod resolves a P/Invoke method by its owning module and name.
func (idx *Index) FindMethod(module, name string) (MethodDef, bool, error) {
	if idx.poison != nil {
		return MethodDef{}, false, idx.poison
	}
	row, ok := idx.methodByKey[strings.ToLower(module)+"\x00"+name]
	if !ok {
		return MethodDef{}, false, nil
	}
	md, err := idx.decodeMethodDef(row)
	if err != nil {
		return MethodDef{}, false, idx.fail(err)
	}
	return md, true, nil
}

// FindMethodAnywhere resolves a method by name regardless of module,
// used by the "by exact name" facade entry point.
func (idx *Index) FindMethodAnywhere(name string) (MethodDef, bool, error) {
	if idx.poison != nil {
		return MethodDef{}, false, idx.poison
	}
	rows, ok := idx.methodsByName[name]
	if !ok || len(rows) == 0 {
		return MethodDef{}, false, nil
	}
	md, err := idx.decodeMethodDef(rows[0])
	if err != nil {
		return MethodDef{}, false, idx.fail(err)
	}
	return md, true, nil
}

// IterMethodsByModulePattern enumerates methods in modules matching a
// "module.glob" pattern (e.g. "kernel32.*"). Iteration order is
// deterministic: modules then method names, both sorted.
func (idx *Index) IterMethodsByModulePattern(pattern string) iter.Seq2[MethodDef, error] {
	return func(yield func(MethodDef, error) bool) {
		if idx.poison != nil {
			yield(MethodDef{}, idx.poison)
			return
		}
		modPat, namePat, ok := strings.Cut(pattern, ".")
		if !ok {
			namePat = "*"
			modPat = pattern
		}
		type hit struct {
			key string
			row uint32
		}
		var hits []hit
		for key, row := range idx.methodByKey {
			mod, name, _ := strings.Cut(key, "\x00")
			modOK, _ := path.Match(strings.ToLower(modPat), mod)
			if !modOK {
				continue
			}
			nameOK, _ := path.Match(namePat, name)
			if !nameOK {
				continue
			}
			hits = append(hits, hit{key: key, row: row})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].key < hits[j].key })
		for _, h := range hits {
			md, err := idx.decodeMethodDef(h.row)
			if err != nil {
				yield(MethodDef{}, idx.fail(err))
				return
			}
			if !yield(md, nil) {
				return
			}
		}
	}
}

// IterAllTopLevelTypes enumerates every non-nested TypeDef, sorted by
// namespace then name for deterministic output across runs.
func (idx *Index) IterAllTopLevelTypes() iter.Seq2[TypeDef, error] {
	return func(yield func(TypeDef, error) bool) {
		if idx.poison != nil {
			yield(TypeDef{}, idx.poison)
			return
		}
		keys := make([]string, 0, len(idx.typeByKey))
		for k := range idx.typeByKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			row := idx.typeByKey[k]
			if idx.nested[row] {
				continue
			}
			td, err := idx.decodeTypeDef(row)
			if err != nil {
				yield(TypeDef{}, idx.fail(err))
				return
			}
			if !yield(td, nil) {
				return
			}
		}
	}
}

// GetCustomAttribute returns the first CustomAttribute of the given kind
// attached to entity. Attribute kind is classified from the attribute
// constructor's owning TypeRef name at decode time; this call performs no
// additional metadata access beyond that decode.
func (idx *Index) GetCustomAttribute(e Entity, kind CustomAttributeKind) (CustomAttribute, bool, error) {
	if idx.poison != nil {
		return CustomAttribute{}, false, idx.poison
	}
	attrs, err := idx.decodeCustomAttributesFor(e)
	if err != nil {
		return CustomAttribute{}, false, idx.fail(err)
	}
	for _, a := range attrs {
		if a.Kind == kind {
			return a, true, nil
		}
	}
	return CustomAttribute{}, false, nil
}

func wrapCorrupt(reason string, err error) error {
	return &MetadataCorruptError{Reason: reason, Err: err}
}
