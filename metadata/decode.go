package metadata

import "strings"

// decodeTypeDef fully materializes a TypeDef row: flags, base, layout,
// fields, methods, custom attributes, and (for interfaces) the base
// interface chain. Field/method ranges follow the ECMA-335 convention of
// reading "up to the next row's list pointer, or end of table".
func (idx *Index) decodeTypeDef(row uint32) (TypeDef, error) {
	ts := idx.root.tables
	r, err := ts.row(tblTypeDef, row)
	if err != nil {
		return TypeDef{}, wrapCorrupt("TypeDef row", err)
	}
	strSize := ts.heapIdxSize(ts.wideString)
	flags := readU32(r, 0)
	nameOff := readIdx(r, 4, strSize)
	nsOff := readIdx(r, 4+strSize, strSize)
	name, err := idx.root.strings.String(nameOff)
	if err != nil {
		return TypeDef{}, wrapCorrupt("TypeDef name", err)
	}
	ns, err := idx.root.strings.String(nsOff)
	if err != nil {
		return TypeDef{}, wrapCorrupt("TypeDef namespace", err)
	}

	extendsOff := 4 + 2*strSize
	extendsSize := ts.codedIdxSize(codedTypeDefOrRef)
	extends := readIdx(r, extendsOff, extendsSize)
	extendsTbl, extendsRow := decodeCoded(extends, codedTypeDefOrRef)

	fieldListOff := extendsOff + extendsSize
	fieldListSize := ts.tableIdxSize(tblField)
	fieldStart := readIdx(r, fieldListOff, fieldListSize)
	methodListOff := fieldListOff + fieldListSize
	methodListSize := ts.tableIdxSize(tblMethodDef)
	methodStart := readIdx(r, methodListOff, methodListSize)

	fieldEnd := ts.rowCounts[tblField] + 1
	methodEnd := ts.rowCounts[tblMethodDef] + 1
	if row < ts.rowCounts[tblTypeDef] {
		nr, err := ts.row(tblTypeDef, row+1)
		if err == nil {
			fieldEnd = readIdx(nr, fieldListOff, fieldListSize)
			methodEnd = readIdx(nr, methodListOff, methodListSize)
		}
	}

	td := TypeDef{
		Entity:    Entity{token: (uint32(tblTypeDef) << 24) | row},
		Namespace: ns,
		Name:      name,
	}

	for fr := fieldStart; fr < fieldEnd && fr != 0; fr++ {
		fd, err := idx.decodeField(fr)
		if err != nil {
			return TypeDef{}, err
		}
		td.Fields = append(td.Fields, fd)
	}
	for mr := methodStart; mr < methodEnd && mr != 0; mr++ {
		md, err := idx.decodeMethodDef(mr)
		if err != nil {
			return TypeDef{}, err
		}
		md.Owner = td.Entity
		td.Methods = append(td.Methods, md)
	}

	attrs, err := idx.decodeCustomAttributesFor(td.Entity)
	if err != nil {
		return TypeDef{}, err
	}
	td.Attributes = attrs

	td.Layout = classifyLayout(ts, row)
	td.Kind = classifyTypeKind(flags, extendsTbl, extendsRow, idx, attrs)
	if td.Kind == KindStruct && len(td.Fields) > 1 {
		union := true
		for _, f := range td.Fields {
			union = union && f.HasOffset && f.Offset == 0
		}
		if union {
			td.Kind = KindUnion
		}
	}
	if td.Kind == KindInterface {
		td.BaseIfaces = idx.decodeInterfaceImpls(row)
	}
	for _, a := range attrs {
		if a.Kind == AttrGuid {
			if g, ok := a.Args[0].([16]byte); ok {
				td.GUID = g
				td.HasGUID = true
			}
		}
	}
	if extendsTbl == tblTypeDef || extendsTbl == tblTypeRef {
		td.Base = Entity{token: (uint32(extendsTbl) << 24) | extendsRow}
	}
	return td, nil
}

// classifyLayout reads the ClassLayout table row for typeRow, if any.
func classifyLayout(ts *tableStream, typeRow uint32) Layout {
	for row := uint32(1); row <= ts.rowCounts[tblClassLayout]; row++ {
		r, err := ts.row(tblClassLayout, row)
		if err != nil {
			continue
		}
		packing := readU16(r, 0)
		owner := readIdx(r, 6, ts.tableIdxSize(tblTypeDef))
		if owner == typeRow {
			return Layout{Explicit: true, Pack: int(packing)}
		}
	}
	return Layout{}
}

// classifyTypeKind infers TypeKind from tdInterface flag, the base type's
// well-known name, and the presence of a NativeTypedef attribute. Win32
// metadata's own conventions (System.Enum/System.ValueType/
// System.MulticastDelegate base types, tdInterface flag, the NativeTypedef
// attribute on single-field handle wrappers) make this classification
// unambiguous in practice.
func classifyTypeKind(flags uint32, baseTbl table, baseRow uint32, idx *Index, attrs []CustomAttribute) TypeKind {
	const tdInterface = 0x00000020
	if flags&tdInterface != 0 {
		return KindInterface
	}
	for _, a := range attrs {
		if a.Kind == AttrNativeTypedef {
			return KindHandleTypedef
		}
	}
	baseName := ""
	if baseTbl == tblTypeRef && baseRow != 0 {
		if r, err := idx.root.tables.row(tblTypeRef, baseRow); err == nil {
			strSize := idx.root.tables.heapIdxSize(idx.root.tables.wideString)
			resScopeSize := idx.root.tables.codedIdxSize(codedIndexSpec{2, []table{tblModule, tblModuleRef, tblTypeRef, 0xFF}})
			nameOff := readIdx(r, resScopeSize, strSize)
			if n, err := idx.root.strings.String(nameOff); err == nil {
				baseName = n
			}
		}
	}
	switch baseName {
	case "Enum":
		return KindEnum
	case "MulticastDelegate":
		return KindDelegate
	case "ValueType":
		return KindStruct // unions are distinguished by explicit overlapping offsets; see decodeTypeDef
	case "Object", "":
		return KindClass
	default:
		return KindClass
	}
}

func (idx *Index) decodeInterfaceImpls(typeRow uint32) []Entity {
	ts := idx.root.tables
	var out []Entity
	typeIdxSize := ts.tableIdxSize(tblTypeDef)
	ifaceIdxSize := ts.codedIdxSize(codedTypeDefOrRef)
	for row := uint32(1); row <= ts.rowCounts[tblInterfaceImpl]; row++ {
		r, err := ts.row(tblInterfaceImpl, row)
		if err != nil {
			continue
		}
		owner := readIdx(r, 0, typeIdxSize)
		if owner != typeRow {
			continue
		}
		iface := readIdx(r, typeIdxSize, ifaceIdxSize)
		tbl, ifRow := decodeCoded(iface, codedTypeDefOrRef)
		out = append(out, Entity{token: (uint32(tbl) << 24) | ifRow})
	}
	return out
}

func (idx *Index) decodeField(row uint32) (FieldDef, error) {
	ts := idx.root.tables
	r, err := ts.row(tblField, row)
	if err != nil {
		return FieldDef{}, wrapCorrupt("Field row", err)
	}
	strSize := ts.heapIdxSize(ts.wideString)
	blobSize := ts.heapIdxSize(ts.wideBlob)
	nameOff := readIdx(r, 2, strSize)
	sigOff := readIdx(r, 2+strSize, blobSize)
	name, err := idx.root.strings.String(nameOff)
	if err != nil {
		return FieldDef{}, wrapCorrupt("Field name", err)
	}
	sigBlob, err := idx.root.blob.Blob(sigOff)
	if err != nil {
		return FieldDef{}, wrapCorrupt("Field signature", err)
	}
	typ, err := decodeFieldSig(sigBlob)
	if err != nil {
		return FieldDef{}, wrapCorrupt("Field signature decode", err)
	}
	fd := FieldDef{
		Entity: Entity{token: (uint32(tblField) << 24) | row},
		Name:   name,
		Type:   typ,
	}
	for fr := uint32(1); fr <= ts.rowCounts[tblFieldLayout]; fr++ {
		lr, err := ts.row(tblFieldLayout, fr)
		if err != nil {
			continue
		}
		owner := readIdx(lr, 4, ts.tableIdxSize(tblField))
		if owner == row {
			fd.Offset = int(readU32(lr, 0))
			fd.HasOffset = true
		}
	}
	if c, ok, err := idx.constantForField(row); err == nil && ok {
		fd.ConstantValue = &c
	}
	attrs, err := idx.decodeCustomAttributesFor(fd.Entity)
	if err != nil {
		return FieldDef{}, err
	}
	fd.Attributes = attrs
	return fd, nil
}

func (idx *Index) constantForField(fieldRow uint32) (ConstantRef, bool, error) {
	ts := idx.root.tables
	for row := uint32(1); row <= ts.rowCounts[tblConstant]; row++ {
		r, err := ts.row(tblConstant, row)
		if err != nil {
			continue
		}
		parent := readIdx(r, 2, ts.codedIdxSize(codedHasConstant))
		tbl, prow := decodeCoded(parent, codedHasConstant)
		if tbl != tblField || prow != fieldRow {
			continue
		}
		c, err := idx.decodeConstantRow(r)
		return c, true, err
	}
	return ConstantRef{}, false, nil
}

func (idx *Index) decodeConstantRow(r []byte) (ConstantRef, error) {
	ts := idx.root.tables
	typeByte := r[0]
	blobOff := readIdx(r, 2+ts.codedIdxSize(codedHasConstant), ts.heapIdxSize(ts.wideBlob))
	blob, err := idx.root.blob.Blob(blobOff)
	if err != nil {
		return ConstantRef{}, wrapCorrupt("Constant value blob", err)
	}
	var c ConstantRef
	switch typeByte {
	case elemR4, elemR8:
		c.Kind = ConstFloat
		// Bit pattern interpretation happens in project; store raw bits as
		// int64 to stay allocation-free here.
		c.IntValue = int64(leUint(blob))
	case elemString:
		u16 := decodeU16LE(blob)
		c.Kind = ConstString
		c.StringValue = utf16ToString(u16)
	default:
		c.Kind = ConstInt
		c.IntValue = int64(leSignExtend(blob, typeByte))
	}
	return c, nil
}

// decodeMethodDef materializes a MethodDef row including its P/Invoke
// metadata (if any) and signature-derived parameter/return types. Parameter
// *names* and in/out/optional flags come from the Param table; parameter
// *types* come from the method's signature blob, matched up positionally.
func (idx *Index) decodeMethodDef(row uint32) (MethodDef, error) {
	ts := idx.root.tables
	r, err := ts.row(tblMethodDef, row)
	if err != nil {
		return MethodDef{}, wrapCorrupt("MethodDef row", err)
	}
	strSize := ts.heapIdxSize(ts.wideString)
	blobSize := ts.heapIdxSize(ts.wideBlob)
	nameOff := readIdx(r, 8, strSize)
	sigOff := readIdx(r, 8+strSize, blobSize)
	name, err := idx.root.strings.String(nameOff)
	if err != nil {
		return MethodDef{}, wrapCorrupt("MethodDef name", err)
	}
	sigBlob, err := idx.root.blob.Blob(sigOff)
	if err != nil {
		return MethodDef{}, wrapCorrupt("MethodDef signature", err)
	}
	retType, paramTypes, err := decodeMethodSig(sigBlob)
	if err != nil {
		return MethodDef{}, wrapCorrupt("MethodDef signature decode", err)
	}

	paramListOff := 8 + strSize + blobSize
	paramListSize := ts.tableIdxSize(tblParam)
	paramStart := readIdx(r, paramListOff, paramListSize)
	paramEnd := ts.rowCounts[tblParam] + 1
	if row < ts.rowCounts[tblMethodDef] {
		if nr, err := ts.row(tblMethodDef, row+1); err == nil {
			paramEnd = readIdx(nr, paramListOff, paramListSize)
		}
	}

	md := MethodDef{
		Entity: Entity{token: (uint32(tblMethodDef) << 24) | row},
		Name:   name,
		Return: Param{Type: retType, Flags: ParamFlags{Out: true, SizeParamIndex: -1, SizeConst: -1}},
	}
	if retType.Kind == RefNamed {
		md.ReturnTypeNameHint = idx.typeRefOrDefName(table(retType.Named.token>>24), retType.Named.token&0x00FFFFFF)
	}
	named := make(map[int]Param)
	for pr := paramStart; pr < paramEnd && pr != 0; pr++ {
		p, seq, err := idx.decodeParam(pr)
		if err != nil {
			return MethodDef{}, err
		}
		named[seq] = p
	}
	for i, t := range paramTypes {
		p, ok := named[i+1]
		if !ok {
			p = Param{Name: "", Flags: ParamFlags{In: true, SizeParamIndex: -1, SizeConst: -1}}
		}
		p.Type = t
		md.Params = append(md.Params, p)
	}
	if ret, ok := named[0]; ok {
		md.Return.Name = ret.Name
	}

	attrs, err := idx.decodeCustomAttributesFor(md.Entity)
	if err != nil {
		return MethodDef{}, err
	}
	md.Attributes = attrs

	if info, err := idx.decodeImplMap(row); err == nil && info != nil {
		md.PInvoke = info
	}
	return md, nil
}

func (idx *Index) decodeParam(row uint32) (Param, int, error) {
	ts := idx.root.tables
	r, err := ts.row(tblParam, row)
	if err != nil {
		return Param{}, 0, wrapCorrupt("Param row", err)
	}
	flags := readU16(r, 0)
	seq := int(readU16(r, 2))
	strSize := ts.heapIdxSize(ts.wideString)
	nameOff := readIdx(r, 4, strSize)
	name, err := idx.root.strings.String(nameOff)
	if err != nil {
		name = ""
	}
	const (
		pdIn       = 0x0001
		pdOut      = 0x0002
		pdOptional = 0x0010
	)
	p := Param{
		Name: name,
		Flags: ParamFlags{
			In:             flags&pdIn != 0,
			Out:            flags&pdOut != 0,
			Optional:       flags&pdOptional != 0,
			SizeParamIndex: -1,
			SizeConst:      -1,
		},
	}
	return p, seq, nil
}

func (idx *Index) decodeImplMap(methodRow uint32) (*PInvokeInfo, error) {
	ts := idx.root.tables
	for row := uint32(1); row <= ts.rowCounts[tblImplMap]; row++ {
		r, err := ts.row(tblImplMap, row)
		if err != nil {
			continue
		}
		mappingFlags := readU16(r, 0)
		off := 2
		mfSize := ts.codedIdxSize(codedMemberForward)
		mfVal := readIdx(r, off, mfSize)
		off += mfSize
		strSize := ts.heapIdxSize(ts.wideString)
		impNameOff := readIdx(r, off, strSize)
		off += strSize
		modRefRow := readIdx(r, off, ts.tableIdxSize(tblModuleRef))

		tbl, mr := decodeCoded(mfVal, codedMemberForward)
		if tbl != tblMethodDef || mr != methodRow {
			continue
		}
		modRefR, err := ts.row(tblModuleRef, modRefRow)
		if err != nil {
			continue
		}
		modName, err := idx.root.strings.String(readIdx(modRefR, 0, strSize))
		if err != nil {
			continue
		}
		entryPoint, err := idx.root.strings.String(impNameOff)
		if err != nil {
			continue
		}
		const (
			pinvokeCallConvMask  = 0x0700
			pinvokeCallConvWinapi = 0x0100
			pinvokeCallConvCdecl  = 0x0200
			pinvokeSupportsLastError = 0x0040
		)
		conv := ConvWinapi
		switch mappingFlags & pinvokeCallConvMask {
		case pinvokeCallConvCdecl:
			conv = ConvCdecl
		}
		return &PInvokeInfo{
			Module:       modName,
			EntryPoint:   entryPoint,
			CallConv:     conv,
			PreserveSig:  true,
			SetLastError: mappingFlags&pinvokeSupportsLastError != 0,
		}, nil
	}
	return nil, nil
}

// attrNameToKind maps the simple name of a Win32 metadata attribute type to
// the CustomAttributeKind this generator cares about. Names not present
// here are attributes this generator has no use for and are skipped.
var attrNameToKind = map[string]CustomAttributeKind{
	"RAIIFreeAttribute":            AttrRAIIFree,
	"NativeTypedefAttribute":       AttrNativeTypedef,
	"ConstantAttribute":            AttrConstantSpecial,
	"NativeBitfieldAttribute":      AttrNativeBitfield,
	"SupportedOSPlatformAttribute": AttrSupportedOSPlatform,
	"AssociatedEnumAttribute":      AttrAssociatedEnum,
	"GuidAttribute":                AttrGuid,
	"HandleAttribute":              AttrNamespaceHandle,
}

// decodeCustomAttributesFor scans the CustomAttribute table for rows whose
// parent coded index resolves to e, resolves each attribute's constructor
// to its declaring type's simple name via the MemberRef/TypeRef tables,
// and classifies it through attrNameToKind. Attribute kinds this generator
// does not consult are skipped without decoding their argument blob.
func (idx *Index) decodeCustomAttributesFor(e Entity) ([]CustomAttribute, error) {
	ts := idx.root.tables
	tbl := table(e.token >> 24)
	row := e.token & 0x00FFFFFF
	var out []CustomAttribute
	parentSize := ts.codedIdxSize(codedHasCustomAttr)
	typeSize := ts.codedIdxSize(codedCustomAttrType)
	blobSize := ts.heapIdxSize(ts.wideBlob)
	for r := uint32(1); r <= ts.rowCounts[tblCustomAttr]; r++ {
		row0, err := ts.row(tblCustomAttr, r)
		if err != nil {
			continue
		}
		parentVal := readIdx(row0, 0, parentSize)
		ptbl, prow := decodeCoded(parentVal, codedHasCustomAttr)
		if ptbl != tbl || prow != row {
			continue
		}
		ctorVal := readIdx(row0, parentSize, typeSize)
		typeName := idx.resolveAttributeCtorTypeName(ctorVal)
		kind, ok := attrNameToKind[typeName]
		if !ok {
			continue
		}
		blobOff := readIdx(row0, parentSize+typeSize, blobSize)
		blob, err := idx.root.blob.Blob(blobOff)
		if err != nil {
			continue
		}
		out = append(out, CustomAttribute{Kind: kind, Args: decodeAttributeArgs(blob, kind)})
	}
	return out, nil
}

// resolveAttributeCtorTypeName follows a CustomAttributeType coded index
// (a MethodDef or, as is universal for Win32 metadata's own attributes, a
// MemberRef) to the simple name of the type declaring the constructor.
func (idx *Index) resolveAttributeCtorTypeName(ctorVal uint32) string {
	ts := idx.root.tables
	tbl, row := decodeCoded(ctorVal, codedCustomAttrType)
	switch tbl {
	case tblMemberRef:
		r, err := ts.row(tblMemberRef, row)
		if err != nil {
			return ""
		}
		parentSize := ts.codedIdxSize(codedMemberRefParent)
		parentVal := readIdx(r, 0, parentSize)
		ptbl, prow := decodeCoded(parentVal, codedMemberRefParent)
		return idx.typeRefOrDefName(ptbl, prow)
	case tblMethodDef:
		// A constructor defined directly in this module: walk TypeDef to
		// find the owning type (rare for attributes, but handled for
		// completeness).
		for tr := uint32(1); tr <= ts.rowCounts[tblTypeDef]; tr++ {
			td, err := idx.decodeTypeDef(tr)
			if err != nil {
				continue
			}
			for _, m := range td.Methods {
				if m.Entity.token == (uint32(tblMethodDef)<<24)|row {
					return td.Name
				}
			}
		}
	}
	return ""
}

func (idx *Index) typeRefOrDefName(tbl table, row uint32) string {
	ts := idx.root.tables
	strSize := ts.heapIdxSize(ts.wideString)
	switch tbl {
	case tblTypeRef:
		r, err := ts.row(tblTypeRef, row)
		if err != nil {
			return ""
		}
		resScopeSize := ts.codedIdxSize(codedIndexSpec{2, []table{tblModule, tblModuleRef, tblTypeRef, 0xFF}})
		name, err := idx.root.strings.String(readIdx(r, resScopeSize, strSize))
		if err != nil {
			return ""
		}
		return name
	case tblTypeDef:
		r, err := ts.row(tblTypeDef, row)
		if err != nil {
			return ""
		}
		name, err := idx.root.strings.String(readIdx(r, 4, strSize))
		if err != nil {
			return ""
		}
		return name
	}
	return ""
}

// decodeAttributeArgs decodes a CustomAttribute value blob's fixed
// arguments per the known, fixed constructor shape of kind. Win32
// metadata's own attribute set is small and stable enough that hard-coding
// these shapes is simpler and more robust than generically resolving and
// interpreting each constructor's MethodRefSig.
func decodeAttributeArgs(blob []byte, kind CustomAttributeKind) []any {
	if len(blob) < 2 || blob[0] != 0x01 || blob[1] != 0x00 {
		return nil
	}
	c := &sigCursor{b: blob, pos: 2}
	readSerString := func() (string, bool) {
		if c.pos >= len(c.b) {
			return "", false
		}
		if c.b[c.pos] == 0xFF { // null string marker
			c.pos++
			return "", true
		}
		n, consumed, err := decodeCompressedUint(c.b[c.pos:])
		if err != nil {
			return "", false
		}
		c.pos += consumed
		end := c.pos + int(n)
		if end > len(c.b) {
			return "", false
		}
		s := string(c.b[c.pos:end])
		c.pos = end
		return s, true
	}
	readU32Arg := func() (uint32, bool) {
		if c.pos+4 > len(c.b) {
			return 0, false
		}
		v := readU32(c.b, c.pos)
		c.pos += 4
		return v, true
	}
	readU16Arg := func() (uint16, bool) {
		if c.pos+2 > len(c.b) {
			return 0, false
		}
		v := readU16(c.b, c.pos)
		c.pos += 2
		return v, true
	}
	readU8Arg := func() (byte, bool) {
		if c.pos >= len(c.b) {
			return 0, false
		}
		v := c.b[c.pos]
		c.pos++
		return v, true
	}
	switch kind {
	case AttrRAIIFree:
		if s, ok := readSerString(); ok {
			return []any{s}
		}
	case AttrAssociatedEnum, AttrSupportedOSPlatform:
		if s, ok := readSerString(); ok {
			return []any{s}
		}
	case AttrNativeBitfield:
		name, _ := readSerString()
		off, _ := readU32Arg()
		width, _ := readU32Arg()
		return []any{name, int(off), int(width)}
	case AttrGuid:
		var g [16]byte
		d1, ok1 := readU32Arg()
		d2, ok2 := readU16Arg()
		d3, ok3 := readU16Arg()
		if !ok1 || !ok2 || !ok3 {
			return nil
		}
		g[0], g[1], g[2], g[3] = byte(d1), byte(d1>>8), byte(d1>>16), byte(d1>>24)
		g[4], g[5] = byte(d2), byte(d2>>8)
		g[6], g[7] = byte(d3), byte(d3>>8)
		ok := true
		for i := 0; i < 8 && ok; i++ {
			var b byte
			b, ok = readU8Arg()
			g[8+i] = b
		}
		if !ok {
			return nil
		}
		return []any{g}
	case AttrNativeTypedef, AttrConstantSpecial, AttrNamespaceHandle:
		return nil
	}
	return nil
}

func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leSignExtend(b []byte, elemType byte) int64 {
	u := leUint(b)
	switch elemType {
	case elemI1:
		return int64(int8(u))
	case elemI2:
		return int64(int16(u))
	case elemI4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

func decodeU16LE(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[i*2]) | uint16(b[i*2+1])<<8
	}
	return out
}

func utf16ToString(u []uint16) string {
	var sb strings.Builder
	for _, r := range u {
		sb.WriteRune(rune(r))
	}
	return sb.String()
}
