package metadata

import "fmt"

// ECMA-335 II.23.1.16 element-type constants, restricted to the subset
// Win32 metadata signatures actually use.
const (
	elemEnd      = 0x00
	elemVoid     = 0x01
	elemBoolean  = 0x02
	elemChar     = 0x03
	elemI1       = 0x04
	elemU1       = 0x05
	elemI2       = 0x06
	elemU2       = 0x07
	elemI4       = 0x08
	elemU4       = 0x09
	elemI8       = 0x0a
	elemU8       = 0x0b
	elemR4       = 0x0c
	elemR8       = 0x0d
	elemString   = 0x0e
	elemPtr      = 0x0f
	elemByRef    = 0x10
	elemValueT   = 0x11
	elemClass    = 0x12
	elemVar      = 0x13
	elemArray    = 0x14
	elemGenInst  = 0x15
	elemI        = 0x18
	elemU        = 0x19
	elemFnPtr    = 0x1b
	elemObject   = 0x1c
	elemSzArray  = 0x1d
	elemMVar     = 0x1e
	elemCModReqd = 0x1f
	elemCModOpt  = 0x20
	elemSentinel = 0x41
	elemPinned   = 0x45
)

// sigCursor walks a signature blob one element at a time.
type sigCursor struct {
	b   []byte
	pos int
}

func (c *sigCursor) byte() (byte, error) {
	if c.pos >= len(c.b) {
		return 0, fmt.Errorf("signature: unexpected end of blob")
	}
	v := c.b[c.pos]
	c.pos++
	return v, nil
}

func (c *sigCursor) compressed() (uint32, error) {
	if c.pos >= len(c.b) {
		return 0, fmt.Errorf("signature: unexpected end of blob reading compressed uint")
	}
	v, n, err := decodeCompressedUint(c.b[c.pos:])
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// typeDefOrRefOrSpec decodes a compressed token per ECMA-335 II.23.2.8:
// the low 2 bits select TypeDef(0)/TypeRef(1)/TypeSpec(2), the remaining
// bits are the 1-based row index.
func typeDefOrRefOrSpecEntity(encoded uint32) Entity {
	tag := encoded & 0x3
	row := encoded >> 2
	var tbl table
	switch tag {
	case 0:
		tbl = tblTypeDef
	case 1:
		tbl = tblTypeRef
	default:
		// TypeSpec: not modeled as a distinct table by this reader; callers
		// treat it as an opaque named reference keyed by its raw token.
		tbl = 0x1B
	}
	return Entity{token: (uint32(tbl) << 24) | row}
}

// decodeType decodes one ECMA-335 II.23.2.12 Type production into a
// TypeRef, handling the primitives, pointers, SZARRAY/ARRAY, and named
// value-type/class references Win32 metadata signatures use. Custom
// modifiers are skipped (they carry no bearing on the Go projection).
func decodeType(c *sigCursor) (TypeRef, error) {
	for {
		et, err := c.byte()
		if err != nil {
			return TypeRef{}, err
		}
		switch et {
		case elemCModReqd, elemCModOpt:
			if _, err := c.compressed(); err != nil {
				return TypeRef{}, err
			}
			continue // modifier consumed; loop to read the underlying type
		case elemVoid:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimVoid}, nil
		case elemBoolean:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimBool}, nil
		case elemChar:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimChar}, nil
		case elemI1:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimI8}, nil
		case elemU1:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU8}, nil
		case elemI2:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimI16}, nil
		case elemU2:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU16}, nil
		case elemI4:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimI32}, nil
		case elemU4:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU32}, nil
		case elemI8:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimI64}, nil
		case elemU8:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU64}, nil
		case elemR4:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimF32}, nil
		case elemR8:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimF64}, nil
		case elemI, elemU:
			// Native-sized integer: Win32 metadata uses these for handle-ish
			// sentinels; projected as 64-bit to stay correct on all targets.
			if et == elemI {
				return TypeRef{Kind: RefPrimitive, Primitive: PrimI64}, nil
			}
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU64}, nil
		case elemPtr:
			elem, err := decodeType(c)
			if err != nil {
				return TypeRef{}, err
			}
			return TypeRef{Kind: RefPointer, Elem: &elem}, nil
		case elemSzArray:
			elem, err := decodeType(c)
			if err != nil {
				return TypeRef{}, err
			}
			return TypeRef{Kind: RefArray, Elem: &elem}, nil
		case elemArray:
			elem, err := decodeType(c)
			if err != nil {
				return TypeRef{}, err
			}
			// ArrayShape: rank, numSizes, size*, numLoBounds, loBound*.
			if _, err := c.compressed(); err != nil { // rank
				return TypeRef{}, err
			}
			numSizes, err := c.compressed()
			if err != nil {
				return TypeRef{}, err
			}
			for i := uint32(0); i < numSizes; i++ {
				if _, err := c.compressed(); err != nil {
					return TypeRef{}, err
				}
			}
			numLo, err := c.compressed()
			if err != nil {
				return TypeRef{}, err
			}
			for i := uint32(0); i < numLo; i++ {
				if _, err := c.compressed(); err != nil {
					return TypeRef{}, err
				}
			}
			return TypeRef{Kind: RefArray, Elem: &elem}, nil
		case elemValueT, elemClass:
			tok, err := c.compressed()
			if err != nil {
				return TypeRef{}, err
			}
			return TypeRef{Kind: RefNamed, Named: typeDefOrRefOrSpecEntity(tok)}, nil
		case elemObject:
			return TypeRef{Kind: RefPrimitive, Primitive: PrimU64}, nil // opaque handle-ish fallback
		default:
			return TypeRef{}, fmt.Errorf("signature: unsupported element type 0x%x", et)
		}
	}
}

// decodeFieldSig decodes a FieldSig blob (II.23.2.4): a 0x06 calling-
// convention byte, optional custom mods, then the field's Type.
func decodeFieldSig(blob []byte) (TypeRef, error) {
	c := &sigCursor{b: blob}
	cc, err := c.byte()
	if err != nil {
		return TypeRef{}, err
	}
	if cc != 0x06 {
		return TypeRef{}, fmt.Errorf("field signature: expected calling convention 0x06, got 0x%x", cc)
	}
	return decodeType(c)
}

// decodeMethodSig decodes a MethodDefSig blob (II.23.2.1): calling
// convention, param count, return type, then each parameter's type in
// order. Parameter names/flags are filled in separately from the Param
// table; this function only establishes the type shape and arity.
func decodeMethodSig(blob []byte) (ret TypeRef, params []TypeRef, err error) {
	c := &sigCursor{b: blob}
	if _, err = c.byte(); err != nil { // calling convention
		return
	}
	paramCount, err := c.compressed()
	if err != nil {
		return
	}
	ret, err = decodeType(c)
	if err != nil {
		return
	}
	params = make([]TypeRef, 0, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		t, err := decodeType(c)
		if err != nil {
			return TypeRef{}, nil, err
		}
		params = append(params, t)
	}
	return ret, params, nil
}
