// Package metadata provides random-access and name-based lookup over a
// precompiled Win32 API metadata file (.winmd, ECMA-335 physical layout).
//
// The index never mutates the underlying file and is safe to keep open for
// the lifetime of one generation session; it is not safe for concurrent use
// from multiple goroutines (see the module's concurrency model).
package metadata

// TypeKind classifies a TypeDef by its declaration shape.
type TypeKind int

const (
	KindStruct TypeKind = iota
	KindUnion
	KindEnum
	KindDelegate
	KindInterface
	KindClass
	KindHandleTypedef
)

func (k TypeKind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindEnum:
		return "enum"
	case KindDelegate:
		return "delegate"
	case KindInterface:
		return "interface"
	case KindClass:
		return "class"
	case KindHandleTypedef:
		return "handle-typedef"
	default:
		return "unknown"
	}
}

// Layout captures the struct/union layout attribute: sequential with an
// optional pack size, or explicit (every field carries its own offset).
type Layout struct {
	Explicit bool
	Pack     int // 0 means unspecified/default
}

// Entity is the opaque handle type shared by every metadata lookup. It is
// comparable and stable for the duration of one Index's lifetime, which
// makes it usable as a map key in EmissionKey (see package accumulate).
type Entity struct {
	token uint32 // metadata token: high byte = table, low 3 bytes = row index
}

// Token returns the raw ECMA-335 metadata token backing this entity.
func (e Entity) Token() uint32 { return e.token }

// IsZero reports whether e is the zero-value Entity (never a valid handle).
func (e Entity) IsZero() bool { return e.token == 0 }

// TypeDef describes a named declared type: namespace, name, kind, layout,
// base, fields, methods, attributes, and enclosing type for nested types.
type TypeDef struct {
	Entity      Entity
	Namespace   string
	Name        string
	Kind        TypeKind
	Layout      Layout
	Base        Entity // zero Entity if none
	Fields      []FieldDef
	Methods     []MethodDef
	Attributes  []CustomAttribute
	Enclosing   Entity // zero Entity if not nested
	BaseIfaces  []Entity // COM interface bases, declaration order
	GUID        [16]byte // zero value if the type carries no Guid attribute
	HasGUID     bool
	UnderlyingI TypeKind // meaningful for enums only: always KindEnum here, kept for symmetry
}

// ParamFlags mirrors the in/out/optional/marshalling-hint flags a
// MethodDef parameter carries in metadata.
type ParamFlags struct {
	In               bool
	Out              bool
	Optional         bool
	SizeParamIndex   int  // -1 when absent
	SizeConst        int  // -1 when absent
	SizeIsReturn     bool // length is the return value itself
	NullNullTerm     bool
	RetValThunk      bool // this "parameter" models the raw return value
}

// Param describes one parameter (or, when RetValThunk is set, the return
// value) of a MethodDef signature.
type Param struct {
	Name  string
	Type  TypeRef
	Flags ParamFlags
}

// CallingConvention enumerates the P/Invoke calling conventions seen in
// Win32 metadata. Winapi resolves to stdcall on x86/amd64/arm64, the only
// targets this generator supports.
type CallingConvention int

const (
	ConvWinapi CallingConvention = iota
	ConvCdecl
	ConvStdcall
	ConvFastcall
	ConvThiscall
)

// PInvokeInfo carries the module/entry-point/calling-convention metadata a
// P/Invoke MethodDef declares.
type PInvokeInfo struct {
	Module        string
	EntryPoint    string
	CallConv      CallingConvention
	PreserveSig   bool
	SetLastError  bool
}

// MethodDef describes a metadata method: a P/Invoke extern, a COM interface
// slot, or a delegate's Invoke signature.
type MethodDef struct {
	Entity     Entity
	Name       string
	Params     []Param
	Return     Param
	PInvoke    *PInvokeInfo // nil for COM/delegate methods
	Owner      Entity       // the owning TypeDef
	Attributes []CustomAttribute

	// ReturnTypeNameHint is the simple name of the return type when it is
	// a RefNamed TypeRef (e.g. "BOOL", "HRESULT"), resolved at decode
	// time since handlepolicy needs to recognize the handful of
	// well-known status-code return shapes by name without re-resolving
	// the whole type graph itself.
	ReturnTypeNameHint string
}

// FieldDef describes a struct/union field or an enum member.
type FieldDef struct {
	Entity        Entity
	Name          string
	Type          TypeRef
	Offset        int  // meaningful only under explicit layout
	HasOffset     bool
	ConstantValue *ConstantRef // non-nil for enum members / literal fields
	FixedArrayLen int          // >0 when the field is a fixed inline array
	Bitfield      *BitfieldInfo
	Attributes    []CustomAttribute
}

// AssociatedEnumNames returns the enum type names this field's
// AssociatedEnum attributes (if any) name as the secondary destination its
// constant value should be folded into.
func (f FieldDef) AssociatedEnumNames() []string {
	var out []string
	for _, a := range f.Attributes {
		if a.Kind == AttrAssociatedEnum && len(a.Args) > 0 {
			if s, ok := a.Args[0].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// BitfieldInfo describes a NativeBitfield-tagged field.
type BitfieldInfo struct {
	BackingField string // name of the backing scalar field this bit range lives in
	BitOffset    int
	BitWidth     int
}

// ConstantKind discriminates the payload shape of a ConstantRef.
type ConstantKind int

const (
	ConstInt ConstantKind = iota
	ConstFloat
	ConstFloatNaN
	ConstFloatPosInf
	ConstFloatNegInf
	ConstString
	ConstGUID
	ConstHandleSentinel
)

// ConstantRef describes a named constant.
type ConstantRef struct {
	Entity        Entity
	Name          string
	DeclaredType  TypeRef
	Kind          ConstantKind
	IntValue      int64
	FloatValue    float64
	StringValue   string
	GUIDValue     [16]byte
	HandleTypeRef TypeRef // set when Kind == ConstHandleSentinel
}

// CustomAttributeKind enumerates the metadata attribute kinds this
// generator consults.
type CustomAttributeKind int

const (
	AttrRAIIFree CustomAttributeKind = iota
	AttrNativeTypedef
	AttrConstantSpecial
	AttrNativeBitfield
	AttrSupportedOSPlatform
	AttrAssociatedEnum
	AttrGuid
	AttrNamespaceHandle
)

// CustomAttribute carries one attribute instance's argument tuple.
type CustomAttribute struct {
	Kind CustomAttributeKind
	Args []any
}

// TypeRefKind discriminates the shape of a TypeRef.
type TypeRefKind int

const (
	RefPrimitive TypeRefKind = iota
	RefNamed                 // refers to a TypeDef by Entity
	RefPointer
	RefArray // fixed or size-param array, disambiguated by FieldDef/Param flags
)

// PrimitiveKind enumerates the metadata primitive types with bit-exact
// width and signedness.
type PrimitiveKind int

const (
	PrimVoid PrimitiveKind = iota
	PrimBool                // native boolean (rare in Win32 metadata, distinct from typedef BOOL)
	PrimI8
	PrimU8
	PrimI16
	PrimU16
	PrimI32
	PrimU32
	PrimI64
	PrimU64
	PrimF32
	PrimF64
	PrimChar  // single UTF-16 code unit
	PrimGUID
)

// TypeRef is a metadata type signature: a primitive, a reference to a
// TypeDef, a pointer, or an array.
type TypeRef struct {
	Kind      TypeRefKind
	Primitive PrimitiveKind
	Named     Entity
	Elem      *TypeRef // pointer/array element type
}
