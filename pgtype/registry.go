package pgtype

// Descriptor is one row of the type descriptor table from spec.md section
// 4.7: every supported canonical type keyed by oid, with its name and, for
// arrays, a pointer to the element descriptor and the element delimiter.
type Descriptor struct {
	OID       OID
	Name      string
	Element   *Descriptor // non-nil for array types
	Delimiter byte        // meaningful only when Element != nil
}

// registry is the process-wide table of canonical types this driver knows
// about (spec.md section 4.7's fixed type list). It is built once at
// package init and never mutated afterward, so concurrent lookups need no
// locking.
var registry = map[OID]*Descriptor{}

func register(d *Descriptor) *Descriptor {
	registry[d.OID] = d
	return d
}

var (
	descBool  = register(&Descriptor{OID: OIDBool, Name: "bool"})
	descChar  = register(&Descriptor{OID: OIDChar, Name: "char"})
	descInt2  = register(&Descriptor{OID: OIDInt2, Name: "int2"})
	descInt4  = register(&Descriptor{OID: OIDInt4, Name: "int4"})
	descInt8  = register(&Descriptor{OID: OIDInt8, Name: "int8"})
	descFloat4 = register(&Descriptor{OID: OIDFloat4, Name: "float4"})
	descFloat8 = register(&Descriptor{OID: OIDFloat8, Name: "float8"})
	descText  = register(&Descriptor{OID: OIDText, Name: "text"})
	descBytea = register(&Descriptor{OID: OIDBytea, Name: "bytea"})
	descOID   = register(&Descriptor{OID: OIDOID, Name: "oid"})
	descUUID  = register(&Descriptor{OID: OIDUUID, Name: "uuid"})
	descPoint = register(&Descriptor{OID: OIDPoint, Name: "point"})

	_ = register(&Descriptor{OID: OIDBoolArray, Name: "_bool", Element: descBool, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDCharArray, Name: "_char", Element: descChar, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDInt2Array, Name: "_int2", Element: descInt2, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDInt4Array, Name: "_int4", Element: descInt4, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDInt8Array, Name: "_int8", Element: descInt8, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDFloat4Array, Name: "_float4", Element: descFloat4, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDFloat8Array, Name: "_float8", Element: descFloat8, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDTextArray, Name: "_text", Element: descText, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDByteaArray, Name: "_bytea", Element: descBytea, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDOIDArray, Name: "_oid", Element: descOID, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDUUIDArray, Name: "_uuid", Element: descUUID, Delimiter: ','})
	_ = register(&Descriptor{OID: OIDPointArray, Name: "_point", Element: descPoint, Delimiter: ','})
)

// Lookup returns the descriptor registered for oid, or nil if unknown.
func Lookup(oid OID) *Descriptor {
	return registry[oid]
}

// NewCodec constructs a fresh, zero-valued Codec for a scalar descriptor.
// Array columns should use the Array type directly instead, since its
// element factory needs to close over the element descriptor.
func NewCodec(oid OID) Codec {
	switch oid {
	case OIDBool:
		return new(Bool)
	case OIDChar:
		return new(Char)
	case OIDInt2:
		return new(Int2)
	case OIDInt4:
		return new(Int4)
	case OIDInt8:
		return new(Int8)
	case OIDFloat4:
		return new(Float4)
	case OIDFloat8:
		return new(Float8)
	case OIDText:
		return new(Text)
	case OIDBytea:
		return new(Bytea)
	case OIDOID:
		return new(Oid)
	case OIDUUID:
		return new(UUID)
	case OIDPoint:
		return new(Point)
	default:
		return nil
	}
}

// NewArrayCodec constructs an Array codec for an array oid, wiring its
// element factory from the registered element descriptor.
func NewArrayCodec(oid OID) *Array {
	d := Lookup(oid)
	if d == nil || d.Element == nil {
		return nil
	}

	elementOID := d.Element.OID
	return &Array{
		OID:        oid,
		ElementOID: elementOID,
		Delimiter:  d.Delimiter,
		NewElement: func() Codec { return NewCodec(elementOID) },
	}
}
