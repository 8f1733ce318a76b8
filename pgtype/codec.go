// Package pgtype implements the type conversion layer described in
// spec.md section 4.7: a small registry of canonical Postgres types keyed by
// oid, each exposing a Codec that decodes binary and text and encodes
// binary, plus the Nullable,
// one-dimensional Array and Domain decorators that compose over any Codec.
package pgtype

import (
	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// OID is a Postgres type oid.
type OID = int32

// Well-known scalar type oids (see https://www.postgresql.org/docs/current/datatype-oid.html).
const (
	OIDBool  OID = 16
	OIDChar  OID = 18
	OIDText  OID = 25
	OIDInt8  OID = 20
	OIDInt2  OID = 21
	OIDInt4  OID = 23
	OIDOID   OID = 26
	OIDPoint OID = 600
	OIDFloat4 OID = 700
	OIDFloat8 OID = 701
	OIDBytea  OID = 17
	OIDUUID   OID = 2950

	OIDBoolArray  OID = 1000
	OIDByteaArray OID = 1001
	OIDCharArray  OID = 1002
	OIDInt2Array  OID = 1005
	OIDInt4Array  OID = 1007
	OIDTextArray  OID = 1009
	OIDInt8Array  OID = 1016
	OIDFloat4Array OID = 1021
	OIDFloat8Array OID = 1022
	OIDUUIDArray   OID = 2951
	OIDOIDArray    OID = 1028
	OIDPointArray  OID = 1017
)

// Field carries the column metadata a Codec needs to produce a useful error
// message (spec.md section 4.5 "Row typed-access").
type Field struct {
	Name   string
	OID    OID
	Format protocol.FormatCode
}

// Codec is the type contract from spec.md section 4.7. A value type
// implements Codec on a pointer receiver so FromBinary/FromText/FromNull can
// populate it in place; a row column is decoded by passing such a pointer to
// elefantpg.Scan.
type Codec interface {
	// Accepts reports whether this codec can decode a column declared with
	// the given oid.
	Accepts(oid OID) bool
	// FromBinary decodes a binary-format, non-null value.
	FromBinary(data []byte, field Field) error
	// FromText decodes a text-format, non-null value.
	FromText(data string, field Field) error
	// FromNull handles a SQL NULL; the default behaviour is to error, per
	// spec.md section 4.7 ("optional from_null ... default errors").
	FromNull(field Field) error
	// ToBinary appends this value's binary encoding to out.
	ToBinary(out []byte) ([]byte, error)
	// IsNull reports whether this value represents absence (used by
	// Nullable; scalar codecs always return false).
	IsNull() bool
}

// DefaultFromNull is embedded or called by scalar codecs to get the default
// from_null behaviour spec.md section 4.7 describes: error unless overridden
// (as Nullable does).
func DefaultFromNull(field Field) error {
	return pgerror.New(pgerror.KindUnexpectedNullValue, "column %q (oid %d) is NULL", field.Name, field.OID)
}

// unsupportedField builds the UnsupportedFieldType error spec.md section 4.5
// names for a codec/oid mismatch.
func unsupportedField(field Field, wantOID OID) error {
	return pgerror.New(pgerror.KindUnsupportedFieldType,
		"column %q has oid %d, wanted %d", field.Name, field.OID, wantOID)
}

// typeMismatch is returned when a binary payload's declared length doesn't
// match what the scalar codec expects.
func typeMismatch(field Field, want, got int) error {
	return pgerror.New(pgerror.KindTypeMismatch,
		"column %q: expected %d bytes, got %d", field.Name, want, got)
}

func parseErr(field Field, cause error) error {
	return pgerror.Wrap(pgerror.KindDataTypeParseError, false, cause,
		"column %q (oid %d)", field.Name, field.OID)
}
