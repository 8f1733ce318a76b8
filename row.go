package elefantpg

import (
	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/pgtype"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// Row is a single decoded result row. It borrows its underlying byte values
// from the connection's read buffer; the view is invalid once the next row
// is read (spec.md section 4.5 "the next row invalidates the previous row
// view").
type Row struct {
	fields []protocol.Field
	values [][]byte
}

// NumColumns returns the number of columns in the row.
func (r *Row) NumColumns() int { return len(r.fields) }

// Field returns the column descriptor at index.
func (r *Row) Field(index int) protocol.Field { return r.fields[index] }

// IsNull reports whether the column at index is SQL NULL.
func (r *Row) IsNull(index int) bool { return r.values[index] == nil }

// RawValue returns the column's undecoded wire bytes (text-format for a
// simple-query result, binary-format for an extended-query result bound
// with FormatBinary), borrowed from the connection's read buffer. Callers
// that only need to display or forward a value, rather than decode it
// through a Codec, can use this directly instead of Scan.
func (r *Row) RawValue(index int) []byte { return r.values[index] }

// Scan decodes column index into dst, dispatching to the binary or text
// decoder according to the field's wire format and verifying dst accepts
// the column's declared oid first (spec.md section 4.5 "Row typed-access").
func Scan(r *Row, index int, dst pgtype.Codec) error {
	if index < 0 || index >= len(r.fields) {
		return pgerror.New(pgerror.KindTypeMismatch, "column index %d out of range (have %d columns)", index, len(r.fields))
	}

	field := r.fields[index]
	pf := pgtype.Field{Name: field.Name, OID: field.DataTypeOID, Format: field.Format}

	if !dst.Accepts(field.DataTypeOID) {
		return pgerror.New(pgerror.KindUnsupportedFieldType, "column %q has oid %d, destination does not accept it", field.Name, field.DataTypeOID)
	}

	raw := r.values[index]
	if raw == nil {
		return dst.FromNull(pf)
	}

	if field.Format == protocol.FormatBinary {
		return dst.FromBinary(raw, pf)
	}
	return dst.FromText(string(raw), pf)
}
