package pgtype

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Bool decodes/encodes the Postgres boolean type: one byte, 0 or 1.
type Bool bool

func (v *Bool) Accepts(oid OID) bool { return oid == OIDBool }

func (v *Bool) FromBinary(data []byte, field Field) error {
	if len(data) != 1 {
		return typeMismatch(field, 1, len(data))
	}
	*v = data[0] != 0
	return nil
}

func (v *Bool) FromText(data string, field Field) error {
	switch data {
	case "t", "true", "TRUE", "T":
		*v = true
	case "f", "false", "FALSE", "F":
		*v = false
	default:
		return parseErr(field, strconv.ErrSyntax)
	}
	return nil
}

func (v *Bool) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Bool) ToBinary(out []byte) ([]byte, error) {
	if *v {
		return append(out, 1), nil
	}
	return append(out, 0), nil
}

func (v *Bool) IsNull() bool { return false }

// Char decodes/encodes Postgres "char": a single byte, not NUL-terminated.
type Char byte

func (v *Char) Accepts(oid OID) bool { return oid == OIDChar }

func (v *Char) FromBinary(data []byte, field Field) error {
	if len(data) != 1 {
		return typeMismatch(field, 1, len(data))
	}
	*v = Char(data[0])
	return nil
}

func (v *Char) FromText(data string, field Field) error {
	if len(data) != 1 {
		return parseErr(field, strconv.ErrSyntax)
	}
	*v = Char(data[0])
	return nil
}

func (v *Char) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Char) ToBinary(out []byte) ([]byte, error) { return append(out, byte(*v)), nil }

func (v *Char) IsNull() bool { return false }

// Int2 decodes/encodes Postgres int2 (smallint).
type Int2 int16

func (v *Int2) Accepts(oid OID) bool { return oid == OIDInt2 }

func (v *Int2) FromBinary(data []byte, field Field) error {
	if len(data) != 2 {
		return typeMismatch(field, 2, len(data))
	}
	*v = Int2(binary.BigEndian.Uint16(data))
	return nil
}

func (v *Int2) FromText(data string, field Field) error {
	n, err := strconv.ParseInt(data, 10, 16)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Int2(n)
	return nil
}

func (v *Int2) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Int2) ToBinary(out []byte) ([]byte, error) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(*v))
	return append(out, buf[:]...), nil
}

func (v *Int2) IsNull() bool { return false }

// Int4 decodes/encodes Postgres int4 (integer).
type Int4 int32

func (v *Int4) Accepts(oid OID) bool { return oid == OIDInt4 }

func (v *Int4) FromBinary(data []byte, field Field) error {
	if len(data) != 4 {
		return typeMismatch(field, 4, len(data))
	}
	*v = Int4(binary.BigEndian.Uint32(data))
	return nil
}

func (v *Int4) FromText(data string, field Field) error {
	n, err := strconv.ParseInt(data, 10, 32)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Int4(n)
	return nil
}

func (v *Int4) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Int4) ToBinary(out []byte) ([]byte, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(*v))
	return append(out, buf[:]...), nil
}

func (v *Int4) IsNull() bool { return false }

// Int8 decodes/encodes Postgres int8 (bigint).
type Int8 int64

func (v *Int8) Accepts(oid OID) bool { return oid == OIDInt8 }

func (v *Int8) FromBinary(data []byte, field Field) error {
	if len(data) != 8 {
		return typeMismatch(field, 8, len(data))
	}
	*v = Int8(binary.BigEndian.Uint64(data))
	return nil
}

func (v *Int8) FromText(data string, field Field) error {
	n, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Int8(n)
	return nil
}

func (v *Int8) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Int8) ToBinary(out []byte) ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(*v))
	return append(out, buf[:]...), nil
}

func (v *Int8) IsNull() bool { return false }

// Float4 decodes/encodes Postgres float4 (real).
type Float4 float32

func (v *Float4) Accepts(oid OID) bool { return oid == OIDFloat4 }

func (v *Float4) FromBinary(data []byte, field Field) error {
	if len(data) != 4 {
		return typeMismatch(field, 4, len(data))
	}
	*v = Float4(math.Float32frombits(binary.BigEndian.Uint32(data)))
	return nil
}

func (v *Float4) FromText(data string, field Field) error {
	n, err := strconv.ParseFloat(data, 32)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Float4(n)
	return nil
}

func (v *Float4) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Float4) ToBinary(out []byte) ([]byte, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], math.Float32bits(float32(*v)))
	return append(out, buf[:]...), nil
}

func (v *Float4) IsNull() bool { return false }

// Float8 decodes/encodes Postgres float8 (double precision).
type Float8 float64

func (v *Float8) Accepts(oid OID) bool { return oid == OIDFloat8 }

func (v *Float8) FromBinary(data []byte, field Field) error {
	if len(data) != 8 {
		return typeMismatch(field, 8, len(data))
	}
	*v = Float8(math.Float64frombits(binary.BigEndian.Uint64(data)))
	return nil
}

func (v *Float8) FromText(data string, field Field) error {
	n, err := strconv.ParseFloat(data, 64)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Float8(n)
	return nil
}

func (v *Float8) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Float8) ToBinary(out []byte) ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(float64(*v)))
	return append(out, buf[:]...), nil
}

func (v *Float8) IsNull() bool { return false }

// Text decodes/encodes Postgres text; binary and text wire formats are
// identical UTF-8 bytes.
type Text string

func (v *Text) Accepts(oid OID) bool { return oid == OIDText }

func (v *Text) FromBinary(data []byte, field Field) error {
	*v = Text(data)
	return nil
}

func (v *Text) FromText(data string, field Field) error {
	*v = Text(data)
	return nil
}

func (v *Text) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Text) ToBinary(out []byte) ([]byte, error) { return append(out, *v...), nil }

func (v *Text) IsNull() bool { return false }

// Bytea decodes/encodes Postgres bytea. Binary format is raw bytes; text
// format is the hex form `\xHHHH...` (spec.md section 4.7).
type Bytea []byte

func (v *Bytea) Accepts(oid OID) bool { return oid == OIDBytea }

func (v *Bytea) FromBinary(data []byte, field Field) error {
	*v = append(Bytea(nil), data...)
	return nil
}

func (v *Bytea) FromText(data string, field Field) error {
	if len(data) < 2 || data[0] != '\\' || data[1] != 'x' {
		return parseErr(field, strconv.ErrSyntax)
	}
	hex := data[2:]
	if len(hex)%2 != 0 {
		return parseErr(field, strconv.ErrSyntax)
	}
	out := make([]byte, len(hex)/2)
	for i := 0; i < len(out); i++ {
		b, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return parseErr(field, err)
		}
		out[i] = byte(b)
	}
	*v = out
	return nil
}

func (v *Bytea) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Bytea) ToBinary(out []byte) ([]byte, error) { return append(out, *v...), nil }

func (v *Bytea) IsNull() bool { return false }

// Oid decodes/encodes the Postgres oid pseudo-type: an unsigned 4-byte
// integer on the wire, exposed as a signed int32 to match Field.OID.
type Oid int32

func (v *Oid) Accepts(oid OID) bool { return oid == OIDOID }

func (v *Oid) FromBinary(data []byte, field Field) error {
	if len(data) != 4 {
		return typeMismatch(field, 4, len(data))
	}
	*v = Oid(binary.BigEndian.Uint32(data))
	return nil
}

func (v *Oid) FromText(data string, field Field) error {
	n, err := strconv.ParseUint(data, 10, 32)
	if err != nil {
		return parseErr(field, err)
	}
	*v = Oid(n)
	return nil
}

func (v *Oid) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Oid) ToBinary(out []byte) ([]byte, error) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(*v))
	return append(out, buf[:]...), nil
}

func (v *Oid) IsNull() bool { return false }
