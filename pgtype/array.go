package pgtype

import (
	"encoding/binary"
	"strings"

	"github.com/elefantpg/elefantpg-go/pgerror"
)

// Array decodes/encodes a one-dimensional Postgres array of any supported
// element type (spec.md section 4.7). NewElement constructs a fresh,
// zero-valued element codec; Array calls it once per decoded element, so it
// must not be nil.
type Array struct {
	OID         OID
	ElementOID  OID
	Delimiter   byte
	NewElement  func() Codec
	Elements    []Codec
	ElementNull []bool
}

func (a *Array) Accepts(oid OID) bool { return oid == a.OID }

// FromBinary decodes the one-dimensional binary array layout from spec.md
// section 4.7: dim-count, null-bitmap-present, element oid, then per
// dimension (size, lower-bound), then per element (length, bytes).
func (a *Array) FromBinary(data []byte, field Field) error {
	if len(data) < 12 {
		return typeMismatch(field, 12, len(data))
	}

	dims := int32(binary.BigEndian.Uint32(data[0:4]))
	hasNulls := binary.BigEndian.Uint32(data[4:8]) != 0
	elemOID := OID(binary.BigEndian.Uint32(data[8:12]))
	rest := data[12:]

	if dims == 0 {
		a.Elements = nil
		a.ElementNull = nil
		return nil
	}
	if dims != 1 {
		return pgerror.New(pgerror.KindUnsupportedMultiDimensional,
			"column %q: array has %d dimensions, only 1 is supported", field.Name, dims)
	}
	if a.NewElement != nil && !a.NewElement().Accepts(elemOID) {
		return pgerror.New(pgerror.KindElementTypeMismatch,
			"column %q: array element oid %d does not match expected element type", field.Name, elemOID)
	}

	if len(rest) < 8 {
		return typeMismatch(field, 8, len(rest))
	}
	size := int32(binary.BigEndian.Uint32(rest[0:4]))
	rest = rest[8:] // skip size + lower bound

	elemField := field
	elemField.OID = elemOID

	elements := make([]Codec, 0, size)
	nulls := make([]bool, 0, size)

	for i := int32(0); i < size; i++ {
		if len(rest) < 4 {
			return typeMismatch(field, 4, len(rest))
		}
		length := int32(binary.BigEndian.Uint32(rest[0:4]))
		rest = rest[4:]

		el := a.NewElement()
		if length == -1 {
			if err := el.FromNull(elemField); err != nil {
				return err
			}
			elements = append(elements, el)
			nulls = append(nulls, true)
			continue
		}

		if int32(len(rest)) < length {
			return typeMismatch(field, int(length), len(rest))
		}
		if err := el.FromBinary(rest[:length], elemField); err != nil {
			return err
		}
		rest = rest[length:]
		elements = append(elements, el)
		nulls = append(nulls, false)
	}

	_ = hasNulls
	a.Elements = elements
	a.ElementNull = nulls
	return nil
}

// FromText decodes the braced, delimiter-separated text array layout from
// spec.md section 4.7, honoring double-quote grouping and an unquoted NULL
// literal as absence.
func (a *Array) FromText(data string, field Field) error {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return parseErr(field, strErrInvalidArray)
	}
	body := trimmed[1 : len(trimmed)-1]

	delim := a.Delimiter
	if delim == 0 {
		delim = ','
	}

	tokens := splitArrayTokens(body, delim)

	elemField := field
	elemField.OID = a.ElementOID

	elements := make([]Codec, 0, len(tokens))
	nulls := make([]bool, 0, len(tokens))

	for _, tok := range tokens {
		el := a.NewElement()
		if !tok.quoted && tok.value == "NULL" {
			if err := el.FromNull(elemField); err != nil {
				return err
			}
			elements = append(elements, el)
			nulls = append(nulls, true)
			continue
		}

		if err := el.FromText(tok.value, elemField); err != nil {
			return err
		}
		elements = append(elements, el)
		nulls = append(nulls, false)
	}

	a.Elements = elements
	a.ElementNull = nulls
	return nil
}

func (a *Array) FromNull(field Field) error { return DefaultFromNull(field) }

// ToBinary encodes the array back to the one-dimensional binary layout.
func (a *Array) ToBinary(out []byte) ([]byte, error) {
	var header [12]byte
	binary.BigEndian.PutUint32(header[0:4], 1)
	hasNulls := uint32(0)
	for _, n := range a.ElementNull {
		if n {
			hasNulls = 1
			break
		}
	}
	binary.BigEndian.PutUint32(header[4:8], hasNulls)
	binary.BigEndian.PutUint32(header[8:12], uint32(a.ElementOID))
	out = append(out, header[:]...)

	var dim [8]byte
	binary.BigEndian.PutUint32(dim[0:4], uint32(len(a.Elements)))
	binary.BigEndian.PutUint32(dim[4:8], 1) // lower bound
	out = append(out, dim[:]...)

	for i, el := range a.Elements {
		if i < len(a.ElementNull) && a.ElementNull[i] {
			var neg [4]byte
			binary.BigEndian.PutUint32(neg[:], uint32(int32(-1)))
			out = append(out, neg[:]...)
			continue
		}

		lenOffset := len(out)
		out = append(out, 0, 0, 0, 0)
		before := len(out)
		var err error
		out, err = el.ToBinary(out)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(out[lenOffset:lenOffset+4], uint32(len(out)-before))
	}

	return out, nil
}

func (a *Array) IsNull() bool { return false }

type arrayToken struct {
	value  string
	quoted bool
}

// splitArrayTokens splits body on delim, honoring double-quote grouping and
// backslash escapes within quotes, per spec.md section 4.7.
func splitArrayTokens(body string, delim byte) []arrayToken {
	if body == "" {
		return nil
	}

	var tokens []arrayToken
	var current strings.Builder
	inQuotes := false
	quoted := false
	escaped := false

	flush := func() {
		tokens = append(tokens, arrayToken{value: current.String(), quoted: quoted})
		current.Reset()
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			current.WriteByte(c)
			escaped = false
		case c == '\\' && inQuotes:
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
			quoted = true
		case c == delim && !inQuotes:
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return tokens
}

type arrayError string

func (e arrayError) Error() string { return string(e) }

const strErrInvalidArray = arrayError("invalid array literal: missing braces")
