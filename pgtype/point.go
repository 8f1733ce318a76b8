package pgtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point decodes/encodes the Postgres geometric point type: two float8s.
// Binary: two big-endian float8s. Text: "(x,y)", optionally wrapped in
// double quotes when it appears as an array element (spec.md section 4.7).
type Point struct {
	X, Y float64
}

func (v *Point) Accepts(oid OID) bool { return oid == OIDPoint }

func (v *Point) FromBinary(data []byte, field Field) error {
	if len(data) != 16 {
		return typeMismatch(field, 16, len(data))
	}
	v.X = math.Float64frombits(binary.BigEndian.Uint64(data[0:8]))
	v.Y = math.Float64frombits(binary.BigEndian.Uint64(data[8:16]))
	return nil
}

func (v *Point) FromText(data string, field Field) error {
	trimmed := strings.TrimSpace(data)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if len(trimmed) < 2 || trimmed[0] != '(' || trimmed[len(trimmed)-1] != ')' {
		return parseErr(field, fmt.Errorf("invalid point literal %q", data))
	}

	parts := strings.SplitN(trimmed[1:len(trimmed)-1], ",", 2)
	if len(parts) != 2 {
		return parseErr(field, fmt.Errorf("point must have exactly 2 coordinates, got %q", data))
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return parseErr(field, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return parseErr(field, err)
	}

	v.X, v.Y = x, y
	return nil
}

func (v *Point) FromNull(field Field) error { return DefaultFromNull(field) }

func (v *Point) ToBinary(out []byte) ([]byte, error) {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(v.X))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(v.Y))
	return append(out, buf[:]...), nil
}

func (v *Point) IsNull() bool { return false }
