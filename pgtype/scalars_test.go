package pgtype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarBinaryRoundTrip(t *testing.T) {
	field := Field{Name: "col", OID: OIDInt4}

	var original Int4 = -42
	encoded, err := original.ToBinary(nil)
	require.NoError(t, err)

	var decoded Int4
	require.True(t, decoded.Accepts(OIDInt4))
	require.NoError(t, decoded.FromBinary(encoded, field))
	require.Equal(t, original, decoded)
}

func TestScalarTextDecode(t *testing.T) {
	field := Field{Name: "col", OID: OIDFloat8}

	var v Float8
	require.NoError(t, v.FromText("3.5", field))
	require.Equal(t, Float8(3.5), v)
}

func TestBoolTextVariants(t *testing.T) {
	field := Field{Name: "flag", OID: OIDBool}

	for _, text := range []string{"t", "true", "TRUE", "T"} {
		var v Bool
		require.NoError(t, v.FromText(text, field))
		require.True(t, bool(v))
	}

	var v Bool
	require.Error(t, v.FromText("maybe", field))
}

func TestIntBinaryRejectsWrongWidth(t *testing.T) {
	field := Field{Name: "col", OID: OIDInt8}

	var v Int8
	err := v.FromBinary([]byte{1, 2, 3}, field)
	require.Error(t, err)
}

func TestNullableWrapsNull(t *testing.T) {
	field := Field{Name: "col", OID: OIDText}

	var inner Text
	n := Nullable[*Text]{Inner: &inner}
	require.True(t, n.Accepts(OIDText))
	require.NoError(t, n.FromNull(field))
	require.True(t, n.IsNull())

	require.NoError(t, n.FromText("hi", field))
	require.False(t, n.IsNull())
	require.Equal(t, Text("hi"), inner)
}
