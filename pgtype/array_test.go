package pgtype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArrayTextDecode(t *testing.T) {
	arr := NewArrayCodec(OIDInt4Array)
	require.NotNil(t, arr)

	field := Field{Name: "ids", OID: OIDInt4Array}
	require.NoError(t, arr.FromText("{1,2,NULL,4}", field))
	require.Len(t, arr.Elements, 4)
	require.Equal(t, []bool{false, false, true, false}, arr.ElementNull)

	second, ok := arr.Elements[1].(*Int4)
	require.True(t, ok)
	require.Equal(t, Int4(2), *second)
}

func TestArrayBinaryRoundTrip(t *testing.T) {
	src := NewArrayCodec(OIDInt4Array)
	field := Field{Name: "ids", OID: OIDInt4Array}
	require.NoError(t, src.FromText("{10,20,30}", field))

	encoded, err := src.ToBinary(nil)
	require.NoError(t, err)

	dst := NewArrayCodec(OIDInt4Array)
	require.NoError(t, dst.FromBinary(encoded, field))
	require.Len(t, dst.Elements, 3)
}

func TestArrayRejectsElementOIDMismatch(t *testing.T) {
	dst := NewArrayCodec(OIDInt4Array)
	field := Field{Name: "ids", OID: OIDInt4Array}

	src := NewArrayCodec(OIDTextArray)
	textField := Field{Name: "names", OID: OIDTextArray}
	require.NoError(t, src.FromText(`{a,b}`, textField))
	encoded, err := src.ToBinary(nil)
	require.NoError(t, err)

	require.Error(t, dst.FromBinary(encoded, field))
}
