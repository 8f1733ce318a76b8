package pgtype

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUUIDRoundTrip(t *testing.T) {
	field := Field{Name: "id", OID: OIDUUID}

	want := uuid.New()
	var v UUID
	require.NoError(t, v.FromText(want.String(), field))

	encoded, err := v.ToBinary(nil)
	require.NoError(t, err)

	var decoded UUID
	require.NoError(t, decoded.FromBinary(encoded, field))
	require.Equal(t, want, decoded.UUID)
}

func TestPointTextRoundTrip(t *testing.T) {
	field := Field{Name: "p", OID: OIDPoint}

	var v Point
	require.NoError(t, v.FromText("(1.5,-2.25)", field))
	require.Equal(t, 1.5, v.X)
	require.Equal(t, -2.25, v.Y)

	encoded, err := v.ToBinary(nil)
	require.NoError(t, err)

	var decoded Point
	require.NoError(t, decoded.FromBinary(encoded, field))
	require.Equal(t, v, decoded)
}

func TestPointTextRejectsMalformed(t *testing.T) {
	field := Field{Name: "p", OID: OIDPoint}
	var v Point
	require.Error(t, v.FromText("1.5,2.5", field))
}
