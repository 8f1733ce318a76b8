package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	w.Start(FrontendMessage(BackendRowDescription))
	w.AddInt16(1)
	w.AddCString("id")
	w.AddInt32(0)
	require.NoError(t, w.End())

	r := NewReader(&out, 0)
	kind, err := r.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, BackendRowDescription, kind)

	n, err := r.GetInt16()
	require.NoError(t, err)
	require.Equal(t, int16(1), n)

	name, err := r.GetString()
	require.NoError(t, err)
	require.Equal(t, "id", name)

	tableOID, err := r.GetInt32()
	require.NoError(t, err)
	require.Equal(t, int32(0), tableOID)

	require.Equal(t, 0, r.Remaining())
}

func TestWriterLengthIsSelfInclusive(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	w.Start(FrontendSync)
	require.NoError(t, w.End())

	raw := out.Bytes()
	require.Len(t, raw, 5) // kind byte + 4-byte length, empty body

	length := int(raw[1])<<24 | int(raw[2])<<16 | int(raw[3])<<8 | int(raw[4])
	require.Equal(t, 4, length)
}

func TestReadUntypedMsgRejectsLengthBelowMinimum(t *testing.T) {
	var raw bytes.Buffer
	raw.Write([]byte{0, 0, 0, 3}) // declares a length shorter than the 4-byte header itself

	r := NewReader(&raw, 0)
	err := r.ReadUntypedMsg()
	require.Error(t, err)
	require.ErrorContains(t, err, "FrameMalformed")
}

func TestGetBytesBorrowInvalidatedByNextRead(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	w.Start(FrontendMessage(BackendCopyData))
	w.AddBytes([]byte("first"))
	require.NoError(t, w.End())

	w.Start(FrontendMessage(BackendCopyData))
	w.AddBytes([]byte("second"))
	require.NoError(t, w.End())

	r := NewReader(&out, 0)

	_, err := r.ReadTypedMsg()
	require.NoError(t, err)
	first, err := r.GetBytes(5)
	require.NoError(t, err)
	require.Equal(t, "first", string(first))

	_, err = r.ReadTypedMsg()
	require.NoError(t, err)
	// first's backing array has been overwritten by the second message's body.
	require.NotEqual(t, "first", string(first))
}
