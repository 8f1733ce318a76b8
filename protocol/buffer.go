package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"
	"unsafe"

	"github.com/elefantpg/elefantpg-go/pgerror"
)

// DefaultBufferSize is used whenever a non-positive buffer size is passed to
// NewReader.
const DefaultBufferSize = 1 << 16 // 65536 bytes

// Reader is a reusable frame reader over the backend-to-client byte stream
// (spec.md section 4.1). Reader.Msg is a borrowed view into an internal
// buffer that grows monotonically but never shrinks; the view is only valid
// until the next call to ReadTypedMsg/ReadUntypedMsg (spec.md "Frame").
type Reader struct {
	source         *bufio.Reader
	Msg            []byte
	MaxMessageSize int
	header         [4]byte
}

// NewReader constructs a Reader over r. A non-positive bufferSize falls back
// to DefaultBufferSize.
func NewReader(r io.Reader, bufferSize int) *Reader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Reader{
		source:         bufio.NewReaderSize(r, bufferSize),
		MaxMessageSize: bufferSize,
	}
}

// reset grows reader.Msg to exactly size, reusing spare capacity when
// possible instead of allocating (spec.md: "Read buffer grows monotonically").
func (r *Reader) reset(size int) {
	if cap(r.Msg) >= size {
		r.Msg = r.Msg[:size]
		return
	}

	alloc := size
	if alloc < 4096 {
		alloc = 4096
	}
	r.Msg = make([]byte, size, alloc)
}

// ReadMsgSize reads the 4-byte self-inclusive length prefix and returns the
// body length (length - 4).
func (r *Reader) ReadMsgSize() (int, error) {
	if _, err := io.ReadFull(r.source, r.header[:]); err != nil {
		return 0, err
	}

	size := int(binary.BigEndian.Uint32(r.header[:])) - 4
	return size, nil
}

// ReadUntypedMsg reads a length-prefixed message with no leading kind byte.
// Called directly it reads the startup message (spec.md section 4.1);
// ReadTypedMsg calls it for the body after consuming the kind byte.
func (r *Reader) ReadUntypedMsg() error {
	size, err := r.ReadMsgSize()
	if err != nil {
		return err
	}

	if size < 0 {
		return pgerror.Fatalf(pgerror.KindFrameMalformed, "declared length %d is below the 4-byte minimum", size+4)
	}

	if size > r.MaxMessageSize {
		return pgerror.Fatalf(pgerror.KindFrameMalformed, "message size %d exceeds maximum %d", size, r.MaxMessageSize)
	}

	r.reset(size)
	_, err = io.ReadFull(r.source, r.Msg)
	return err
}

// ReadTypedMsg reads a 1-byte kind followed by a length-prefixed body
// (spec.md section 4.1). The returned kind is valid even when body length is
// zero; r.Msg holds the borrowed body.
func (r *Reader) ReadTypedMsg() (BackendMessage, error) {
	kind, err := r.source.ReadByte()
	if err != nil {
		return 0, err
	}

	if err := r.ReadUntypedMsg(); err != nil {
		return 0, err
	}

	return BackendMessage(kind), nil
}

// GetString reads a null-terminated string as a borrowed view, falling back
// to a lossy conversion if the bytes are not valid UTF-8 (spec.md section
// 4.1: "invalid bytes are lossy-converted rather than rejected").
func (r *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(r.Msg, 0)
	if pos == -1 {
		return "", pgerror.Fatalf(pgerror.KindFrameMalformed, "missing NUL terminator")
	}

	raw := r.Msg[:pos]
	r.Msg = r.Msg[pos+1:]

	if !utf8.Valid(raw) {
		return string(bytes.ToValidUTF8(raw, []byte("�"))), nil
	}

	// Zero-copy conversion: safe because the borrowed buffer is never
	// mutated in place and the caller is contractually bound not to retain
	// it past the next read (spec.md "Borrow lifetime").
	return *(*string)(unsafe.Pointer(&raw)), nil
}

// GetBytes returns the next n bytes as a borrowed slice. n == -1 is used by
// callers representing a SQL NULL and returns (nil, nil).
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if n == -1 {
		return nil, nil
	}
	if len(r.Msg) < n {
		return nil, pgerror.Fatalf(pgerror.KindFrameMalformed, "expected %d bytes, have %d", n, len(r.Msg))
	}

	v := r.Msg[:n]
	r.Msg = r.Msg[n:]
	return v, nil
}

// GetByte reads a single byte.
func (r *Reader) GetByte() (byte, error) {
	if len(r.Msg) < 1 {
		return 0, pgerror.Fatalf(pgerror.KindFrameMalformed, "expected 1 byte, have 0")
	}
	b := r.Msg[0]
	r.Msg = r.Msg[1:]
	return b, nil
}

// GetUint16 reads a big-endian uint16.
func (r *Reader) GetUint16() (uint16, error) {
	if len(r.Msg) < 2 {
		return 0, pgerror.Fatalf(pgerror.KindFrameMalformed, "expected 2 bytes, have %d", len(r.Msg))
	}
	v := binary.BigEndian.Uint16(r.Msg[:2])
	r.Msg = r.Msg[2:]
	return v, nil
}

// GetInt16 reads a big-endian int16.
func (r *Reader) GetInt16() (int16, error) {
	v, err := r.GetUint16()
	return int16(v), err
}

// GetUint32 reads a big-endian uint32.
func (r *Reader) GetUint32() (uint32, error) {
	if len(r.Msg) < 4 {
		return 0, pgerror.Fatalf(pgerror.KindFrameMalformed, "expected 4 bytes, have %d", len(r.Msg))
	}
	v := binary.BigEndian.Uint32(r.Msg[:4])
	r.Msg = r.Msg[4:]
	return v, nil
}

// GetInt32 reads a big-endian int32.
func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

// Remaining returns the number of unread bytes left in the current frame.
func (r *Reader) Remaining() int {
	return len(r.Msg)
}

// Writer builds one frontend message at a time into a scratch buffer and
// flushes it to the underlying writer on End (spec.md section 4.2). The
// first four bytes written after an optional kind byte are a placeholder
// later patched with the self-inclusive length.
type Writer struct {
	io.Writer
	frame     bytes.Buffer
	lenOffset int
	err       error
}

// NewWriter constructs a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{Writer: w}
}

// Start resets the frame and writes the message kind plus a reserved length
// placeholder. Untyped messages (startup, cancel request, SSL request) pass
// 0 to omit the kind byte.
func (w *Writer) Start(kind FrontendMessage) {
	w.Reset()
	if kind != 0 {
		w.frame.WriteByte(byte(kind)) //nolint:errcheck
	}
	w.lenOffset = w.frame.Len()
	w.frame.Write([]byte{0, 0, 0, 0}) //nolint:errcheck
}

// AddByte appends a single byte.
func (w *Writer) AddByte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16.
func (w *Writer) AddInt16(v int16) {
	if w.err != nil {
		return
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	_, w.err = w.frame.Write(buf[:])
}

// AddInt32 appends a big-endian int32.
func (w *Writer) AddInt32(v int32) {
	if w.err != nil {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, w.err = w.frame.Write(buf[:])
}

// AddBytes appends raw bytes.
func (w *Writer) AddBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.Write(b)
}

// AddString appends a raw (non-terminated) string.
func (w *Writer) AddString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.WriteString(s)
}

// AddCString appends s followed by a NUL terminator.
func (w *Writer) AddCString(s string) {
	w.AddString(s)
	w.AddNullTerminate()
}

// AddNullTerminate appends a single NUL byte.
func (w *Writer) AddNullTerminate() {
	if w.err != nil {
		return
	}
	w.err = w.frame.WriteByte(0)
}

// Error returns the first error encountered while building the current frame.
func (w *Writer) Error() error {
	return w.err
}

// Reset discards the in-progress frame.
func (w *Writer) Reset() {
	w.frame.Reset()
	w.lenOffset = 0
	w.err = nil
}

// End patches the reserved length placeholder with the self-inclusive byte
// count (everything from lenOffset onward, matching the wire definition of
// "length") and flushes the frame to the underlying writer.
func (w *Writer) End() error {
	defer w.Reset()
	if w.err != nil {
		return w.err
	}

	raw := w.frame.Bytes()
	length := len(raw) - w.lenOffset
	binary.BigEndian.PutUint32(raw[w.lenOffset:w.lenOffset+4], uint32(length))

	_, err := w.Writer.Write(raw)
	return err
}
