package protocol

// ErrField identifies a field of an ErrorResponse/NoticeResponse, per
// https://www.postgresql.org/docs/current/static/protocol-error-fields.html
type ErrField byte

const (
	ErrFieldSeverity       ErrField = 'S'
	ErrFieldSeverityNonLoc ErrField = 'V'
	ErrFieldSQLState       ErrField = 'C'
	ErrFieldMsgPrimary     ErrField = 'M'
	ErrFieldDetail         ErrField = 'D'
	ErrFieldHint           ErrField = 'H'
	ErrFieldPosition       ErrField = 'P'
	ErrFieldInternalPos    ErrField = 'p'
	ErrFieldInternalQuery  ErrField = 'q'
	ErrFieldWhere          ErrField = 'W'
	ErrFieldSchemaName     ErrField = 's'
	ErrFieldTableName      ErrField = 't'
	ErrFieldColumnName     ErrField = 'c'
	ErrFieldDataTypeName   ErrField = 'd'
	ErrFieldConstraintName ErrField = 'n'
	ErrFieldSrcFile        ErrField = 'F'
	ErrFieldSrcLine        ErrField = 'L'
	ErrFieldSrcFunction    ErrField = 'R'
)

// StartupMessage is the client's first frame on a fresh connection, sent
// untyped (no leading kind byte), per spec.md section 4.3.
type StartupMessage struct {
	Version    Version
	Parameters map[string]string
}

// Encode writes the startup message body: version followed by
// NUL-terminated key/value pairs and a final empty-string terminator.
func (m StartupMessage) Encode(w *Writer) error {
	w.Start(0)
	w.AddInt32(int32(m.Version))

	for k, v := range m.Parameters {
		w.AddCString(k)
		w.AddCString(v)
	}
	w.AddNullTerminate()

	return w.End()
}

// CancelRequest is sent on a fresh connection to ask the backend to abort a
// running query (spec.md section 4.3). It carries the sentinel cancel
// version instead of the protocol version.
type CancelRequest struct {
	ProcessID int32
	SecretKey int32
}

// Encode writes the cancel request body.
func (m CancelRequest) Encode(w *Writer) error {
	w.Start(0)
	w.AddInt32(int32(VersionCancel))
	w.AddInt32(m.ProcessID)
	w.AddInt32(m.SecretKey)
	return w.End()
}

// SSLRequest is sent before the startup message when TLS is requested
// (spec.md section 4.3).
type SSLRequest struct{}

// Encode writes the SSL request body.
func (m SSLRequest) Encode(w *Writer) error {
	w.Start(0)
	w.AddInt32(int32(VersionSSLRequest))
	return w.End()
}
