package protocol

import (
	"github.com/elefantpg/elefantpg-go/pgerror"
)

// Field describes one column of a RowDescription/ParameterDescription,
// matching the fields the wire format actually sends.
type Field struct {
	Name         string
	TableOID     int32
	ColumnAttrNo int16
	DataTypeOID  int32
	DataTypeSize int16
	TypeModifier int32
	Format       FormatCode
}

// ---- Frontend (written) messages -----------------------------------------

// Parse requests preparation of sql under name, with zero or more parameter
// type oids (0 leaves a parameter's type to the backend to infer).
type Parse struct {
	Name          string
	SQL           string
	ParameterOIDs []int32
}

func (m Parse) Encode(w *Writer) error {
	w.Start(FrontendParse)
	w.AddCString(m.Name)
	w.AddCString(m.SQL)
	w.AddInt16(int16(len(m.ParameterOIDs)))
	for _, oid := range m.ParameterOIDs {
		w.AddInt32(oid)
	}
	return w.End()
}

// Bind binds parameter values to portal, executing statement.
type Bind struct {
	Portal          string
	Statement       string
	ParameterFormat []FormatCode
	// Parameters holds the raw encoded bytes of each parameter; nil means SQL
	// NULL (absent), per spec.md section 4.2.
	Parameters   [][]byte
	ResultFormat []FormatCode
}

func (m Bind) Encode(w *Writer) error {
	w.Start(FrontendBind)
	w.AddCString(m.Portal)
	w.AddCString(m.Statement)

	w.AddInt16(int16(len(m.ParameterFormat)))
	for _, f := range m.ParameterFormat {
		w.AddInt16(int16(f))
	}

	w.AddInt16(int16(len(m.Parameters)))
	for _, p := range m.Parameters {
		if p == nil {
			w.AddInt32(-1)
			continue
		}
		w.AddInt32(int32(len(p)))
		w.AddBytes(p)
	}

	w.AddInt16(int16(len(m.ResultFormat)))
	for _, f := range m.ResultFormat {
		w.AddInt16(int16(f))
	}

	return w.End()
}

// Describe asks for the parameter/row description of a statement or portal.
type Describe struct {
	Target DescribeTarget
	Name   string
}

func (m Describe) Encode(w *Writer) error {
	w.Start(FrontendDescribe)
	w.AddByte(byte(m.Target))
	w.AddCString(m.Name)
	return w.End()
}

// Close closes a statement or portal.
type Close struct {
	Target DescribeTarget
	Name   string
}

func (m Close) Encode(w *Writer) error {
	w.Start(FrontendClose)
	w.AddByte(byte(m.Target))
	w.AddCString(m.Name)
	return w.End()
}

// Execute runs portal, returning at most maxRows rows (0 means unlimited).
type Execute struct {
	Portal  string
	MaxRows int32
}

func (m Execute) Encode(w *Writer) error {
	w.Start(FrontendExecute)
	w.AddCString(m.Portal)
	w.AddInt32(m.MaxRows)
	return w.End()
}

// Flush asks the backend to deliver any pending output without a Sync.
type Flush struct{}

func (m Flush) Encode(w *Writer) error {
	w.Start(FrontendFlush)
	return w.End()
}

// Sync marks the end of an extended-query flow.
type Sync struct{}

func (m Sync) Encode(w *Writer) error {
	w.Start(FrontendSync)
	return w.End()
}

// SimpleQuery runs sql through the simple query protocol.
type SimpleQuery struct {
	SQL string
}

func (m SimpleQuery) Encode(w *Writer) error {
	w.Start(FrontendSimpleQuery)
	w.AddCString(m.SQL)
	return w.End()
}

// PasswordMessage carries a cleartext or MD5-hashed password response. The
// SCRAM client-first/client-final messages share its 'p' kind byte but are
// encoded by SASLInitialResponse and SASLResponse (spec.md section 4.3).
type PasswordMessage struct {
	Password string
}

func (m PasswordMessage) Encode(w *Writer) error {
	w.Start(FrontendPassword)
	w.AddCString(m.Password)
	return w.End()
}

// SASLInitialResponse is the client's first SCRAM message.
type SASLInitialResponse struct {
	Mechanism string
	Response  []byte
}

func (m SASLInitialResponse) Encode(w *Writer) error {
	w.Start(FrontendPassword)
	w.AddCString(m.Mechanism)
	w.AddInt32(int32(len(m.Response)))
	w.AddBytes(m.Response)
	return w.End()
}

// SASLResponse carries the client-final SCRAM message.
type SASLResponse struct {
	Response []byte
}

func (m SASLResponse) Encode(w *Writer) error {
	w.Start(FrontendPassword)
	w.AddBytes(m.Response)
	return w.End()
}

// CopyData carries one chunk of COPY payload, in either direction; the byte
// value is identical for frontend and backend (spec.md section 4.6).
type CopyData struct {
	Data []byte
}

func (m CopyData) Encode(w *Writer) error {
	w.Start(FrontendCopyData)
	w.AddBytes(m.Data)
	return w.End()
}

// CopyDone signals a normal end of a COPY sub-protocol stream.
type CopyDone struct{}

func (m CopyDone) Encode(w *Writer) error {
	w.Start(FrontendCopyDone)
	return w.End()
}

// CopyFail aborts a COPY-in stream with reason reported to the server.
type CopyFail struct {
	Reason string
}

func (m CopyFail) Encode(w *Writer) error {
	w.Start(FrontendCopyFail)
	w.AddCString(m.Reason)
	return w.End()
}

// Terminate closes the connection gracefully.
type Terminate struct{}

func (m Terminate) Encode(w *Writer) error {
	w.Start(FrontendTerminate)
	return w.End()
}

// ---- Backend (read) messages ----------------------------------------------

// Authentication is the decoded body of a BackendAuth message. Salt is set
// only for AuthTypeMD5Password; Mechanisms only for AuthTypeSASL; Data for
// AuthTypeSASLContinue/AuthTypeSASLFinal.
type Authentication struct {
	Type      AuthType
	Salt      [4]byte
	Mechanisms []string
	Data      []byte
}

// DecodeAuthentication parses a BackendAuth message body from r.
func DecodeAuthentication(r *Reader) (Authentication, error) {
	sub, err := r.GetInt32()
	if err != nil {
		return Authentication{}, err
	}

	auth := Authentication{Type: AuthType(sub)}

	switch auth.Type {
	case AuthTypeOK, AuthTypeKerberosV5, AuthTypeGSS, AuthTypeSSPI:
		return auth, nil
	case AuthTypeCleartextPassword:
		return auth, nil
	case AuthTypeMD5Password:
		salt, err := r.GetBytes(4)
		if err != nil {
			return auth, err
		}
		copy(auth.Salt[:], salt)
		return auth, nil
	case AuthTypeSASL:
		for r.Remaining() > 0 {
			mech, err := r.GetString()
			if err != nil {
				return auth, err
			}
			if mech == "" {
				break
			}
			auth.Mechanisms = append(auth.Mechanisms, mech)
		}
		return auth, nil
	case AuthTypeSASLContinue, AuthTypeSASLFinal:
		auth.Data = append([]byte(nil), r.Msg...)
		return auth, nil
	default:
		return auth, pgerror.Fatalf(pgerror.KindUnknownSubMessage, "unknown authentication sub-code %d", sub)
	}
}

// BackendKeyData carries the process id and secret key used by CancelRequest.
type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

func DecodeBackendKeyData(r *Reader) (BackendKeyData, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return BackendKeyData{}, err
	}
	secret, err := r.GetInt32()
	if err != nil {
		return BackendKeyData{}, err
	}
	return BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}

// ParameterStatus reports a GUC name/value pair.
type ParameterStatus struct {
	Name  string
	Value string
}

func DecodeParameterStatus(r *Reader) (ParameterStatus, error) {
	name, err := r.GetString()
	if err != nil {
		return ParameterStatus{}, err
	}
	value, err := r.GetString()
	if err != nil {
		return ParameterStatus{}, err
	}
	return ParameterStatus{Name: name, Value: value}, nil
}

// ErrorFields holds the raw field bytes of an ErrorResponse/NoticeResponse,
// keyed by ErrField, decoded into pgerror.ServerError by the caller.
type ErrorFields map[ErrField]string

// DecodeErrorFields decodes the shared wire shape of ErrorResponse and
// NoticeResponse: a sequence of (1-byte field code, NUL-terminated value)
// pairs terminated by a zero byte.
func DecodeErrorFields(r *Reader) (ErrorFields, error) {
	fields := ErrorFields{}
	for {
		code, err := r.GetByte()
		if err != nil {
			return nil, err
		}
		if code == 0 {
			return fields, nil
		}

		value, err := r.GetString()
		if err != nil {
			return nil, err
		}
		fields[ErrField(code)] = value
	}
}

// ReadyForQuery reports the backend's current transaction status.
type ReadyForQuery struct {
	Status TransactionStatus
}

func DecodeReadyForQuery(r *Reader) (ReadyForQuery, error) {
	b, err := r.GetByte()
	if err != nil {
		return ReadyForQuery{}, err
	}
	switch TransactionStatus(b) {
	case TransactionIdle, TransactionInBlock, TransactionInFailed:
		return ReadyForQuery{Status: TransactionStatus(b)}, nil
	default:
		return ReadyForQuery{}, pgerror.Fatalf(pgerror.KindFrameMalformed, "unknown transaction status %q", b)
	}
}

// RowDescription describes the columns of a following stream of DataRows.
type RowDescription struct {
	Fields []Field
}

func DecodeRowDescription(r *Reader) (RowDescription, error) {
	n, err := r.GetInt16()
	if err != nil {
		return RowDescription{}, err
	}

	fields := make([]Field, 0, n)
	for i := int16(0); i < n; i++ {
		name, err := r.GetString()
		if err != nil {
			return RowDescription{}, err
		}
		tableOID, err := r.GetInt32()
		if err != nil {
			return RowDescription{}, err
		}
		attrNo, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}
		typeOID, err := r.GetInt32()
		if err != nil {
			return RowDescription{}, err
		}
		typeSize, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}
		typeMod, err := r.GetInt32()
		if err != nil {
			return RowDescription{}, err
		}
		format, err := r.GetInt16()
		if err != nil {
			return RowDescription{}, err
		}

		fields = append(fields, Field{
			Name:         name,
			TableOID:     tableOID,
			ColumnAttrNo: attrNo,
			DataTypeOID:  typeOID,
			DataTypeSize: typeSize,
			TypeModifier: typeMod,
			Format:       FormatCode(format),
		})
	}

	return RowDescription{Fields: fields}, nil
}

// ParameterDescription lists the inferred/declared parameter oids of a
// prepared statement.
type ParameterDescription struct {
	OIDs []int32
}

func DecodeParameterDescription(r *Reader) (ParameterDescription, error) {
	n, err := r.GetInt16()
	if err != nil {
		return ParameterDescription{}, err
	}
	oids := make([]int32, 0, n)
	for i := int16(0); i < n; i++ {
		oid, err := r.GetInt32()
		if err != nil {
			return ParameterDescription{}, err
		}
		oids = append(oids, oid)
	}
	return ParameterDescription{OIDs: oids}, nil
}

// DataRow is one row of query results; Values[i] == nil means SQL NULL. The
// byte slices are borrowed from the frame reader's buffer (spec.md section
// 4.1 "Borrow lifetime").
type DataRow struct {
	Values [][]byte
}

func DecodeDataRow(r *Reader) (DataRow, error) {
	n, err := r.GetInt16()
	if err != nil {
		return DataRow{}, err
	}
	values := make([][]byte, 0, n)
	for i := int16(0); i < n; i++ {
		length, err := r.GetInt32()
		if err != nil {
			return DataRow{}, err
		}
		v, err := r.GetBytes(int(length))
		if err != nil {
			return DataRow{}, err
		}
		values = append(values, v)
	}
	return DataRow{Values: values}, nil
}

// CommandComplete reports the completed command tag, e.g. "INSERT 0 3".
type CommandComplete struct {
	Tag string
}

func DecodeCommandComplete(r *Reader) (CommandComplete, error) {
	tag, err := r.GetString()
	if err != nil {
		return CommandComplete{}, err
	}
	return CommandComplete{Tag: tag}, nil
}

// NotificationResponse is an asynchronous LISTEN/NOTIFY payload.
type NotificationResponse struct {
	ProcessID int32
	Channel   string
	Payload   string
}

func DecodeNotificationResponse(r *Reader) (NotificationResponse, error) {
	pid, err := r.GetInt32()
	if err != nil {
		return NotificationResponse{}, err
	}
	channel, err := r.GetString()
	if err != nil {
		return NotificationResponse{}, err
	}
	payload, err := r.GetString()
	if err != nil {
		return NotificationResponse{}, err
	}
	return NotificationResponse{ProcessID: pid, Channel: channel, Payload: payload}, nil
}

// CopyResponse is the shared shape of CopyInResponse/CopyOutResponse: an
// overall format followed by a per-column format list.
type CopyResponse struct {
	Format        FormatCode
	ColumnFormats []FormatCode
}

func DecodeCopyResponse(r *Reader) (CopyResponse, error) {
	format, err := r.GetByte()
	if err != nil {
		return CopyResponse{}, err
	}
	n, err := r.GetInt16()
	if err != nil {
		return CopyResponse{}, err
	}
	cols := make([]FormatCode, 0, n)
	for i := int16(0); i < n; i++ {
		f, err := r.GetInt16()
		if err != nil {
			return CopyResponse{}, err
		}
		cols = append(cols, FormatCode(f))
	}
	return CopyResponse{Format: FormatCode(format), ColumnFormats: cols}, nil
}

// DecodeCopyData returns the CopyData body, borrowed from the connection's
// read buffer. The slice is only valid until the next read on r.
func DecodeCopyData(r *Reader) []byte {
	return r.Msg
}
