package protocol

// FrontendMessage identifies a message the client sends to the backend.
type FrontendMessage byte

// BackendMessage identifies a message the backend sends to the client.
type BackendMessage byte

// http://www.postgresql.org/docs/current/static/protocol-message-formats.html
const (
	FrontendBind        FrontendMessage = 'B'
	FrontendClose       FrontendMessage = 'C'
	FrontendCopyData    FrontendMessage = 'd'
	FrontendCopyDone    FrontendMessage = 'c'
	FrontendCopyFail    FrontendMessage = 'f'
	FrontendDescribe    FrontendMessage = 'D'
	FrontendExecute     FrontendMessage = 'E'
	FrontendFlush       FrontendMessage = 'H'
	FrontendParse       FrontendMessage = 'P'
	FrontendPassword    FrontendMessage = 'p'
	FrontendSimpleQuery FrontendMessage = 'Q'
	FrontendSync        FrontendMessage = 'S'
	FrontendTerminate   FrontendMessage = 'X'

	BackendAuth                 BackendMessage = 'R'
	BackendBackendKeyData       BackendMessage = 'K'
	BackendBindComplete         BackendMessage = '2'
	BackendCommandComplete      BackendMessage = 'C'
	BackendCloseComplete        BackendMessage = '3'
	BackendCopyInResponse       BackendMessage = 'G'
	BackendCopyOutResponse      BackendMessage = 'H'
	BackendCopyData             BackendMessage = 'd'
	BackendCopyDone             BackendMessage = 'c'
	BackendDataRow              BackendMessage = 'D'
	BackendEmptyQuery           BackendMessage = 'I'
	BackendErrorResponse        BackendMessage = 'E'
	BackendNoticeResponse       BackendMessage = 'N'
	BackendNotificationResponse BackendMessage = 'A'
	BackendNoData               BackendMessage = 'n'
	BackendParameterDescription BackendMessage = 't'
	BackendParameterStatus      BackendMessage = 'S'
	BackendParseComplete        BackendMessage = '1'
	BackendPortalSuspended      BackendMessage = 's'
	BackendReady                BackendMessage = 'Z'
	BackendRowDescription       BackendMessage = 'T'
)

func (m FrontendMessage) String() string {
	switch m {
	case FrontendBind:
		return "Bind"
	case FrontendClose:
		return "Close"
	case FrontendCopyData:
		return "CopyData"
	case FrontendCopyDone:
		return "CopyDone"
	case FrontendCopyFail:
		return "CopyFail"
	case FrontendDescribe:
		return "Describe"
	case FrontendExecute:
		return "Execute"
	case FrontendFlush:
		return "Flush"
	case FrontendParse:
		return "Parse"
	case FrontendPassword:
		return "Password"
	case FrontendSimpleQuery:
		return "Query"
	case FrontendSync:
		return "Sync"
	case FrontendTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

func (m BackendMessage) String() string {
	switch m {
	case BackendAuth:
		return "Authentication"
	case BackendBackendKeyData:
		return "BackendKeyData"
	case BackendBindComplete:
		return "BindComplete"
	case BackendCommandComplete:
		return "CommandComplete"
	case BackendCloseComplete:
		return "CloseComplete"
	case BackendCopyInResponse:
		return "CopyInResponse"
	case BackendCopyOutResponse:
		return "CopyOutResponse"
	case BackendCopyData:
		return "CopyData"
	case BackendCopyDone:
		return "CopyDone"
	case BackendDataRow:
		return "DataRow"
	case BackendEmptyQuery:
		return "EmptyQueryResponse"
	case BackendErrorResponse:
		return "ErrorResponse"
	case BackendNoticeResponse:
		return "NoticeResponse"
	case BackendNotificationResponse:
		return "NotificationResponse"
	case BackendNoData:
		return "NoData"
	case BackendParameterDescription:
		return "ParameterDescription"
	case BackendParameterStatus:
		return "ParameterStatus"
	case BackendParseComplete:
		return "ParseComplete"
	case BackendPortalSuspended:
		return "PortalSuspended"
	case BackendReady:
		return "ReadyForQuery"
	case BackendRowDescription:
		return "RowDescription"
	default:
		return "Unknown"
	}
}

// DescribeTarget distinguishes a Describe/Close message targeting a prepared
// statement from one targeting a portal.
type DescribeTarget byte

const (
	DescribeStatement DescribeTarget = 'S'
	DescribePortal     DescribeTarget = 'P'
)

// FormatCode is the wire format of a parameter or result column: text (0) or
// binary (1), per spec.md section 4.2.
type FormatCode int16

const (
	FormatText   FormatCode = 0
	FormatBinary FormatCode = 1
)

func (f FormatCode) String() string {
	if f == FormatBinary {
		return "binary"
	}
	return "text"
}

// TransactionStatus is the byte ReadyForQuery carries, mapped per spec.md
// section 4.4.
type TransactionStatus byte

const (
	TransactionIdle     TransactionStatus = 'I'
	TransactionInBlock  TransactionStatus = 'T'
	TransactionInFailed TransactionStatus = 'E'
)

// Version is the startup protocol version, or one of the special sentinel
// "versions" used for SSL negotiation and cancel requests.
type Version uint32

const (
	VersionProtocol3  Version = 0x00030000
	VersionSSLRequest Version = 80877103
	VersionCancel     Version = 80877102
	VersionGSSENCRequest Version = 80877104
)

// AuthType is the sub-code of an Authentication (BackendAuth) message.
type AuthType int32

const (
	AuthTypeOK                AuthType = 0
	AuthTypeKerberosV5        AuthType = 2
	AuthTypeCleartextPassword AuthType = 3
	AuthTypeMD5Password       AuthType = 5
	AuthTypeGSS               AuthType = 7
	AuthTypeGSSContinue       AuthType = 8
	AuthTypeSSPI              AuthType = 9
	AuthTypeSASL              AuthType = 10
	AuthTypeSASLContinue      AuthType = 11
	AuthTypeSASLFinal         AuthType = 12
)
