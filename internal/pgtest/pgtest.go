// Package pgtest provides an in-memory backend emulator for exercising
// elefantpg.Conn without a live PostgreSQL server. It plays the server role
// over a net.Pipe, the inverse of the wire-level client emulator the
// teacher's own test suite used to drive a real server.
package pgtest

import (
	"net"
	"testing"

	"github.com/elefantpg/elefantpg-go/protocol"
)

// Pipe returns a connected pair of net.Conns: client for the code under test
// (the elefantpg tests hand it straight to the handshake instead of dialing)
// and a *Server wrapping the other end for scripting backend behavior.
func Pipe(t *testing.T) (client net.Conn, server *Server) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, NewServer(b)
}

// Server scripts backend-role protocol traffic over conn using the same
// protocol.Reader/protocol.Writer the real client uses, so the wire format
// exercised in tests is identical to production.
type Server struct {
	conn   net.Conn
	Reader *protocol.Reader
	Writer *protocol.Writer
}

// NewServer wraps conn for backend-role scripting.
func NewServer(conn net.Conn) *Server {
	return &Server{
		conn:   conn,
		Reader: protocol.NewReader(conn, protocol.DefaultBufferSize),
		Writer: protocol.NewWriter(conn),
	}
}

// Close closes the underlying connection.
func (s *Server) Close() error { return s.conn.Close() }

// ExpectStartup reads and decodes a StartupMessage, returning its parameters.
func (s *Server) ExpectStartup(t *testing.T) map[string]string {
	t.Helper()

	if err := s.Reader.ReadUntypedMsg(); err != nil {
		t.Fatalf("reading startup message: %v", err)
	}

	version, err := s.Reader.GetInt32()
	if err != nil {
		t.Fatalf("reading startup version: %v", err)
	}
	if protocol.Version(version) != protocol.VersionProtocol3 {
		t.Fatalf("unexpected startup version %#x", version)
	}

	params := map[string]string{}
	for {
		key, err := s.Reader.GetString()
		if err != nil {
			t.Fatalf("reading startup key: %v", err)
		}
		if key == "" {
			return params
		}
		value, err := s.Reader.GetString()
		if err != nil {
			t.Fatalf("reading startup value: %v", err)
		}
		params[key] = value
	}
}

// ExpectMessage reads the next typed frontend message and asserts its kind,
// returning the reader positioned at the start of the body.
func (s *Server) ExpectMessage(t *testing.T, want protocol.FrontendMessage) *protocol.Reader {
	t.Helper()

	kind, err := s.Reader.ReadTypedMsg()
	if err != nil {
		t.Fatalf("reading frontend message: %v", err)
	}
	if protocol.FrontendMessage(kind) != want {
		t.Fatalf("unexpected frontend message %s, expected %s", protocol.BackendMessage(kind), want)
	}
	return s.Reader
}

// SendAuthOK writes Authentication(Ok).
func (s *Server) SendAuthOK(t *testing.T) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendAuth))
	s.Writer.AddInt32(int32(protocol.AuthTypeOK))
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing AuthenticationOk: %v", err)
	}
}

// SendBackendKeyData writes BackendKeyData(pid, secret).
func (s *Server) SendBackendKeyData(t *testing.T, pid, secret int32) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendBackendKeyData))
	s.Writer.AddInt32(pid)
	s.Writer.AddInt32(secret)
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing BackendKeyData: %v", err)
	}
}

// SendParameterStatus writes a ParameterStatus(name, value).
func (s *Server) SendParameterStatus(t *testing.T, name, value string) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendParameterStatus))
	s.Writer.AddCString(name)
	s.Writer.AddCString(value)
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing ParameterStatus: %v", err)
	}
}

// SendReadyForQuery writes ReadyForQuery(status).
func (s *Server) SendReadyForQuery(t *testing.T, status protocol.TransactionStatus) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendReady))
	s.Writer.AddByte(byte(status))
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing ReadyForQuery: %v", err)
	}
}

// SendRowDescription writes a RowDescription for the given fields.
func (s *Server) SendRowDescription(t *testing.T, fields []protocol.Field) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendRowDescription))
	s.Writer.AddInt16(int16(len(fields)))
	for _, f := range fields {
		s.Writer.AddCString(f.Name)
		s.Writer.AddInt32(f.TableOID)
		s.Writer.AddInt16(f.ColumnAttrNo)
		s.Writer.AddInt32(f.DataTypeOID)
		s.Writer.AddInt16(f.DataTypeSize)
		s.Writer.AddInt32(f.TypeModifier)
		s.Writer.AddInt16(int16(f.Format))
	}
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing RowDescription: %v", err)
	}
}

// SendDataRow writes a DataRow with the given column values; a nil value
// encodes as SQL NULL.
func (s *Server) SendDataRow(t *testing.T, values [][]byte) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendDataRow))
	s.Writer.AddInt16(int16(len(values)))
	for _, v := range values {
		if v == nil {
			s.Writer.AddInt32(-1)
			continue
		}
		s.Writer.AddInt32(int32(len(v)))
		s.Writer.AddBytes(v)
	}
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing DataRow: %v", err)
	}
}

// SendCommandComplete writes a CommandComplete(tag).
func (s *Server) SendCommandComplete(t *testing.T, tag string) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendCommandComplete))
	s.Writer.AddCString(tag)
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing CommandComplete: %v", err)
	}
}

// SendErrorResponse writes a minimal ErrorResponse carrying severity, code
// and message.
func (s *Server) SendErrorResponse(t *testing.T, severity, code, message string) {
	t.Helper()
	s.Writer.Start(protocol.FrontendMessage(protocol.BackendErrorResponse))
	s.Writer.AddByte(byte(protocol.ErrFieldSeverity))
	s.Writer.AddCString(severity)
	s.Writer.AddByte(byte(protocol.ErrFieldSQLState))
	s.Writer.AddCString(code)
	s.Writer.AddByte(byte(protocol.ErrFieldMsgPrimary))
	s.Writer.AddCString(message)
	s.Writer.AddByte(0)
	if err := s.Writer.End(); err != nil {
		t.Fatalf("writing ErrorResponse: %v", err)
	}
}

// RunHandshake performs the standard post-startup sequence a real backend
// sends: AuthenticationOk, BackendKeyData, a couple of ParameterStatus
// messages, then ReadyForQuery(idle). Call after ExpectStartup.
func (s *Server) RunHandshake(t *testing.T, pid, secret int32) {
	t.Helper()
	s.SendAuthOK(t)
	s.SendBackendKeyData(t, pid, secret)
	s.SendParameterStatus(t, "server_version", "16.0")
	s.SendParameterStatus(t, "client_encoding", "UTF8")
	s.SendReadyForQuery(t, protocol.TransactionIdle)
}
