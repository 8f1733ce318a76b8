package elefantpg

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// Connect dials a PostgreSQL backend, negotiates TLS if requested, sends the
// startup message, runs the authentication engine, and absorbs
// ParameterStatus/BackendKeyData until the first ReadyForQuery (spec.md
// section 4.3 "After AuthenticationOk...").
func Connect(ctx context.Context, opts ...Option) (*Conn, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := net.Dialer{Timeout: cfg.dialTimeout}
	addr := fmt.Sprintf("%s:%d", cfg.host, cfg.port)

	netc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, pgerror.Wrap(pgerror.KindIO, true, err, "dialing %s", addr)
	}

	if cfg.tlsConfig != nil {
		netc, err = upgradeTLS(netc, cfg)
		if err != nil {
			_ = netc.Close()
			return nil, err
		}
	}

	return connectOverNetConn(ctx, netc, cfg)
}

// connectOverNetConn runs the startup/authentication/ready handshake over an
// already-established net.Conn. Factored out of Connect so tests can drive
// the handshake over an in-memory net.Pipe instead of a real dial.
func connectOverNetConn(ctx context.Context, netc net.Conn, cfg *config) (*Conn, error) {
	id := nextClientID()
	c := &Conn{
		id:     id,
		netc:   netc,
		reader: protocol.NewReader(netc, cfg.bufferSize),
		writer: protocol.NewWriter(netc),
		logger: cfg.logger.With().Uint64("conn_id", id).Logger(),
		params: Parameters{},
	}

	if err := c.withDeadline(ctx, func() error { return c.sendStartup(cfg) }); err != nil {
		_ = netc.Close()
		return nil, c.poison(err)
	}

	if err := c.authenticate(ctx, cfg); err != nil {
		_ = netc.Close()
		return nil, c.poison(err)
	}

	if err := c.absorbUntilReady(ctx); err != nil {
		_ = netc.Close()
		return nil, c.poison(err)
	}

	return c, nil
}

func upgradeTLS(netc net.Conn, cfg *config) (net.Conn, error) {
	w := protocol.NewWriter(netc)
	if err := (protocol.SSLRequest{}).Encode(w); err != nil {
		return nil, err
	}

	var resp [1]byte
	if _, err := netc.Read(resp[:]); err != nil {
		return nil, pgerror.Wrap(pgerror.KindIO, true, err, "reading SSL negotiation response")
	}

	if resp[0] != 'S' {
		return nil, pgerror.Fatalf(pgerror.KindConfigurationError, "backend refused TLS upgrade")
	}

	return tls.Client(netc, cfg.tlsConfig), nil
}

// sendStartup sends the protocol version plus the user/database/
// application_name startup parameters (spec.md section 4.3).
func (c *Conn) sendStartup(cfg *config) error {
	params := map[string]string{
		"user": cfg.user,
	}
	if cfg.database != "" {
		params["database"] = cfg.database
	}
	if cfg.applicationName != "" {
		params["application_name"] = cfg.applicationName
	}

	msg := protocol.StartupMessage{Version: protocol.VersionProtocol3, Parameters: params}
	return msg.Encode(c.writer)
}

// absorbUntilReady reads ParameterStatus/BackendKeyData/NoticeResponse
// until the first ReadyForQuery, per spec.md section 4.3.
func (c *Conn) absorbUntilReady(ctx context.Context) error {
	for {
		var kind protocol.BackendMessage
		err := c.withDeadline(ctx, func() error {
			var readErr error
			kind, readErr = c.reader.ReadTypedMsg()
			return readErr
		})
		if err != nil {
			return pgerror.Wrap(pgerror.KindIO, true, err, "reading post-auth handshake message")
		}

		switch kind {
		case protocol.BackendParameterStatus:
			ps, err := protocol.DecodeParameterStatus(c.reader)
			if err != nil {
				return err
			}
			c.params[ParameterStatus(ps.Name)] = ps.Value

		case protocol.BackendBackendKeyData:
			bkd, err := protocol.DecodeBackendKeyData(c.reader)
			if err != nil {
				return err
			}
			c.pid = bkd.ProcessID
			c.secret = bkd.SecretKey

		case protocol.BackendNoticeResponse:
			fields, err := protocol.DecodeErrorFields(c.reader)
			if err != nil {
				return err
			}
			c.logger.Info().Str("message", fields[protocol.ErrFieldMsgPrimary]).Msg("notice during handshake")

		case protocol.BackendReady:
			rfq, err := protocol.DecodeReadyForQuery(c.reader)
			if err != nil {
				return err
			}
			c.txnStatus = rfq.Status
			c.ready = true
			return nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(c.reader)
			if err != nil {
				return err
			}
			return se

		default:
			return pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s during handshake", kind)
		}
	}
}

// CancelRequest opens a throwaway connection and sends CancelRequest(pid,
// secret), per spec.md section 4.5 ("Cancellation"). It returns once the
// request has been sent; the server's cancellation is best-effort and
// asynchronous to the target connection.
func CancelRequest(ctx context.Context, pid, secret int32, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := net.Dialer{Timeout: cfg.dialTimeout}
	addr := fmt.Sprintf("%s:%d", cfg.host, cfg.port)

	netc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return pgerror.Wrap(pgerror.KindIO, true, err, "dialing %s", addr)
	}
	defer netc.Close()

	w := protocol.NewWriter(netc)
	return (protocol.CancelRequest{ProcessID: pid, SecretKey: secret}).Encode(w)
}
