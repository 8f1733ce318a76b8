package elefantpg

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// ParameterStatus is a GUC name reported by the backend, e.g.
// "server_encoding" or "TimeZone" (spec.md section 4.4 "update the
// parameter mapping"). https://www.postgresql.org/docs/current/libpq-status.html
type ParameterStatus string

// Parameters is the collection of backend-reported GUC values absorbed
// during the handshake and updated for the life of the connection.
type Parameters map[ParameterStatus]string

// Notification is one LISTEN/NOTIFY payload, delivered to the channel
// attached with Conn.Listen, if any (spec.md section 4.4).
type Notification struct {
	ProcessID int32
	Channel   string
	Payload   string
}

// Conn is a single, non-sharable connection to a PostgreSQL backend. All
// operations on a Conn are sequential; concurrent use from multiple
// goroutines is a programmer error (spec.md section 5 "Scheduling model").
type Conn struct {
	id     uint64
	netc   net.Conn
	reader *protocol.Reader
	writer *protocol.Writer
	logger zerolog.Logger

	params Parameters
	pid    int32
	secret int32

	// ready reports whether the connection is idle and can accept a new
	// user-initiated flow; it is cleared on the first message of a flow and
	// reasserted on ReadyForQuery (spec.md section 4.4).
	ready bool
	// syncRequired records that the previous flow was an extended-protocol
	// flow and therefore needs a Sync before the next one begins.
	syncRequired bool
	txnStatus    protocol.TransactionStatus

	stmts statementCounter

	notifyMu sync.Mutex
	notify   chan<- Notification

	// poisoned is set by any fatal client-side error (spec.md section 7);
	// once poisoned a Conn must be discarded, never reused.
	poisoned error
}

// Close sends Terminate and closes the underlying network connection.
func (c *Conn) Close() error {
	if c.poisoned == nil {
		c.writer.Start(protocol.FrontendTerminate)
		_ = c.writer.End()
	}
	return c.netc.Close()
}

// Reset drains messages up to the next ReadyForQuery, recovering a
// connection left mid-flow by a cancelled operation (spec.md section 5 "the
// user must call reset, which drains messages up to the next ReadyForQuery,
// before reusing it"). It is a no-op if the connection is already ready, and
// returns a fatal KindIO error wrapping the poison error if the connection
// was fatally poisoned.
func (c *Conn) Reset(ctx context.Context) error {
	if c.poisoned != nil {
		return pgerror.Wrap(pgerror.KindIO, true, c.poisoned, "connection is poisoned")
	}
	if c.ready {
		return nil
	}

	if c.syncRequired {
		if err := c.sendSync(ctx); err != nil {
			return c.poison(err)
		}
	}

	return c.drainToReady(ctx)
}

// BackendPID returns the process id reported in BackendKeyData, used to
// build a CancelRequest from a separate connection.
func (c *Conn) BackendPID() int32 { return c.pid }

// BackendSecretKey returns the secret key reported in BackendKeyData.
func (c *Conn) BackendSecretKey() int32 { return c.secret }

// Parameter returns the current value of a backend-reported GUC, if known.
func (c *Conn) Parameter(name ParameterStatus) (string, bool) {
	v, ok := c.params[name]
	return v, ok
}

// Listen attaches a channel that receives asynchronous NotificationResponse
// messages (spec.md section 4.4). Passing nil detaches any existing
// subscriber. Delivery never blocks: a notification that arrives while the
// channel is full is dropped and a warning is logged.
func (c *Conn) Listen(ch chan<- Notification) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.notify = ch
}

// poison marks the connection unusable when err is fatal (pgerror.IsFatal)
// and returns err unchanged, so call sites can write `return c.poison(err)`.
func (c *Conn) poison(err error) error {
	if err != nil && pgerror.IsFatal(err) {
		c.poisoned = err
	}
	return err
}

// withDeadline runs fn with the underlying net.Conn's deadline tied to ctx,
// so a blocking read or write unblocks at a cancellation point instead of
// hanging forever (spec.md section 5 "cancellation observed at any
// suspension point"). context.Background/TODO (whose Done channel is nil)
// take the fast path and skip the watcher goroutine entirely.
func (c *Conn) withDeadline(ctx context.Context, fn func() error) error {
	if ctx == nil || ctx.Done() == nil {
		return fn()
	}

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.netc.SetDeadline(time.Unix(0, 0))
		case <-stop:
		}
	}()

	err := fn()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// checkReady enforces spec.md section 4.4's ready-flag precondition and
// issues a pending Sync from a prior extended-protocol flow, if any.
func (c *Conn) checkReady(ctx context.Context) error {
	if c.poisoned != nil {
		return pgerror.Wrap(pgerror.KindIO, true, c.poisoned, "connection is poisoned")
	}

	if c.syncRequired {
		if err := c.sendSync(ctx); err != nil {
			return c.poison(err)
		}
		if err := c.drainToReady(ctx); err != nil {
			return c.poison(err)
		}
	}

	if !c.ready {
		if err := c.drainToReady(ctx); err != nil {
			return c.poison(err)
		}
	}

	return nil
}

func (c *Conn) sendSync(ctx context.Context) error {
	return c.withDeadline(ctx, func() error {
		c.writer.Start(protocol.FrontendSync)
		if err := c.writer.End(); err != nil {
			return err
		}
		c.syncRequired = false
		return nil
	})
}

// beginFlow clears the ready flag at the start of a user-initiated
// operation, per spec.md section 4.4.
func (c *Conn) beginFlow() {
	c.ready = false
}

// nextMessage reads the next backend message, transparently absorbing the
// asynchronous messages spec.md section 4.4 names (NoticeResponse,
// ParameterStatus, NotificationResponse) instead of returning them to the
// caller.
func (c *Conn) nextMessage(ctx context.Context) (protocol.BackendMessage, error) {
	for {
		var kind protocol.BackendMessage
		err := c.withDeadline(ctx, func() error {
			var readErr error
			kind, readErr = c.reader.ReadTypedMsg()
			return readErr
		})
		if err != nil {
			return 0, c.poison(pgerror.Wrap(pgerror.KindIO, true, err, "reading backend message"))
		}

		switch kind {
		case protocol.BackendNoticeResponse:
			fields, err := protocol.DecodeErrorFields(c.reader)
			if err != nil {
				return 0, c.poison(err)
			}
			c.logger.Info().Str("message", fields[protocol.ErrFieldMsgPrimary]).Msg("notice from backend")
			continue

		case protocol.BackendParameterStatus:
			ps, err := protocol.DecodeParameterStatus(c.reader)
			if err != nil {
				return 0, c.poison(err)
			}
			if c.params == nil {
				c.params = Parameters{}
			}
			c.params[ParameterStatus(ps.Name)] = ps.Value
			c.logger.Debug().Str("name", ps.Name).Str("value", ps.Value).Msg("parameter status")
			continue

		case protocol.BackendNotificationResponse:
			n, err := protocol.DecodeNotificationResponse(c.reader)
			if err != nil {
				return 0, c.poison(err)
			}
			c.deliverNotification(Notification{ProcessID: n.ProcessID, Channel: n.Channel, Payload: n.Payload})
			continue

		default:
			return kind, nil
		}
	}
}

func (c *Conn) deliverNotification(n Notification) {
	c.notifyMu.Lock()
	ch := c.notify
	c.notifyMu.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- n:
	default:
		c.logger.Warn().Str("channel", n.Channel).Msg("dropping notification: subscriber channel full")
	}
}

// drainToReady reads messages until ReadyForQuery, tracking transaction
// status. It always waits for a ReadyForQuery, so callers only invoke it
// while one is still pending; Reset is the idempotent entry point and
// returns at once when the connection is already ready (spec.md section 4.4
// "reset ... is idempotent").
func (c *Conn) drainToReady(ctx context.Context) error {
	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return err
		}

		if kind == protocol.BackendReady {
			rfq, err := protocol.DecodeReadyForQuery(c.reader)
			if err != nil {
				return c.poison(err)
			}
			c.txnStatus = rfq.Status
			c.ready = true
			return nil
		}
	}
}

// readServerError decodes a BackendErrorResponse body into a *pgerror.ServerError.
func readServerError(r *protocol.Reader) (*pgerror.ServerError, error) {
	fields, err := protocol.DecodeErrorFields(r)
	if err != nil {
		return nil, err
	}

	return &pgerror.ServerError{
		Severity: pgerror.Severity(fields[protocol.ErrFieldSeverity]),
		Code:     pgerror.Code(fields[protocol.ErrFieldSQLState]),
		Message:  fields[protocol.ErrFieldMsgPrimary],
		Detail:   fields[protocol.ErrFieldDetail],
		Hint:     fields[protocol.ErrFieldHint],
		Where:    fields[protocol.ErrFieldWhere],
		Routine:  fields[protocol.ErrFieldSrcFunction],
	}, nil
}
