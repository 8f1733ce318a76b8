package elefantpg

import (
	"context"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// PreparedStatement is a named statement prepared on a specific Conn. It
// carries the parameter oids and row description the backend reported, and
// can be executed repeatedly without re-parsing (spec.md section 4.5
// "Prepared statement reuse").
type PreparedStatement struct {
	conn          *Conn
	name          string
	parameterOIDs []int32
	fields        []protocol.Field
}

// ParameterOIDs returns the inferred/declared parameter oids.
func (ps *PreparedStatement) ParameterOIDs() []int32 { return ps.parameterOIDs }

// Fields returns the row description of the prepared statement's result, or
// nil if it produces no rows.
func (ps *PreparedStatement) Fields() []protocol.Field { return ps.fields }

// Prepare parses and describes sql under a fresh, connection-unique
// statement name (spec.md section 4.5 "Each prepare increments the
// connection's counter to form a unique name").
func (c *Conn) Prepare(ctx context.Context, sql string) (*PreparedStatement, error) {
	if err := c.checkReady(ctx); err != nil {
		return nil, err
	}
	c.beginFlow()

	name := c.stmts.next()

	err := c.withDeadline(ctx, func() error {
		parse := protocol.Parse{Name: name, SQL: sql}
		if err := parse.Encode(c.writer); err != nil {
			return err
		}

		describe := protocol.Describe{Target: protocol.DescribeStatement, Name: name}
		if err := describe.Encode(c.writer); err != nil {
			return err
		}

		flush := protocol.Flush{}
		return flush.Encode(c.writer)
	})
	if err != nil {
		return nil, c.poison(err)
	}

	c.syncRequired = true

	var paramOIDs []int32
	var fields []protocol.Field

	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendParseComplete:
			continue

		case protocol.BackendParameterDescription:
			pd, err := protocol.DecodeParameterDescription(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			paramOIDs = pd.OIDs
			continue

		case protocol.BackendRowDescription:
			rd, err := protocol.DecodeRowDescription(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			fields = rd.Fields
			// A statement Describe reports format 0 for every column;
			// ExecutePrepared requests binary results for all of them.
			for i := range fields {
				fields[i].Format = protocol.FormatBinary
			}

		case protocol.BackendNoData:
			// no row-producing result; fields stays nil

		default:
			return nil, c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s while preparing statement", kind))
		}

		return &PreparedStatement{conn: c, name: name, parameterOIDs: paramOIDs, fields: fields}, nil
	}
}

// Execute binds params to a fresh unnamed portal and runs the prepared
// statement on the connection it was prepared on.
func (ps *PreparedStatement) Execute(ctx context.Context, params []Param) (*RowReader, error) {
	return ps.conn.ExecutePrepared(ctx, ps, params)
}

// ExecutePrepared binds params to a fresh unnamed portal and runs ps,
// reusing its named statement instead of re-parsing (spec.md section 4.5
// "Sending a prepared handle skips parse and reuses the named statement").
// ps must have been prepared on c; otherwise WrongConnection is returned.
func (c *Conn) ExecutePrepared(ctx context.Context, ps *PreparedStatement, params []Param) (*RowReader, error) {
	if err := ps.checkConn(c); err != nil {
		return nil, err
	}

	if err := c.checkReady(ctx); err != nil {
		return nil, err
	}
	c.beginFlow()

	formats := make([]protocol.FormatCode, len(params))
	values := make([][]byte, len(params))
	for i, p := range params {
		formats[i] = p.Format
		values[i] = p.Value
	}

	err := c.withDeadline(ctx, func() error {
		bind := protocol.Bind{
			Portal:          "",
			Statement:       ps.name,
			ParameterFormat: formats,
			Parameters:      values,
			ResultFormat:    []protocol.FormatCode{protocol.FormatBinary},
		}
		if err := bind.Encode(c.writer); err != nil {
			return err
		}

		exec := protocol.Execute{Portal: "", MaxRows: 0}
		if err := exec.Encode(c.writer); err != nil {
			return err
		}

		flush := protocol.Flush{}
		return flush.Encode(c.writer)
	})
	if err != nil {
		return nil, c.poison(err)
	}

	c.syncRequired = true

	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendBindComplete:
			return &RowReader{conn: c, fields: ps.fields}, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			if err := c.sendSync(ctx); err != nil {
				return nil, c.poison(err)
			}
			if err := c.drainToReady(ctx); err != nil {
				return nil, err
			}
			return nil, se

		default:
			return nil, c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s binding prepared statement", kind))
		}
	}
}

// checkConn guards against executing a handle prepared on a different
// connection (spec.md section 4.5 "WrongConnection").
func (ps *PreparedStatement) checkConn(c *Conn) error {
	if ps.conn != c {
		return pgerror.New(pgerror.KindWrongConnection, "prepared statement %q belongs to a different connection", ps.name)
	}
	return nil
}

// Close closes the prepared statement on its connection.
func (ps *PreparedStatement) Close(ctx context.Context) error {
	c := ps.conn
	if err := c.checkReady(ctx); err != nil {
		return err
	}
	c.beginFlow()

	err := c.withDeadline(ctx, func() error {
		closeMsg := protocol.Close{Target: protocol.DescribeStatement, Name: ps.name}
		if err := closeMsg.Encode(c.writer); err != nil {
			return err
		}

		sync := protocol.Sync{}
		return sync.Encode(c.writer)
	})
	if err != nil {
		return c.poison(err)
	}

	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return err
		}
		if kind == protocol.BackendCloseComplete {
			continue
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
		return c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s closing prepared statement", kind))
	}
}
