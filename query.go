package elefantpg

import (
	"context"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// Query runs sql through the simple query protocol (spec.md section 4.5
// "Simple flow"). Use QueryParams for parameterized statements.
func (c *Conn) Query(ctx context.Context, sql string) (*ResultSet, error) {
	if err := c.checkReady(ctx); err != nil {
		return nil, err
	}
	c.beginFlow()

	err := c.withDeadline(ctx, func() error {
		msg := protocol.SimpleQuery{SQL: sql}
		return msg.Encode(c.writer)
	})
	if err != nil {
		return nil, c.poison(err)
	}

	return &ResultSet{conn: c}, nil
}

// ResultSet is the outer level of the two-level result iterator from
// spec.md section 4.5: each RowDescription encountered in a simple-query
// reply opens a new result set.
type ResultSet struct {
	conn       *Conn
	finished   bool
	commandTag string
}

// NextResultSet advances to the next result set. It returns (nil, nil) once
// the query has fully completed (ReadyForQuery reached).
func (rs *ResultSet) NextResultSet(ctx context.Context) (*RowReader, error) {
	if rs.finished {
		return nil, nil
	}

	for {
		kind, err := rs.conn.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendRowDescription:
			rd, err := protocol.DecodeRowDescription(rs.conn.reader)
			if err != nil {
				return nil, rs.conn.poison(err)
			}
			return &RowReader{conn: rs.conn, fields: rd.Fields, parent: rs}, nil

		case protocol.BackendEmptyQuery:
			continue

		case protocol.BackendCommandComplete:
			cc, err := protocol.DecodeCommandComplete(rs.conn.reader)
			if err != nil {
				return nil, rs.conn.poison(err)
			}
			rs.commandTag = cc.Tag
			return &RowReader{conn: rs.conn, fields: nil, parent: rs, done: true, commandTag: cc.Tag}, nil

		case protocol.BackendReady:
			rfq, err := protocol.DecodeReadyForQuery(rs.conn.reader)
			if err != nil {
				return nil, rs.conn.poison(err)
			}
			rs.conn.txnStatus = rfq.Status
			rs.conn.ready = true
			rs.finished = true
			return nil, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(rs.conn.reader)
			if err != nil {
				return nil, rs.conn.poison(err)
			}
			if err := rs.conn.drainToReady(ctx); err != nil {
				return nil, err
			}
			rs.finished = true
			return nil, se

		default:
			return nil, rs.conn.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s in result set", kind))
		}
	}
}

// CommandTag returns the tag of the most recently completed command (e.g.
// "INSERT 0 3").
func (rs *ResultSet) CommandTag() string { return rs.commandTag }

// RowReader is the inner level of the two-level iterator: it yields rows
// until CommandComplete or PortalSuspended (spec.md section 4.5).
type RowReader struct {
	conn       *Conn
	fields     []protocol.Field
	done       bool
	commandTag string
	parent     *ResultSet
}

// Fields returns the column descriptors of this result.
func (rr *RowReader) Fields() []protocol.Field { return rr.fields }

// Next reads the next row, or returns (nil, nil) when the row stream is
// exhausted. The returned Row borrows its values from the connection's read
// buffer; it is invalid once Next is called again (spec.md section 4.5).
func (rr *RowReader) Next(ctx context.Context) (*Row, error) {
	if rr.done {
		return nil, nil
	}

	for {
		kind, err := rr.conn.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendDataRow:
			dr, err := protocol.DecodeDataRow(rr.conn.reader)
			if err != nil {
				return nil, rr.conn.poison(err)
			}
			return &Row{fields: rr.fields, values: dr.Values}, nil

		case protocol.BackendCommandComplete:
			cc, err := protocol.DecodeCommandComplete(rr.conn.reader)
			if err != nil {
				return nil, rr.conn.poison(err)
			}
			rr.commandTag = cc.Tag
			if rr.parent != nil {
				rr.parent.commandTag = cc.Tag
			}
			rr.done = true
			return nil, nil

		case protocol.BackendPortalSuspended:
			rr.done = true
			return nil, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(rr.conn.reader)
			if err != nil {
				return nil, rr.conn.poison(err)
			}
			rr.done = true
			if rr.parent == nil {
				// standalone extended-flow reader: resolve the pending
				// Sync ourselves so the connection comes back ready.
				if err := rr.conn.sendSync(ctx); err != nil {
					return nil, rr.conn.poison(err)
				}
				if err := rr.conn.drainToReady(ctx); err != nil {
					return nil, err
				}
			}
			return nil, se

		default:
			return nil, rr.conn.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s while reading rows", kind))
		}
	}
}

// CommandTag returns the tag of the command that produced (or would have
// produced) this row stream, valid after Next returns (nil, nil).
func (rr *RowReader) CommandTag() string { return rr.commandTag }

// QueryParams runs sql through the extended query protocol with an unnamed
// statement and portal (spec.md section 4.5 "Extended flow"): Parse,
// Describe, Bind, Execute, Flush. Sync is deferred to the next flow
// boundary to preserve pipelining.
func (c *Conn) QueryParams(ctx context.Context, sql string, params []Param) (*RowReader, error) {
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
		parse := protocol.Parse{Name: "", SQL: sql}
		if err := parse.Encode(c.writer); err != nil {
			return err
		}

		describe := protocol.Describe{Target: protocol.DescribeStatement, Name: ""}
		if err := describe.Encode(c.writer); err != nil {
			return err
		}

		bind := protocol.Bind{
			Portal:          "",
			Statement:       "",
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

	fields, err := c.awaitExtendedReady(ctx)
	if err != nil {
		return nil, err
	}

	return &RowReader{conn: c, fields: fields}, nil
}

// awaitExtendedReady consumes ParseComplete, ParameterDescription, either
// RowDescription or NoData, and BindComplete, returning the row description
// fields (nil if NoData).
func (c *Conn) awaitExtendedReady(ctx context.Context) ([]protocol.Field, error) {
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
			if _, err := protocol.DecodeParameterDescription(c.reader); err != nil {
				return nil, c.poison(err)
			}
			continue

		case protocol.BackendRowDescription:
			rd, err := protocol.DecodeRowDescription(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			fields = rd.Fields
			// A statement Describe reports format 0 for every column; the
			// Bind above requests binary results for all of them.
			for i := range fields {
				fields[i].Format = protocol.FormatBinary
			}
			continue

		case protocol.BackendNoData:
			continue

		case protocol.BackendBindComplete:
			return fields, nil

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
			return nil, c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s in extended flow", kind))
		}
	}
}
