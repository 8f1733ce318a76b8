package elefantpg

import (
	"context"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/protocol"
)

// CopyTo begins a COPY FROM STDIN (copy-in) stream: sql must be a COPY
// statement reading from STDIN. The backend's CopyInResponse is consumed and
// a CopyWriter returned (spec.md section 4.6 "Entering copy mode").
func (c *Conn) CopyTo(ctx context.Context, sql string) (*CopyWriter, error) {
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

	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendCopyInResponse:
			if _, err := protocol.DecodeCopyResponse(c.reader); err != nil {
				return nil, c.poison(err)
			}
			return &CopyWriter{conn: c}, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			if err := c.drainToReady(ctx); err != nil {
				return nil, err
			}
			return nil, se

		default:
			return nil, c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s entering copy-in mode", kind))
		}
	}
}

// CopyFrom begins a COPY TO STDOUT (copy-out) stream: sql must be a COPY
// statement writing to STDOUT. The backend's CopyOutResponse is consumed and
// a CopyReader returned (spec.md section 4.6).
func (c *Conn) CopyFrom(ctx context.Context, sql string) (*CopyReader, error) {
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

	for {
		kind, err := c.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendCopyOutResponse:
			if _, err := protocol.DecodeCopyResponse(c.reader); err != nil {
				return nil, c.poison(err)
			}
			return &CopyReader{conn: c}, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(c.reader)
			if err != nil {
				return nil, c.poison(err)
			}
			if err := c.drainToReady(ctx); err != nil {
				return nil, err
			}
			return nil, se

		default:
			return nil, c.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s entering copy-out mode", kind))
		}
	}
}

// CopyWriter streams CopyData chunks to the backend during a copy-in flow.
// Payload bytes are never interpreted; callers are responsible for producing
// well-formed COPY data (text or binary, matching the statement).
type CopyWriter struct {
	conn *Conn
	done bool
}

// Write frames chunk as a single CopyData message and flushes it immediately.
func (cw *CopyWriter) Write(ctx context.Context, chunk []byte) error {
	if cw.done {
		return pgerror.New(pgerror.KindCopyProtocolViolation, "write after copy stream ended")
	}

	err := cw.conn.withDeadline(ctx, func() error {
		msg := protocol.CopyData{Data: chunk}
		return msg.Encode(cw.conn.writer)
	})
	if err != nil {
		return cw.conn.poison(err)
	}
	return nil
}

// End sends CopyDone and drains to ReadyForQuery, completing the copy-in
// flow normally (spec.md section 4.6).
func (cw *CopyWriter) End(ctx context.Context) error {
	if cw.done {
		return nil
	}
	cw.done = true

	err := cw.conn.withDeadline(ctx, func() error {
		done := protocol.CopyDone{}
		return done.Encode(cw.conn.writer)
	})
	if err != nil {
		return cw.conn.poison(err)
	}

	return cw.drainCompletion(ctx)
}

// Abort sends CopyFail with reason, aborting the copy-in stream, then drains
// the resulting ErrorResponse to ReadyForQuery (spec.md section 4.6).
func (cw *CopyWriter) Abort(ctx context.Context, reason string) error {
	if cw.done {
		return nil
	}
	cw.done = true

	err := cw.conn.withDeadline(ctx, func() error {
		fail := protocol.CopyFail{Reason: reason}
		return fail.Encode(cw.conn.writer)
	})
	if err != nil {
		return cw.conn.poison(err)
	}

	for {
		kind, err := cw.conn.nextMessage(ctx)
		if err != nil {
			return err
		}
		switch kind {
		case protocol.BackendErrorResponse:
			se, err := readServerError(cw.conn.reader)
			if err != nil {
				return cw.conn.poison(err)
			}
			if err := cw.conn.drainToReady(ctx); err != nil {
				return err
			}
			return se
		case protocol.BackendReady:
			rfq, err := protocol.DecodeReadyForQuery(cw.conn.reader)
			if err != nil {
				return cw.conn.poison(err)
			}
			cw.conn.txnStatus = rfq.Status
			cw.conn.ready = true
			return nil
		default:
			return cw.conn.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s aborting copy-in", kind))
		}
	}
}

// drainCompletion consumes the CommandComplete and ReadyForQuery that follow
// a successful CopyDone.
func (cw *CopyWriter) drainCompletion(ctx context.Context) error {
	for {
		kind, err := cw.conn.nextMessage(ctx)
		if err != nil {
			return err
		}

		switch kind {
		case protocol.BackendCommandComplete:
			if _, err := protocol.DecodeCommandComplete(cw.conn.reader); err != nil {
				return cw.conn.poison(err)
			}
			continue

		case protocol.BackendErrorResponse:
			se, err := readServerError(cw.conn.reader)
			if err != nil {
				return cw.conn.poison(err)
			}
			if err := cw.conn.drainToReady(ctx); err != nil {
				return err
			}
			return se

		case protocol.BackendReady:
			rfq, err := protocol.DecodeReadyForQuery(cw.conn.reader)
			if err != nil {
				return cw.conn.poison(err)
			}
			cw.conn.txnStatus = rfq.Status
			cw.conn.ready = true
			return nil

		default:
			return cw.conn.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s completing copy-in", kind))
		}
	}
}

// CopyReader streams CopyData chunks from the backend during a copy-out
// flow. Payload bytes are returned exactly as sent; no transcoding is
// performed.
type CopyReader struct {
	conn *Conn
	done bool
}

// Read returns the next CopyData chunk, borrowed from the connection's read
// buffer and valid only until the next Read call. It returns (nil, nil) once
// the stream has ended normally.
func (cr *CopyReader) Read(ctx context.Context) ([]byte, error) {
	if cr.done {
		return nil, nil
	}

	for {
		kind, err := cr.conn.nextMessage(ctx)
		if err != nil {
			return nil, err
		}

		switch kind {
		case protocol.BackendCopyData:
			return protocol.DecodeCopyData(cr.conn.reader), nil

		case protocol.BackendCopyDone:
			continue

		case protocol.BackendCommandComplete:
			if _, err := protocol.DecodeCommandComplete(cr.conn.reader); err != nil {
				return nil, cr.conn.poison(err)
			}
			continue

		case protocol.BackendReady:
			rfq, err := protocol.DecodeReadyForQuery(cr.conn.reader)
			if err != nil {
				return nil, cr.conn.poison(err)
			}
			cr.conn.txnStatus = rfq.Status
			cr.conn.ready = true
			cr.done = true
			return nil, nil

		case protocol.BackendErrorResponse:
			se, err := readServerError(cr.conn.reader)
			if err != nil {
				return nil, cr.conn.poison(err)
			}
			cr.done = true
			if err := cr.conn.drainToReady(ctx); err != nil {
				return nil, err
			}
			return nil, se

		default:
			return nil, cr.conn.poison(pgerror.Fatalf(pgerror.KindUnexpectedBackendMessage, "unexpected message %s during copy-out", kind))
		}
	}
}

// End discards any remaining CopyData chunks and drains to ReadyForQuery. It
// is safe to call after Read has already reached the end of the stream.
func (cr *CopyReader) End(ctx context.Context) error {
	for {
		chunk, err := cr.Read(ctx)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}
	}
}

// CopyStream forwards every chunk read from src to dst without interpreting
// the payload, until src reaches the end of its stream (spec.md section 4.6
// "the pipeline performs no transcoding"). On a read error from src, dst is
// aborted with the error's message and the read error is returned. On a
// write error to dst, src is drained via End and the write error is
// returned. Otherwise dst.End completes the copy-in flow normally.
func CopyStream(ctx context.Context, src *CopyReader, dst *CopyWriter) error {
	for {
		chunk, err := src.Read(ctx)
		if err != nil {
			_ = dst.Abort(ctx, err.Error())
			return err
		}
		if chunk == nil {
			return dst.End(ctx)
		}

		if err := dst.Write(ctx, chunk); err != nil {
			_ = src.End(ctx)
			return err
		}
	}
}
