package elefantpg

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/elefantpg/elefantpg-go/pgerror"
	"github.com/elefantpg/elefantpg-go/pgtype"
)

// Pool is the minimal connection pool used internally by the parallel copy
// coordinator (spec.md section 5 "the connection pool ... serializes
// checkout/return behind a lightweight mutual-exclusion primitive"). It is
// not a general-purpose pool: idle connections are never health-checked or
// expired.
type Pool struct {
	connect func(ctx context.Context) (*Conn, error)

	mu   sync.Mutex
	idle []*Conn
}

// NewPool constructs a Pool that dials with connect when no idle connection
// is available.
func NewPool(connect func(ctx context.Context) (*Conn, error)) *Pool {
	return &Pool{connect: connect}
}

// Get returns an idle connection if one is available, otherwise dials a new
// one.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	return p.connect(ctx)
}

// Put returns c to the pool for reuse, or closes it if it has been poisoned.
func (p *Pool) Put(c *Conn) {
	if c.poisoned != nil {
		_ = c.Close()
		return
	}

	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// Close closes every idle connection currently held by the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var first error
	for _, c := range idle {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// CopyJob describes one unit of work for the parallel copy coordinator: a
// copy-out statement run against a worker connection checked out of src, and
// the matching copy-in statement run against a worker connection checked out
// of dst.
type CopyJob struct {
	CopyOutSQL string
	CopyInSQL  string
}

// RunParallelCopy opens a primary connection, begins a REPEATABLE READ READ
// ONLY transaction and exports its snapshot, then runs each job through a
// worker pair drawn from src/dst under a shared snapshot, bounded by
// parallelism concurrent workers (spec.md section 4.8). On any worker error,
// the remaining workers are cancelled cooperatively and the primary
// transaction rolls back; otherwise it commits.
func RunParallelCopy(ctx context.Context, primary *Conn, src, dst *Pool, jobs []CopyJob, parallelism int64) error {
	if parallelism < 1 {
		return pgerror.New(pgerror.KindConfigurationError, "parallelism must be >= 1, got %d", parallelism)
	}

	if err := execSimple(ctx, primary, "BEGIN REPEATABLE READ READ ONLY"); err != nil {
		return err
	}

	snapshotID, err := exportSnapshot(ctx, primary)
	if err != nil {
		_ = execSimple(ctx, primary, "ROLLBACK")
		return err
	}

	sem := semaphore.NewWeighted(parallelism)
	g, gctx := errgroup.WithContext(ctx)

	for _, job := range jobs {
		job := job
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return runCopyWorker(gctx, src, dst, snapshotID, job)
		})
	}

	if err := g.Wait(); err != nil {
		_ = execSimple(ctx, primary, "ROLLBACK")
		return err
	}

	return execSimple(ctx, primary, "COMMIT")
}

func runCopyWorker(ctx context.Context, src, dst *Pool, snapshotID string, job CopyJob) error {
	srcConn, err := src.Get(ctx)
	if err != nil {
		return err
	}
	defer src.Put(srcConn)

	if err := execSimple(ctx, srcConn, "BEGIN REPEATABLE READ READ ONLY"); err != nil {
		return err
	}
	if err := execSimple(ctx, srcConn, fmt.Sprintf("SET TRANSACTION SNAPSHOT '%s'", snapshotID)); err != nil {
		_ = execSimple(ctx, srcConn, "ROLLBACK")
		return err
	}

	dstConn, err := dst.Get(ctx)
	if err != nil {
		_ = execSimple(ctx, srcConn, "ROLLBACK")
		return err
	}
	defer dst.Put(dstConn)

	reader, err := srcConn.CopyFrom(ctx, job.CopyOutSQL)
	if err != nil {
		_ = execSimple(ctx, srcConn, "ROLLBACK")
		return err
	}

	writer, err := dstConn.CopyTo(ctx, job.CopyInSQL)
	if err != nil {
		_ = reader.End(ctx)
		_ = execSimple(ctx, srcConn, "ROLLBACK")
		return err
	}

	if err := CopyStream(ctx, reader, writer); err != nil {
		_ = execSimple(ctx, srcConn, "ROLLBACK")
		return err
	}

	return execSimple(ctx, srcConn, "COMMIT")
}

// execSimple runs sql for its side effect and discards any rows produced.
func execSimple(ctx context.Context, c *Conn, sql string) error {
	rs, err := c.Query(ctx, sql)
	if err != nil {
		return err
	}
	for {
		rr, err := rs.NextResultSet(ctx)
		if err != nil {
			return err
		}
		if rr == nil {
			return nil
		}
		for {
			row, err := rr.Next(ctx)
			if err != nil {
				return err
			}
			if row == nil {
				break
			}
		}
	}
}

// exportSnapshot runs pg_export_snapshot() and scans its single text result.
func exportSnapshot(ctx context.Context, c *Conn) (string, error) {
	rs, err := c.Query(ctx, "SELECT pg_export_snapshot()")
	if err != nil {
		return "", err
	}

	rr, err := rs.NextResultSet(ctx)
	if err != nil {
		return "", err
	}
	if rr == nil {
		return "", pgerror.New(pgerror.KindUnexpectedBackendMessage, "pg_export_snapshot() produced no result set")
	}

	row, err := rr.Next(ctx)
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", pgerror.New(pgerror.KindUnexpectedBackendMessage, "pg_export_snapshot() produced no row")
	}

	var id pgtype.Text
	if err := Scan(row, 0, &id); err != nil {
		return "", err
	}

	// drain the remaining protocol traffic (CommandComplete, ReadyForQuery)
	for {
		next, err := rr.Next(ctx)
		if err != nil {
			return "", err
		}
		if next == nil {
			break
		}
	}
	if _, err := rs.NextResultSet(ctx); err != nil {
		return "", err
	}

	return string(id), nil
}
