package elefantpg

import (
	"fmt"
	"sync/atomic"
)

// clientIDCounter assigns each Conn a process-wide unique id for logging,
// mirroring the original driver's atomic client counter.
var clientIDCounter atomic.Uint64

func nextClientID() uint64 {
	return clientIDCounter.Add(1)
}

// statementCounter names prepared statements deterministically and
// uniquely within one connection (each Conn holds its own counter, so two
// connections hand out the same names), per spec.md section 4.5 ("Each prepare
// increments the connection's counter to form a unique name").
type statementCounter struct {
	n atomic.Uint64
}

func (c *statementCounter) next() string {
	return fmt.Sprintf("elefantpg_stmt_%d", c.n.Add(1))
}
