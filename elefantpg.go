// Package elefantpg implements a client-side PostgreSQL v3 wire-protocol
// driver: connection handshake and authentication (cleartext, MD5,
// SCRAM-SHA-256), the simple and extended query flows, prepared statements,
// the COPY sub-protocol with a streaming forwarding primitive, and a
// bounded-parallelism copy coordinator built on top of it.
//
// A Conn is obtained with Connect and is not safe for concurrent use: all
// operations on one connection are sequential, matching the wire protocol's
// own FIFO framing.
package elefantpg
