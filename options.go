package elefantpg

import (
	"crypto/tls"
	"time"

	"github.com/rs/zerolog"
)

// config carries the resolved connection parameters assembled by Option
// functions before Connect dials (spec.md section 4.4 "Initial state").
type config struct {
	host            string
	port            int
	user            string
	password        string
	database        string
	applicationName string
	tlsConfig       *tls.Config
	logger          zerolog.Logger
	bufferSize      int
	dialTimeout     time.Duration
}

func defaultConfig() *config {
	return &config{
		host:        "localhost",
		port:        5432,
		user:        "postgres",
		bufferSize:  1 << 16,
		dialTimeout: 10 * time.Second,
		logger:      zerolog.Nop(),
	}
}

// Option configures a Conn before Connect dials, mirroring the teacher's
// functional-options pattern for Server construction.
type Option func(*config)

// WithHost sets the hostname or IP address to dial.
func WithHost(host string) Option {
	return func(c *config) { c.host = host }
}

// WithPort sets the TCP port to dial.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithUser sets the authenticating role name.
func WithUser(user string) Option {
	return func(c *config) { c.user = user }
}

// WithPassword sets the password used for cleartext/MD5/SCRAM authentication.
func WithPassword(password string) Option {
	return func(c *config) { c.password = password }
}

// WithDatabase sets the database to connect to.
func WithDatabase(database string) Option {
	return func(c *config) { c.database = database }
}

// WithApplicationName sets the application_name startup parameter.
func WithApplicationName(name string) Option {
	return func(c *config) { c.applicationName = name }
}

// WithTLSConfig enables TLS negotiation (an SSLRequest precedes the startup
// message) using the given configuration.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) { c.tlsConfig = cfg }
}

// WithLogger threads a zerolog.Logger through the connection for protocol
// trace and async-message logging (spec.md section 4.4).
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBufferSize sets the read buffer size. It is also the largest message
// body the reader accepts; a larger message fails with FrameMalformed.
func WithBufferSize(size int) Option {
	return func(c *config) { c.bufferSize = size }
}

// WithDialTimeout bounds the initial TCP dial. The SSL negotiation and TLS
// handshake that follow are not covered by it.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}
