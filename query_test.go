package elefantpg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefantpg/elefantpg-go/internal/pgtest"
	"github.com/elefantpg/elefantpg-go/protocol"
)

func testConnect(t *testing.T) (*Conn, *pgtest.Server) {
	t.Helper()

	client, server := pgtest.Pipe(t)

	cfg := defaultConfig()
	cfg.user = "tester"
	cfg.password = "secret"

	connCh := make(chan *Conn, 1)
	errCh := make(chan error, 1)

	go func() {
		server.ExpectStartup(t)
		server.SendAuthOK(t)
		server.SendBackendKeyData(t, 4242, 9999)
		server.SendParameterStatus(t, "server_version", "16.0")
		server.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	go func() {
		c, err := connectOverNetConn(context.Background(), client, cfg)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- c
	}()

	select {
	case c := <-connCh:
		return c, server
	case err := <-errCh:
		t.Fatalf("connect failed: %v", err)
		return nil, nil
	}
}

func TestConnectHandshake(t *testing.T) {
	conn, _ := testConnect(t)
	require.Equal(t, int32(4242), conn.BackendPID())
	require.Equal(t, int32(9999), conn.BackendSecretKey())

	version, ok := conn.Parameter("server_version")
	require.True(t, ok)
	require.Equal(t, "16.0", version)
}

func TestQuerySingleRow(t *testing.T) {
	conn, server := testConnect(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.ExpectMessage(t, protocol.FrontendSimpleQuery)
		server.SendRowDescription(t, []protocol.Field{{Name: "n", DataTypeOID: 23, Format: protocol.FormatBinary}})
		server.SendDataRow(t, [][]byte{{0, 0, 0, 1}})
		server.SendCommandComplete(t, "SELECT 1")
		server.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	rs, err := conn.Query(context.Background(), "SELECT 1")
	require.NoError(t, err)

	rr, err := rs.NextResultSet(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rr)

	row, err := rr.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, row)
	require.False(t, row.IsNull(0))

	next, err := rr.Next(context.Background())
	require.NoError(t, err)
	require.Nil(t, next)
	require.Equal(t, "SELECT 1", rr.CommandTag())

	final, err := rs.NextResultSet(context.Background())
	require.NoError(t, err)
	require.Nil(t, final)

	<-done
}

func TestQueryServerErrorLeavesConnectionUsable(t *testing.T) {
	conn, server := testConnect(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.ExpectMessage(t, protocol.FrontendSimpleQuery)
		server.SendErrorResponse(t, "ERROR", "42601", "syntax error")
		server.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	rs, err := conn.Query(context.Background(), "SELECT bad syntax")
	require.NoError(t, err)

	rr, err := rs.NextResultSet(context.Background())
	require.Error(t, err)
	require.Nil(t, rr)
	require.True(t, conn.ready)

	<-done
}
