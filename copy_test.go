package elefantpg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elefantpg/elefantpg-go/protocol"
)

func TestCopyToWritesChunksAndEnds(t *testing.T) {
	conn, server := testConnect(t)

	done := make(chan struct{})
	var received [][]byte
	go func() {
		defer close(done)
		server.ExpectMessage(t, protocol.FrontendSimpleQuery)

		server.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyInResponse))
		server.Writer.AddByte(byte(protocol.FormatText))
		server.Writer.AddInt16(0)
		require.NoError(t, server.Writer.End())

		for i := 0; i < 2; i++ {
			server.ExpectMessage(t, protocol.FrontendCopyData)
			received = append(received, append([]byte(nil), server.Reader.Msg...))
		}
		server.ExpectMessage(t, protocol.FrontendCopyDone)
		server.SendCommandComplete(t, "COPY 2")
		server.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	writer, err := conn.CopyTo(context.Background(), "COPY t FROM STDIN")
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), []byte("row1\n")))
	require.NoError(t, writer.Write(context.Background(), []byte("row2\n")))
	require.NoError(t, writer.End(context.Background()))

	<-done
	require.Equal(t, [][]byte{[]byte("row1\n"), []byte("row2\n")}, received)
	require.True(t, conn.ready)
}

func TestCopyFromReadsChunksUntilDone(t *testing.T) {
	conn, server := testConnect(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.ExpectMessage(t, protocol.FrontendSimpleQuery)

		server.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyOutResponse))
		server.Writer.AddByte(byte(protocol.FormatText))
		server.Writer.AddInt16(0)
		require.NoError(t, server.Writer.End())

		server.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyData))
		server.Writer.AddBytes([]byte("a\tb\n"))
		require.NoError(t, server.Writer.End())

		server.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyDone))
		require.NoError(t, server.Writer.End())

		server.SendCommandComplete(t, "COPY 1")
		server.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	reader, err := conn.CopyFrom(context.Background(), "COPY t TO STDOUT")
	require.NoError(t, err)

	chunk, err := reader.Read(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a\tb\n", string(chunk))

	chunk, err = reader.Read(context.Background())
	require.NoError(t, err)
	require.Nil(t, chunk)

	<-done
	require.True(t, conn.ready)
}

func TestCopyStreamForwardsBetweenConnections(t *testing.T) {
	src, srcServer := testConnect(t)
	dst, dstServer := testConnect(t)

	srcDone := make(chan struct{})
	go func() {
		defer close(srcDone)
		srcServer.ExpectMessage(t, protocol.FrontendSimpleQuery)

		srcServer.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyOutResponse))
		srcServer.Writer.AddByte(byte(protocol.FormatText))
		srcServer.Writer.AddInt16(0)
		require.NoError(t, srcServer.Writer.End())

		srcServer.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyData))
		srcServer.Writer.AddBytes([]byte("x\n"))
		require.NoError(t, srcServer.Writer.End())

		srcServer.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyDone))
		require.NoError(t, srcServer.Writer.End())

		srcServer.SendCommandComplete(t, "COPY 1")
		srcServer.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	dstDone := make(chan struct{})
	var forwarded []byte
	go func() {
		defer close(dstDone)
		dstServer.ExpectMessage(t, protocol.FrontendSimpleQuery)

		dstServer.Writer.Start(protocol.FrontendMessage(protocol.BackendCopyInResponse))
		dstServer.Writer.AddByte(byte(protocol.FormatText))
		dstServer.Writer.AddInt16(0)
		require.NoError(t, dstServer.Writer.End())

		dstServer.ExpectMessage(t, protocol.FrontendCopyData)
		forwarded = append(forwarded, dstServer.Reader.Msg...)
		dstServer.ExpectMessage(t, protocol.FrontendCopyDone)
		dstServer.SendCommandComplete(t, "COPY 1")
		dstServer.SendReadyForQuery(t, protocol.TransactionIdle)
	}()

	reader, err := src.CopyFrom(context.Background(), "COPY t TO STDOUT")
	require.NoError(t, err)

	writer, err := dst.CopyTo(context.Background(), "COPY t FROM STDIN")
	require.NoError(t, err)

	require.NoError(t, CopyStream(context.Background(), reader, writer))

	<-srcDone
	<-dstDone
	require.Equal(t, "x\n", string(forwarded))
}
