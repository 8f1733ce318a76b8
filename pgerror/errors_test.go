package pgerror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Fatalf(KindCopyProtocolViolation, "wrong state: %s", "copy-in")
	require.True(t, errors.Is(err, New(KindCopyProtocolViolation, "")))
	require.False(t, errors.Is(err, New(KindIO, "")))
}

func TestServerErrorIsMatchesBySQLState(t *testing.T) {
	err := &ServerError{Code: DivisionByZero, Message: "division by zero"}
	require.True(t, errors.Is(err, WithCode(DivisionByZero)))
	require.False(t, errors.Is(err, WithCode(UniqueViolation)))
}

func TestIsFatal(t *testing.T) {
	require.True(t, IsFatal(Fatalf(KindIO, "boom")))
	require.False(t, IsFatal(New(KindTypeMismatch, "boom")))
	require.False(t, IsFatal(&ServerError{Code: DivisionByZero}))
	require.False(t, IsFatal(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("eof")
	err := Wrap(KindIO, true, cause, "reading message")
	require.ErrorIs(t, err, cause)
	require.True(t, IsFatal(err))
}
