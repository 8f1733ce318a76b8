package elefantpg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScramVerifierMatchesFixedVector(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	got := scramVerifier("secret", salt, 4096)
	want := "SCRAM-SHA-256$4096:AQIDBAUGBwgJCgsMDQ4PEA==$8rrDg00OqaiWXJ7p+sCgHEIaBSHY89ZJl3mfIsf32oY=:05L1f+yZbiN8O0AnO40Og85NNRhvzTS57naKRWCcsIA="

	require.Equal(t, want, got)
}

func TestParseServerFirst(t *testing.T) {
	nonce, salt, iterations, err := parseServerFirst("r=abc123,s=AQIDBAUGBwgJCgsMDQ4PEA==,i=4096")
	require.NoError(t, err)
	require.Equal(t, "abc123", nonce)
	require.Equal(t, 4096, iterations)
	require.Len(t, salt, 16)
}

func TestParseServerFirstRejectsMalformed(t *testing.T) {
	_, _, _, err := parseServerFirst("r=abc123")
	require.Error(t, err)
}

func TestMD5PasswordHasPrefixedHexForm(t *testing.T) {
	got := md5Password("user", "pass", [4]byte{1, 2, 3, 4})
	require.Len(t, got, 3+32)
	require.Equal(t, "md5", got[:3])
}
