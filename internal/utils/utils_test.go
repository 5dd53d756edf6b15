package utils

import (
	"encoding/base64"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPasswordHash("s3cret", hash))
	assert.False(t, CheckPasswordHash("S3cret", hash))

	again, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := GenerateToken()
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		assert.Len(t, raw, TokenBytes)

		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com": "a****@example.com",
		"b@x.io":            "b@x.io",
		"not-an-email":      "***",
		"@x.io":             "***",
		"élodie@x.io":       "é*****@x.io",
		"ñ@x.io":            "ñ@x.io",
	}
	for in, want := range tests {
		got := MaskEmail(in)
		assert.Equal(t, want, got, in)
		assert.True(t, utf8.ValidString(got), in)
	}
}
