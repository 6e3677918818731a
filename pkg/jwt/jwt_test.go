package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate("s3cret", 42, "ana", "admin", "stock-ledger", 5)
	require.NoError(t, err)

	claims, err := Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestParse_Rechaza(t *testing.T) {
	tok, err := Generate("s3cret", 1, "ana", "member", "stock-ledger", 5)
	require.NoError(t, err)

	_, err = Parse("otro", tok)
	assert.Error(t, err, "firma incorrecta")

	expired, err := Generate("s3cret", 1, "ana", "member", "stock-ledger", -1)
	require.NoError(t, err)
	_, err = Parse("s3cret", expired)
	assert.Error(t, err, "token expirado")

	_, err = Generate("", 1, "ana", "member", "x", 5)
	assert.Error(t, err)
}
