package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expiresAt, err := signer.Generate("pay-1", "2025/recibo_pay-1.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	paymentID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", paymentID)
	assert.Equal(t, "2025/recibo_pay-1.pdf", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("pay-1", "recibo.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	assert.Error(t, err)

	other := NewSignedURLSigner("other-secret", time.Minute)
	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}

func TestSignedURLRejectsMalformedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	_, _, _, err := signer.Parse("not-a-token")
	assert.Error(t, err)
}

func TestSignedURLRequiresFields(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	_, _, err := signer.Generate("", "recibo.pdf")
	assert.Error(t, err)
}
