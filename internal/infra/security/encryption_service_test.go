package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	svc, err := NewEncryptionService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	ct, err := svc.Encrypt(`{"mobile":"09120000000"}`)
	require.NoError(t, err)
	assert.NotContains(t, ct, "0912")

	ct2, _ := svc.Encrypt(`{"mobile":"09120000000"}`)
	assert.NotEqual(t, ct, ct2, "nonce must differ per message")

	pt, err := svc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, `{"mobile":"09120000000"}`, pt)
}

func TestEncryptionService_Base64Key(t *testing.T) {
	raw := []byte("0123456789abcdef")
	svc, err := NewEncryptionService(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)

	ct, err := svc.Encrypt("x")
	require.NoError(t, err)
	pt, err := svc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "x", pt)
}

func TestEncryptionService_Rejects(t *testing.T) {
	_, err := NewEncryptionService("short")
	assert.Error(t, err)

	svc, _ := NewEncryptionService("0123456789abcdef")
	_, err = svc.Decrypt("not base64!")
	assert.Error(t, err)
	_, err = svc.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny")))
	assert.Error(t, err)

	other, _ := NewEncryptionService("fedcba9876543210")
	ct, _ := svc.Encrypt("secret")
	_, err = other.Decrypt(ct)
	assert.Error(t, err)
}
