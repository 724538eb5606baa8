package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/stockwise/internal/auth/domain"
	"github.com/smallbiznis/stockwise/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestVerify(t *testing.T) {
	v, err := NewVerifier(config.Config{AuthJWTSecret: "test-secret", AuthJWTIssuer: "stockwise-idp"})
	require.NoError(t, err)

	valid := jwt.RegisteredClaims{
		Subject:   "12345",
		Issuer:    "stockwise-idp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	id, err := v.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), valid))
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id.Int64())

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), valid)
	_, err = v.Verify(wrongKey)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), expired))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	noExpiry := valid
	noExpiry.ExpiresAt = nil
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), noExpiry))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), wrongIssuer))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	badSubject := valid
	badSubject.Subject = "alice"
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("test-secret"), badSubject))
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = v.Verify("")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	v, err := NewVerifier(config.Config{AuthJWTSecret: "test-secret"})
	require.NoError(t, err)

	raw := sign(t, jwt.SigningMethodHS512, []byte("test-secret"), jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	_, err = v.Verify(raw)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier(config.Config{})
	assert.Error(t, err)
}
