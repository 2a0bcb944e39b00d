package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	subject := Subject{UserID: "user-123", Email: "a@b.io", Roles: []string{"ADMIN", "USER"}}

	tok, err := GenerateToken(subject, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "a@b.io", claims.Email)
	assert.Equal(t, []string{"ADMIN", "USER"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expiry(), 5*time.Second)
}

func TestGenerateToken_UniqueIDs(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	a, err := GenerateToken(Subject{UserID: "u"}, secret, time.Hour)
	require.NoError(t, err)
	b, err := GenerateToken(Subject{UserID: "u"}, secret, time.Hour)
	require.NoError(t, err)

	ca, err := ParseToken(a, secret)
	require.NoError(t, err)
	cb, err := ParseToken(b, secret)
	require.NoError(t, err)
	assert.NotEqual(t, ca.ID, cb.ID)
	assert.Equal(t, []string{}, ca.Roles)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(Subject{UserID: "u1"}, []byte("secret"), -1*time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("secret"))
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_Invalid(t *testing.T) {
	t.Parallel()

	good, err := GenerateToken(Subject{UserID: "u2"}, []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u4",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	otherAlg, err := hs512.SignedString([]byte("right-secret"))
	require.NoError(t, err)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u5"}})
	withoutExpiry, err := noExp.SignedString([]byte("right-secret"))
	require.NoError(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	withoutSubject, err := noSub.SignedString([]byte("right-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", good, "wrong-secret"},
		{"malformed", "not.a.jwt", "right-secret"},
		{"empty", "", "right-secret"},
		{"alg none", unsigned, "right-secret"},
		{"other algorithm", otherAlg, "right-secret"},
		{"no expiry", withoutExpiry, "right-secret"},
		{"no subject", withoutSubject, "right-secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, []byte(tt.secret))
			assert.ErrorIs(t, err, common.ErrInvalidToken)
		})
	}
}
