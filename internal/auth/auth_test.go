package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookclurb/clurb-api/internal/models"
)

var grace = models.Identity{
	ID:            "u2",
	DisplayName:   "Grace Hopper",
	Email:         "grace@example.com",
	EmailVerified: true,
	PhotoURL:      "https://img/grace.png",
}

func TestJWTRoundTrip(t *testing.T) {
	v := NewJWTVerifier("test-secret", time.Hour)
	token, err := v.Issue(grace)
	require.NoError(t, err)

	identity, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, grace, identity)
}

func TestJWTRejects(t *testing.T) {
	v := NewJWTVerifier("test-secret", time.Hour)

	other, err := NewJWTVerifier("other-secret", time.Hour).Issue(grace)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTVerifier("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue(grace)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), stale)
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := v.Issue(models.Identity{Email: "nobody@example.com"})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u2", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTVerifier("test-secret", time.Hour).Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityFromClaims(t *testing.T) {
	identity := identityFromClaims("u2", map[string]interface{}{
		"name":           "Grace Hopper",
		"email":          "grace@example.com",
		"email_verified": true,
		"picture":        "https://img/grace.png",
	})
	assert.Equal(t, grace, identity)

	assert.Equal(t, models.Identity{ID: "u3"}, identityFromClaims("u3", map[string]interface{}{"email": 12}))
}
