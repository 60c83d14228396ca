package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
)

func TestBcryptPasswordHasher(t *testing.T) {
	h := NewBcryptPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("abc123")
	require.NoError(t, err)
	assert.NoError(t, h.Verify("abc123", hash))
	assert.Error(t, h.Verify("abc124", hash))
	assert.Error(t, h.Verify("abc123", "not-a-hash"))

	assert.False(t, h.NeedsRehash(hash))
	assert.True(t, NewBcryptPasswordHasher(bcrypt.MinCost+1).NeedsRehash(hash))
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordHasher(99).cost)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewSessionTokenService("secret", 30*time.Minute)
	actor := user.Actor{UserID: 7, Username: "eng", Role: uvo.RoleEngineer}

	token, exp, err := svc.Issue(actor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), exp, 5*time.Second)

	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestSessionTokenExpired(t *testing.T) {
	svc := NewSessionTokenService("secret", 30*time.Minute)
	issuedAt := time.Now().UTC()
	svc.now = func() time.Time { return issuedAt }

	token, _, err := svc.Issue(user.Actor{UserID: 1, Username: "op", Role: uvo.RoleOperator})
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(31 * time.Minute) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, user.ErrSessionExpired)
}

func TestSessionTokenInvalid(t *testing.T) {
	svc := NewSessionTokenService("secret", time.Minute)
	other := NewSessionTokenService("other", time.Minute)

	token, _, err := other.Issue(user.Actor{UserID: 1, Username: "op", Role: uvo.RoleOperator})
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, user.ErrSessionInvalid)

	_, err = svc.Verify("garbage")
	assert.ErrorIs(t, err, user.ErrSessionInvalid)
}
