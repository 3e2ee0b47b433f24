package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

func fixedTokens(at time.Time) *TokenService {
	s := NewTokenService("secret", "attendance-hub", time.Hour)
	s.now = func() time.Time { return at }
	return s
}

func TestTokenService_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	s := fixedTokens(at)
	sid := int64(42)

	raw, exp, err := s.Issue(shared.Identity{UserID: 100, Role: shared.RoleStudent, Name: "Budi", StudentID: &sid})
	require.NoError(t, err)
	assert.Equal(t, at.Add(time.Hour), exp)

	id, err := s.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(100), id.UserID)
	assert.Equal(t, shared.RoleStudent, id.Role)
	assert.Equal(t, "Budi", id.Name)
	require.NotNil(t, id.StudentID)
	assert.Equal(t, sid, *id.StudentID)
	assert.Nil(t, id.TeacherID)
}

func TestTokenService_IssueRejectsIncompleteIdentity(t *testing.T) {
	s := NewTokenService("secret", "attendance-hub", 0)

	_, _, err := s.Issue(shared.Identity{Role: shared.RoleTeacher})
	assert.Error(t, err)

	_, _, err = s.Issue(shared.Identity{UserID: 1, Role: "janitor"})
	assert.Error(t, err)
}

func TestTokenService_ParseFailures(t *testing.T) {
	at := time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC)
	s := fixedTokens(at)
	raw, _, err := s.Issue(shared.Identity{UserID: 1, Role: shared.RoleAdministrator})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := fixedTokens(at.Add(2 * time.Hour))
		_, err := later.Parse(raw)
		assert.True(t, shared.IsUnauthorized(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenService("secret", "someone-else", time.Hour)
		other.now = s.now
		_, err := other.Parse(raw)
		assert.True(t, shared.IsUnauthorized(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("another", "attendance-hub", time.Hour)
		other.now = s.now
		_, err := other.Parse(raw)
		assert.True(t, shared.IsUnauthorized(err))
	})

	t.Run("unsigned", func(t *testing.T) {
		claims := Claims{Role: "administrator", RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "attendance-hub",
			ExpiresAt: jwt.NewNumericDate(at.Add(time.Hour)),
		}}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.Parse(none)
		assert.True(t, shared.IsUnauthorized(err))
	})

	t.Run("bad subject", func(t *testing.T) {
		claims := Claims{Role: "teacher", RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "abc",
			Issuer:    "attendance-hub",
			ExpiresAt: jwt.NewNumericDate(at.Add(time.Hour)),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = s.Parse(signed)
		assert.True(t, shared.IsUnauthorized(err))
	})
}
