package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BEARER TOKENS
// ══════════════════════════════════════════════════════════════════════════════

// Claims is the payload of an API token. Subject carries the user id.
type Claims struct {
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	StudentID *int64 `json:"student_id,omitempty"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. A non-positive ttl means 24 hours.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for id.
func (s *TokenService) Issue(id shared.Identity) (string, time.Time, error) {
	if id.UserID <= 0 {
		return "", time.Time{}, errors.New("failed to issue token: user id is required")
	}
	if _, ok := shared.ParseRole(string(id.Role)); !ok {
		return "", time.Time{}, errors.New("failed to issue token: unknown role " + strconv.Quote(string(id.Role)))
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Role:      string(id.Role),
		Name:      id.Name,
		StudentID: id.StudentID,
		TeacherID: id.TeacherID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies raw and resolves the caller.
func (s *TokenService) Parse(raw string) (shared.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return shared.Identity{}, unauthorized("Invalid or expired token", err)
	}
	if err := s.validate(&claims); err != nil {
		return shared.Identity{}, unauthorized("Invalid or expired token", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return shared.Identity{}, unauthorized("Invalid token subject", err)
	}
	role, ok := shared.ParseRole(claims.Role)
	if !ok {
		return shared.Identity{}, unauthorized("Invalid token role", nil)
	}
	return shared.Identity{
		UserID:    userID,
		Role:      role,
		Name:      claims.Name,
		StudentID: claims.StudentID,
		TeacherID: claims.TeacherID,
	}, nil
}

// validate checks the time and issuer claims against the service clock.
func (s *TokenService) validate(c *Claims) error {
	now := s.now()
	switch {
	case !c.VerifyExpiresAt(now, true):
		return errors.New("token is expired")
	case !c.VerifyNotBefore(now, false):
		return errors.New("token is not valid yet")
	case !c.VerifyIssuer(s.issuer, true):
		return errors.New("token issuer mismatch")
	}
	return nil
}

func unauthorized(msg string, err error) error {
	return shared.WrapError("auth", "Authenticate", shared.ErrUnauthorized, msg, err)
}
