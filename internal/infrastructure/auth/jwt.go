package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kreltrack/internal/domain/user"
	uvo "kreltrack/internal/domain/user/valueobjects"
	"kreltrack/internal/shared/biztime"
)

const issuer = "kreltrack"

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionTokenService signs and checks the HS256 tokens that carry a
// logged-in identity between commands.
type SessionTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokenService(secret string, ttl time.Duration) *SessionTokenService {
	return &SessionTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    biztime.NowUTC,
	}
}

// Issue returns a token for actor and its expiry.
func (s *SessionTokenService) Issue(actor user.Actor) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := &Claims{
		Username: actor.Username,
		Role:     actor.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(actor.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, exp, nil
}

// Verify returns the identity carried by token. Expired tokens yield
// user.ErrSessionExpired; any other failure wraps user.ErrSessionInvalid.
func (s *SessionTokenService) Verify(token string) (user.Actor, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return user.Actor{}, user.ErrSessionExpired
		}
		return user.Actor{}, fmt.Errorf("%w: %v", user.ErrSessionInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return user.Actor{}, user.ErrSessionInvalid
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return user.Actor{}, fmt.Errorf("%w: bad subject", user.ErrSessionInvalid)
	}
	role, err := uvo.NewRole(claims.Role)
	if err != nil {
		return user.Actor{}, fmt.Errorf("%w: %v", user.ErrSessionInvalid, err)
	}
	return user.Actor{UserID: uint(id), Username: claims.Username, Role: role}, nil
}

func (s *SessionTokenService) TTL() time.Duration {
	return s.ttl
}
