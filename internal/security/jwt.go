package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the access-token payload. The subject carries the user id; login
// id and auth provider ride along so request handling never needs a user
// lookup just to know who is calling.
type Claims struct {
	LoginID      string `json:"login_id"`
	AuthProvider string `json:"auth_provider"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the numeric user id.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token subject: %w", err)
	}
	return uint(id), nil
}

// JWTManager mints and verifies HS256 access tokens. It is a pure function
// of its inputs plus the configured secret; the only ambient input, the
// clock, is injectable for expiry tests.
type JWTManager struct {
	issuer string
	secret []byte
	now    func() time.Time
}

func NewJWTManager(issuer, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the manager that reads time from now.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	return &JWTManager{issuer: m.issuer, secret: m.secret, now: now}
}

// MintAccessToken signs a token for the given user with iat = now and
// exp = now + ttl.
func (m *JWTManager) MintAccessToken(userID uint, loginID, authProvider string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		LoginID:      loginID,
		AuthProvider: authProvider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyAccessToken checks signature and expiry and returns the embedded
// claims. Any failure (malformed token, bad signature, expired) comes back as
// an error; callers map it to anonymous handling or 401, never retry.
func (m *JWTManager) VerifyAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
