// Package auth provides password hashing, signed session tokens and the
// session middleware for the FoodShare API.
//
// SESSION FLOW OVERVIEW:
//  1. POST /api/login checks the password and creates a row in the sessions table
//  2. The server signs a token naming that session and the user, and sets it
//     as the HttpOnly "sid" cookie (7 days)
//  3. On every request LoadSession verifies the signature, checks the session
//     row still exists, and re-reads the user so role or verification changes
//     apply immediately
//  4. POST /api/logout deletes the session row; the cookie is then useless
//     even if a copy survives somewhere
//
// WHY A SIGNED TOKEN *AND* A SESSIONS TABLE?
// The signature lets us reject forged or tampered cookies without touching
// the database. The table gives logout real teeth: a JWT alone cannot be
// revoked before it expires.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"jti":"<session id>","sub":"<user id>","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "foodshare"

// ErrInvalidSession covers every reason a session token is rejected:
// malformed, tampered, wrong issuer, or expired.
var ErrInvalidSession = errors.New("auth: invalid session token")

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations. Keep it safe, rotate it
// periodically in production (rotating logs everybody out).
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// SessionClaims is what a verified token tells us.
type SessionClaims struct {
	SessionID string
	UserID    int64
	ExpiresAt time.Time
}

// Generate signs a token for the given session, valid for ttl.
//
// "jti" (JWT ID) carries the session id and "sub" the user id. Both are
// checked again against the sessions table on every request.
func (s *TokenService) Generate(sessionID string, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens from other apps signed with the same key)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Every failure wraps ErrInvalidSession.
func (s *TokenService) Validate(tokenStr string) (*SessionClaims, error) {
	c := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidSession)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}

	if c.ID == "" {
		return nil, fmt.Errorf("%w: token has no session id", ErrInvalidSession)
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrInvalidSession)
	}

	return &SessionClaims{
		SessionID: c.ID,
		UserID:    userID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
