// Package auth issues and verifies session tokens and API keys, hashes
// passwords and tracks revoked tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes interactive sessions from long-lived API keys
type TokenKind string

const (
	KindSession TokenKind = "session"
	KindAPIKey  TokenKind = "api_key"
)

// authenticatedRole is the database-facing role every valid token carries
const authenticatedRole = "authenticated"

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims defines the custom claims for the JWT
type Claims struct {
	Role     string      `json:"role"`
	UserRole models.Role `json:"user_role"`
	Kind     TokenKind   `json:"kind"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenIssuer signs and parses HS256 tokens
type TokenIssuer struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	apiKeyTTL  time.Duration
	now        func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret, issuer string, sessionTTL, apiKeyTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		apiKeyTTL:  apiKeyTTL,
		now:        time.Now,
	}
}

// IssueSession creates a session token for a signed-in user
func (ti *TokenIssuer) IssueSession(userID string, role models.Role) (string, *Claims, error) {
	return ti.issue(userID, role, KindSession, ti.sessionTTL)
}

// IssueAPIKey creates a long-lived API key. Its ID (jti) must be recorded on
// the profile for the key to be accepted.
func (ti *TokenIssuer) IssueAPIKey(userID string, role models.Role) (string, *Claims, error) {
	return ti.issue(userID, role, KindAPIKey, ti.apiKeyTTL)
}

func (ti *TokenIssuer) issue(userID string, role models.Role, kind TokenKind, ttl time.Duration) (string, *Claims, error) {
	now := ti.now()
	claims := &Claims{
		Role:     authenticatedRole,
		UserRole: role,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse validates a token string and returns its claims
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Kind != KindSession && claims.Kind != KindAPIKey {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
