package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// Session cookie names, in lookup order.
const (
	CookieSecureAuthJS   = "__Secure-authjs.session-token"
	CookieAuthJS         = "authjs.session-token"
	CookieSecureNextAuth = "__Secure-next-auth.session-token"
	CookieNextAuth       = "next-auth.session-token"
)

// CookieNames lists every accepted session cookie name in the order they are tried.
var CookieNames = []string{
	CookieSecureAuthJS,
	CookieAuthJS,
	CookieSecureNextAuth,
	CookieNextAuth,
}

// SessionMaxAge is the lifetime of a freshly minted session.
const SessionMaxAge = 30 * 24 * time.Hour

const keyInfo = "analysis-beauty session"

var (
	ErrMissingSecret = errors.New("session secret not configured")
	ErrInvalidToken  = errors.New("invalid session token")
)

// Identity is the authenticated principal carried by a session token.
type Identity struct {
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SalonName string `json:"salonName,omitempty"`
}

type sessionClaims struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SalonName string `json:"salonName,omitempty"`
	jwt.RegisteredClaims
}

// CookieReader looks up a cookie value by name.
type CookieReader func(name string) (string, bool)

// Sessions mints and verifies session tokens. The signing key is derived per
// cookie name so a token is only valid under the name it was issued for.
type Sessions struct {
	secret []byte
	now    func() time.Time
}

// NewSessions returns a Sessions bound to secret. An empty secret yields a
// verifier that never authenticates.
func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(strings.TrimSpace(secret)), now: time.Now}
}

// Configured reports whether a secret is available.
func (s *Sessions) Configured() bool {
	return s != nil && len(s.secret) > 0
}

// Mint signs a session token for the given cookie name.
func (s *Sessions) Mint(cookieName string, id Identity) (string, error) {
	if !s.Configured() {
		return "", ErrMissingSecret
	}
	if id.UserID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrInvalidToken)
	}
	key, err := s.deriveKey(cookieName)
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	claims := sessionClaims{
		Name:      id.Name,
		Email:     id.Email,
		Role:      id.Role,
		SalonName: id.SalonName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionMaxAge)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// Decode verifies a single token against the key for cookieName.
func (s *Sessions) Decode(cookieName, token string) (Identity, error) {
	if !s.Configured() {
		return Identity{}, ErrMissingSecret
	}
	key, err := s.deriveKey(cookieName)
	if err != nil {
		return Identity{}, err
	}
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{
		UserID:    claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      claims.Role,
		SalonName: claims.SalonName,
	}, nil
}

// Verify tries each cookie name in order and returns the first identity that
// decodes with a non-empty subject.
func (s *Sessions) Verify(cookies CookieReader) (Identity, bool) {
	if !s.Configured() || cookies == nil {
		return Identity{}, false
	}
	for _, name := range CookieNames {
		value, ok := cookies(name)
		if !ok || value == "" {
			continue
		}
		id, err := s.Decode(name, value)
		if err != nil {
			continue
		}
		return id, true
	}
	return Identity{}, false
}

func (s *Sessions) deriveKey(cookieName string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, s.secret, []byte(cookieName), []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}
