package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bestflix/backend/internal/apperr"
)

// DefaultTokenTTL is the lifetime of issued access tokens when none is configured.
const DefaultTokenTTL = time.Hour

// Codec issues and validates HS256-signed access tokens whose subject is a username.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec constructs a Codec signing with secret. A non-positive ttl selects DefaultTokenTTL.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	if len(secret) == 0 {
		panic("auth: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// TTL reports the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject expiring TTL from now.
func (c *Codec) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must be provided")
	}

	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and structure of token and returns its subject.
// Expiry is not evaluated here; use CheckMatchesAndFresh for that.
func (c *Codec) Verify(token string) (string, error) {
	claims, err := c.parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// CheckMatchesAndFresh verifies token and confirms it belongs to expected and has not expired.
func (c *Codec) CheckMatchesAndFresh(token, expected string) error {
	claims, err := c.parse(token)
	if err != nil {
		return err
	}
	if claims.Subject != expected {
		return apperr.ErrSubjectMismatch
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(c.now()) {
		return apperr.ErrTokenExpired
	}
	return nil
}

func (c *Codec) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, apperr.ErrMalformedToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return nil, apperr.ErrMalformedToken.WithCause(err)
	}
	if claims.Subject == "" {
		return nil, apperr.ErrMalformedToken
	}
	return claims, nil
}
