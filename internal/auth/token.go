package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tasklane.org/internal/ids"
)

const (
	// DefaultIssuer is the iss claim written into identity tokens.
	DefaultIssuer = "tasklane"
	// MinSecretBytes is the shortest HMAC secret NewTokenCodec accepts.
	MinSecretBytes = 32
)

type tokenClaims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 identity tokens.
type TokenCodec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TokenOption customises a TokenCodec.
type TokenOption func(*TokenCodec) error

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) TokenOption {
	return func(c *TokenCodec) error {
		issuer = strings.TrimSpace(issuer)
		if issuer == "" {
			return errors.New("issuer must not be empty")
		}
		c.issuer = issuer
		return nil
	}
}

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		c.now = now
		return nil
	}
}

// NewTokenCodec builds a codec around a shared secret of at least
// MinSecretBytes bytes.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("%w: token secret must be at least %d bytes", ErrInvalidInput, MinSecretBytes)
	}
	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		issuer: DefaultIssuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Encode signs a token for identity that expires ttl from now.
func (c *TokenCodec) Encode(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if !identity.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: identity is incomplete", ErrInvalidInput)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("%w: ttl must be positive", ErrInvalidInput)
	}
	now := c.now().UTC()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))
	claims := tokenClaims{
		AccountID: identity.AccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Decode verifies the signature first and only then the claims. Any
// integrity failure maps to ErrTokenInvalidSignature; a well-signed token
// past its expiry maps to ErrTokenExpired.
func (c *TokenCodec) Decode(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrTokenInvalidSignature
	}
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Identity{}, classifyTokenError(err)
	}
	identity := Identity{AccountID: claims.AccountID, Username: claims.Subject}
	if !identity.Valid() {
		return Identity{}, ErrTokenInvalidSignature
	}
	return identity, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalidSignature
	}
}
