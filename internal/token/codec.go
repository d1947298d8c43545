package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatherly/auth-service/internal/apperrors"
	"github.com/gatherly/auth-service/internal/models"
)

// Payload carried inside every issued token
type Payload struct {
	UserID  string
	TokenID string
	Type    models.TokenType

	// For refresh tokens: token id of the paired access token
	LinkedTokenID string
}

type claims struct {
	jwt.RegisteredClaims
	UserID        string           `json:"uid"`
	TokenType     models.TokenType `json:"token_type"`
	LinkedTokenID string           `json:"linked_token_id,omitempty"`
}

func (c *claims) payload() Payload {
	return Payload{
		UserID:        c.UserID,
		TokenID:       c.ID,
		Type:          c.TokenType,
		LinkedTokenID: c.LinkedTokenID,
	}
}

// Codec creates and verifies RS256 signed tokens.
// The key pair is loaded once at construction and never rotated in a
// running process. A codec built with NewVerifier holds only the public
// key and can decode but not create tokens, so that sibling services may
// validate tokens without access to the private key.
type Codec struct {
	private   *rsa.PrivateKey
	public    *rsa.PublicKey
	publicPEM string
}

// New creates a codec from PEM encoded private and public RSA keys
func New(privatePEM string, publicPEM string) (*Codec, error) {
	if privatePEM == "" {
		return nil, errors.New("private key must not be empty")
	}

	private, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privatePEM))
	if err != nil {
		return nil, fmt.Errorf("error while parsing private key. Err: %w", err)
	}

	codec, err := NewVerifier(publicPEM)
	if err != nil {
		return nil, err
	}

	codec.private = private
	return codec, nil
}

// NewVerifier creates a decode-only codec from a PEM encoded public key
func NewVerifier(publicPEM string) (*Codec, error) {
	if publicPEM == "" {
		return nil, errors.New("public key must not be empty")
	}

	public, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicPEM))
	if err != nil {
		return nil, fmt.Errorf("error while parsing public key. Err: %w", err)
	}

	return &Codec{public: public, publicPEM: publicPEM}, nil
}

// Create signs the payload with a fresh token id and the given lifetime.
// A ttl <= 0 produces an already expired token, which Decode rejects but
// DecodeUnverified still reads; the refresh flow relies on that.
func (c *Codec) Create(p Payload, ttl time.Duration) (tokenID string, token string, err error) {
	if c.private == nil {
		return "", "", errors.New("codec is verify-only, no private key loaded")
	}

	tokenID = uuid.NewString()
	now := time.Now().Truncate(time.Second)

	signed, err := jwt.NewWithClaims(
		jwt.SigningMethodRS256,
		claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        tokenID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			},
			UserID:        p.UserID,
			TokenType:     p.Type,
			LinkedTokenID: p.LinkedTokenID,
		},
	).SignedString(c.private)
	if err != nil {
		return "", "", fmt.Errorf("error while signing token. Err: %w", err)
	}

	return tokenID, signed, nil
}

// Decode verifies signature and expiry and returns the payload
func (c *Codec) Decode(token string) (Payload, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(
		token,
		cl,
		func(t *jwt.Token) (any, error) { return c.public, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return cl.payload(), nil
}

// DecodeUnverified parses the payload ignoring signature and expiry.
// Used only to read identity off an expired access token during the
// refresh handshake, never for authorization decisions.
func (c *Codec) DecodeUnverified(token string) (Payload, error) {
	cl := &claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	_, _, err := parser.ParseUnverified(token, cl)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return cl.payload(), nil
}

// PublicKey returns the PEM encoded verification key
func (c *Codec) PublicKey() string {
	return c.publicPEM
}
