// Package auth mints and verifies the signed tokens that back a session.
// Access and refresh tokens are HS256 JWTs signed with separate keys, so a
// token of one purpose never verifies as the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tells which key and lifetime a token uses.
type Purpose string

const (
	PurposeAccess  Purpose = "access"
	PurposeRefresh Purpose = "refresh"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Claims carries the subject ID, role and token purpose next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string  `json:"userId"`
	Role    string  `json:"role,omitempty"`
	Purpose Purpose `json:"pur"`
}

// Keys are the two HMAC secrets. They must be non-empty and different.
type Keys struct {
	Access  []byte
	Refresh []byte
}

type Option func(*Codec)

// WithTTL overrides token lifetimes. Non-positive values keep the defaults.
func WithTTL(access, refresh time.Duration) Option {
	return func(c *Codec) {
		if access > 0 {
			c.accessTTL = access
		}
		if refresh > 0 {
			c.refreshTTL = refresh
		}
	}
}

// WithClock replaces time.Now for both minting and verification.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewCodec(keys Keys, opts ...Option) (*Codec, error) {
	if len(keys.Access) == 0 || len(keys.Refresh) == 0 {
		return nil, errors.New("access and refresh signing keys are required")
	}
	if string(keys.Access) == string(keys.Refresh) {
		return nil, errors.New("access and refresh signing keys must differ")
	}
	c := &Codec{
		accessKey:  append([]byte(nil), keys.Access...),
		refreshKey: append([]byte(nil), keys.Refresh...),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime of tokens of purpose p.
func (c *Codec) TTL(p Purpose) time.Duration {
	if p == PurposeRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

func (c *Codec) key(p Purpose) ([]byte, error) {
	switch p {
	case PurposeAccess:
		return c.accessKey, nil
	case PurposeRefresh:
		return c.refreshKey, nil
	default:
		return nil, fmt.Errorf("unknown token purpose %q", p)
	}
}

// Mint signs a token for userID. Every token carries a random jti, so two
// tokens minted for the same user in the same second still differ.
func (c *Codec) Mint(userID, role string, p Purpose) (string, error) {
	key, err := c.key(p)
	if err != nil {
		return "", err
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(p))),
		},
		UserID:  userID,
		Role:    role,
		Purpose: p,
	})

	tokenString, err := token.SignedString(key)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// Verify checks signature, purpose and expiry.
//
// It returns common.ErrTokenExpired or common.ErrTokenInvalidSignature. On
// ErrTokenExpired the claims are returned as well, since their signature
// was good.
func (c *Codec) Verify(tokenString string, p Purpose) (*Claims, error) {
	key, err := c.key(p)
	if err != nil {
		return nil, err
	}
	if tokenString == "" {
		return nil, common.ErrTokenMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.Purpose == p && claims.UserID != "" {
			return claims, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalidSignature
	}

	if !token.Valid || claims.Purpose != p || claims.UserID == "" {
		return nil, common.ErrTokenInvalidSignature
	}

	return claims, nil
}
