package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. No expiry is issued; an exp claim on an
// incoming token is still honored.
type Claims struct {
	UserID string `json:"userid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with a single algorithm.
type Codec struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

func NewCodec(alg, secret string) (*Codec, error) {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		if secret == "" {
			return nil, errors.New("empty token secret")
		}
		key := []byte(secret)
		return &Codec{method: jwt.SigningMethodHS256, signKey: key, verifyKey: key, now: time.Now}, nil
	case "ES256K":
		priv, err := deriveSecp256k1Key(secret)
		if err != nil {
			return nil, err
		}
		return &Codec{method: SigningMethodES256K, signKey: priv, verifyKey: priv.PubKey(), now: time.Now}, nil
	default:
		return nil, fmt.Errorf("unsupported token alg: %s", alg)
	}
}

func (c *Codec) Alg() string { return c.method.Alg() }

func (c *Codec) Sign(userID string) (string, error) {
	claims := Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(c.now())},
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
}

// Verify returns the user id carried by token. Every failure wraps
// ErrInvalidToken.
func (c *Codec) Verify(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.verifyKey, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
