package auth

import (
	"crypto/sha256"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/sha3"
)

// SigningMethodES256K is ECDSA over secp256k1 with SHA-256, as registered
// in RFC 8812. The signature is the 64-byte R || S concatenation.
var SigningMethodES256K = &signingMethodES256K{}

func init() {
	jwt.RegisterSigningMethod(SigningMethodES256K.Alg(), func() jwt.SigningMethod {
		return SigningMethodES256K
	})
}

type signingMethodES256K struct{}

func (m *signingMethodES256K) Alg() string { return "ES256K" }

func (m *signingMethodES256K) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*secp256k1.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	hash := sha256.Sum256([]byte(signingString))
	compact := ecdsa.SignCompact(priv, hash[:], false)
	// Drop the recovery header byte.
	return compact[1:], nil
}

func (m *signingMethodES256K) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(*secp256k1.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != 64 {
		return jwt.ErrSignatureInvalid
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return jwt.ErrSignatureInvalid
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow || s.IsZero() {
		return jwt.ErrSignatureInvalid
	}
	hash := sha256.Sum256([]byte(signingString))
	if !ecdsa.NewSignature(&r, &s).Verify(hash[:], pub) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// deriveSecp256k1Key turns the server secret into a signing key so ES256K
// needs no extra key material in the environment.
func deriveSecp256k1Key(secret string) (*secp256k1.PrivateKey, error) {
	if secret == "" {
		return nil, errors.New("empty token secret")
	}
	seed := sha3.Sum256([]byte(secret))
	priv := secp256k1.PrivKeyFromBytes(seed[:])
	if priv.Key.IsZero() {
		return nil, errors.New("token secret derives an invalid key")
	}
	return priv, nil
}
