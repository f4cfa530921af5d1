// Package signature signs and verifies oracle messages with secp256k1 ECDSA.
//
// Keys travel as hex-encoded compressed points, signatures as hex-encoded DER.
// The signed digest is SHA-256 over the exact bytes of the message, so the wire
// format of a message and its signature are coupled.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"priceoracle/internal/apperr"
)

// PublicKey is a parsed verification key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// ParsePublicKey decodes a hex-encoded compressed or uncompressed public key.
func ParsePublicKey(s string) (*PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not hex: %v", apperr.ErrInvalidSignature, err)
	}
	key, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", apperr.ErrInvalidSignature, err)
	}
	return &PublicKey{key: key}, nil
}

// Hex returns the compressed encoding of the key.
func (p *PublicKey) Hex() string {
	return hex.EncodeToString(p.key.SerializeCompressed())
}

// Verify reports whether sig is a valid signature of message under p. A
// signature that cannot be decoded fails with apperr.ErrInvalidSignature
// before any verification is attempted.
func (p *PublicKey) Verify(message []byte, sig string) (bool, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return false, fmt.Errorf("%w: signature is not hex: %v", apperr.ErrInvalidSignature, err)
	}
	parsed, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrInvalidSignature, err)
	}
	digest := sha256.Sum256(message)
	return parsed.Verify(digest[:], p.key), nil
}

// Verify checks sig over message against a hex-encoded public key.
func Verify(message []byte, sig, publicKey string) (bool, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false, err
	}
	return pub.Verify(message, sig)
}

// PrivateKey signs messages on the publisher side.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a fresh random key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// ParsePrivateKey decodes a 32-byte hex scalar.
func ParsePrivateKey(s string) (*PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	if len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(raw))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(raw)}, nil
}

// Hex returns the hex-encoded scalar.
func (k *PrivateKey) Hex() string {
	return hex.EncodeToString(k.key.Serialize())
}

// Public returns the matching verification key.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// Sign returns the hex DER signature of message. Signing is deterministic (RFC 6979).
func (k *PrivateKey) Sign(message []byte) string {
	digest := sha256.Sum256(message)
	return hex.EncodeToString(ecdsa.Sign(k.key, digest[:]).Serialize())
}
