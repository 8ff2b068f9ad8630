package keys

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/box"
)

// BoxKeySize is the length of an X25519 key in bytes.
const BoxKeySize = 32

// GenerateBoxKeypair returns a new X25519 keypair for sealed-box wrapping.
func GenerateBoxKeypair(rand io.Reader) (pub, priv *[BoxKeySize]byte, err error) {
	return box.GenerateKey(rand)
}

// BoxKeypairFromSeed derives the X25519 keypair determined by a 32-byte
// seed. The daemon uses this so its reveal keypair survives restarts.
func BoxKeypairFromSeed(seed []byte) (pub, priv *[BoxKeySize]byte, err error) {
	if len(seed) != BoxKeySize {
		return nil, nil, fmt.Errorf("box seed must be %d bytes, got %d", BoxKeySize, len(seed))
	}
	return box.GenerateKey(bytes.NewReader(seed))
}

// BoxKeyString encodes an X25519 public key as "x25519:" + base64.
func BoxKeyString(pub *[BoxKeySize]byte) string {
	return "x25519:" + base64.StdEncoding.EncodeToString(pub[:])
}

// ParseBoxKey decodes an "x25519:base64" public key string.
func ParseBoxKey(s string) (*[BoxKeySize]byte, error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok || alg != "x25519" {
		return nil, fmt.Errorf("invalid box key encoding")
	}
	b, err := DecodeBase64(enc)
	if err != nil {
		return nil, fmt.Errorf("invalid box key base64: %w", err)
	}
	if len(b) != BoxKeySize {
		return nil, fmt.Errorf("x25519 public key must be %d bytes, got %d", BoxKeySize, len(b))
	}
	var pub [BoxKeySize]byte
	copy(pub[:], b)
	return &pub, nil
}

// WrapToBoxKey seals plaintext to an X25519 public key with an anonymous
// sealed box. Only the holder of the matching private key can open it.
func WrapToBoxKey(plaintext []byte, recipient *[BoxKeySize]byte) ([]byte, error) {
	if recipient == nil {
		return nil, fmt.Errorf("missing recipient key")
	}
	return box.SealAnonymous(nil, plaintext, recipient, rand.Reader)
}

// UnwrapWithBoxKey opens an anonymous sealed box produced by WrapToBoxKey.
func UnwrapWithBoxKey(sealed []byte, pub, priv *[BoxKeySize]byte) ([]byte, error) {
	if pub == nil || priv == nil {
		return nil, fmt.Errorf("missing keypair")
	}
	plain, ok := box.OpenAnonymous(nil, sealed, pub, priv)
	if !ok {
		return nil, fmt.Errorf("sealed box authentication failed")
	}
	return plain, nil
}
