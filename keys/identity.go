package keys

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IdentitySize is the length of a ledger identity in bytes.
const IdentitySize = 20

// Identity is the 20-byte ledger identity of a signing key. It is derived,
// not chosen: the reveal service recomputes it from the caller's public key,
// so a statement cannot claim a foreign identity.
type Identity [IdentitySize]byte

var ZeroIdentity Identity

// IdentityFromPublicKey derives the identity for a raw public key: the
// trailing 20 bytes of SHA3-256 over the key bytes.
func IdentityFromPublicKey(pub []byte) Identity {
	sum := sha3.Sum256(pub)
	var id Identity
	copy(id[:], sum[len(sum)-IdentitySize:])
	return id
}

// IdentityFromSignerKey derives the identity for an "alg:base64" signer key.
func IdentityFromSignerKey(signerKey string) (Identity, error) {
	_, pub, err := ParseSignerKey(signerKey)
	if err != nil {
		return ZeroIdentity, err
	}
	return IdentityFromPublicKey(pub), nil
}

// String renders the identity as 0x-prefixed lowercase hex.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id Identity) IsZero() bool {
	return id == ZeroIdentity
}

// ParseIdentity parses a 0x-prefixed or bare 40-digit hex identity.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return ZeroIdentity, fmt.Errorf("invalid identity hex: %w", err)
	}
	if len(b) != IdentitySize {
		return ZeroIdentity, fmt.Errorf("identity must be %d bytes, got %d", IdentitySize, len(b))
	}
	var id Identity
	copy(id[:], b)
	return id, nil
}
