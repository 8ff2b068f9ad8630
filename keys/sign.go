package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// DigestFor hashes message with one of the supported hash algorithms:
// sha256, sha512, sha3-256.
func DigestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// SignerKeyFromPublicKey encodes an Ed25519 public key into a signer-key string.
func SignerKeyFromPublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub), nil
}

// SignerKeyFromSeed returns the signer-key string for an Ed25519 seed.
//
// Format: "ed25519:" + base64(pubkey).
func SignerKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

// SignerKeyFromDilithium3 encodes a Dilithium3 public key into a signer-key string.
func SignerKeyFromDilithium3(pub *mode3.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("missing public key")
	}
	b, err := pub.MarshalBinary()
	if err != nil {
		return "", err
	}
	return "dilithium3:" + base64.StdEncoding.EncodeToString(b), nil
}

// ParseSignerKey splits an "alg:base64" signer key and returns the algorithm
// and raw public key bytes. Supported algorithms: ed25519, dilithium3.
func ParseSignerKey(signerKey string) (alg string, pub []byte, err error) {
	alg, enc, ok := strings.Cut(signerKey, ":")
	if !ok {
		return "", nil, fmt.Errorf("invalid signer key encoding")
	}
	pub, err = DecodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("invalid signer key base64: %w", err)
	}
	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, fmt.Errorf("invalid ed25519 public key length")
		}
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return "", nil, fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
	default:
		return "", nil, fmt.Errorf("unsupported signer key algorithm: %q", alg)
	}
	return alg, pub, nil
}

// SignEd25519 returns a base64 ed25519 signature over hash(message).
// hashAlg must be one of: sha256, sha512, sha3-256.
func SignEd25519(message []byte, hashAlg string, privateKey ed25519.PrivateKey) (string, error) {
	digest, err := DigestFor(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(privateKey, digest)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// SignDilithium3 returns a base64 dilithium3 signature over hash(message).
// hashAlg must be one of: sha256, sha512, sha3-256.
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := DigestFor(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// VerifySignature verifies a base64 signature produced by SignEd25519 or
// SignDilithium3 against the public key carried in signerKey. The signer-key
// algorithm selects the scheme.
func VerifySignature(signerKey, hashAlg string, message []byte, sigB64 string) error {
	alg, pub, err := ParseSignerKey(signerKey)
	if err != nil {
		return err
	}
	sig, err := DecodeBase64(sigB64)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	digest, err := DigestFor(hashAlg, message)
	if err != nil {
		return err
	}
	switch alg {
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return fmt.Errorf("signature invalid")
		}
		return nil
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return fmt.Errorf("invalid dilithium3 signature length")
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return fmt.Errorf("signature invalid")
		}
		return nil
	default:
		return fmt.Errorf("unsupported signer key algorithm: %q", alg)
	}
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// DecodeBase64 prefers standard padded encoding but accepts raw encoding too.
func DecodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
