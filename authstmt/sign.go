package authstmt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/ipfs/go-cid"

	"xdao.co/keygate/keys"
)

// Params describe one decryption request to be bound into a statement.
type Params struct {
	// Resource is the ledger/resource identity the handles belong to.
	Resource string
	// Handles are the ciphertext handles (CIDv1 strings) being requested.
	Handles []string
	// EphemeralKey is the one-time response key, "x25519:" + base64.
	EphemeralKey string
	// IssuedAt stamps the statement. Zero means time.Now.
	IssuedAt time.Time
	// Window bounds validity. Zero means DefaultValidityWindow.
	Window time.Duration
	// HashAlg selects the digest: sha256 (default), sha512, sha3-256.
	HashAlg string
}

func (p Params) compose(callerKey, sigAlg string) (Document, error) {
	if p.Resource == "" {
		return Document{}, errors.New("missing resource identity")
	}
	if len(p.Handles) == 0 {
		return Document{}, errors.New("at least one handle required")
	}
	for _, h := range p.Handles {
		id, err := cid.Decode(h)
		if err != nil || !id.Defined() {
			return Document{}, fmt.Errorf("malformed handle %q", h)
		}
	}
	if p.EphemeralKey == "" {
		return Document{}, errors.New("missing ephemeral key")
	}

	issuedAt := p.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	window := p.Window
	if window <= 0 {
		window = DefaultValidityWindow
	}
	hashAlg := p.HashAlg
	if hashAlg == "" {
		hashAlg = "sha256"
	}

	identity := keys.ZeroIdentity
	if callerKey != "" {
		var err error
		identity, err = keys.IdentityFromSignerKey(callerKey)
		if err != nil {
			return Document{}, err
		}
	}

	handles := p.Handles[0]
	for _, h := range p.Handles[1:] {
		handles += " " + h
	}

	return Document{
		Statement: map[string]string{
			"Domain":    Domain,
			"Issued-At": issuedAt.UTC().Format(time.RFC3339),
			"Not-After": issuedAt.Add(window).UTC().Format(time.RFC3339),
		},
		Scope: map[string]string{
			"Caller":        identity.String(),
			"Ephemeral-Key": p.EphemeralKey,
			"Handles":       handles,
			"Resource":      p.Resource,
		},
		Crypto: map[string]string{
			"Caller-Key":    callerKey,
			"Hash-Alg":      hashAlg,
			"Signature-Alg": sigAlg,
		},
	}, nil
}

// BuildSignedEd25519 renders and signs a statement with the caller's
// persistent Ed25519 key. The returned bytes are canonical and verify
// under the embedded Caller-Key.
func BuildSignedEd25519(p Params, priv ed25519.PrivateKey) ([]byte, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key")
	}
	callerKey, err := keys.SignerKeyFromPublicKey(pub)
	if err != nil {
		return nil, err
	}
	doc, err := p.compose(callerKey, "ed25519")
	if err != nil {
		return nil, err
	}
	return signDocument(doc, func(signedScope []byte) (string, error) {
		return keys.SignEd25519(signedScope, doc.Crypto["Hash-Alg"], priv)
	})
}

// BuildSignedDilithium3 renders and signs a statement with a Dilithium3 key.
func BuildSignedDilithium3(p Params, pub *mode3.PublicKey, priv *mode3.PrivateKey) ([]byte, error) {
	callerKey, err := keys.SignerKeyFromDilithium3(pub)
	if err != nil {
		return nil, err
	}
	doc, err := p.compose(callerKey, "dilithium3")
	if err != nil {
		return nil, err
	}
	return signDocument(doc, func(signedScope []byte) (string, error) {
		return keys.SignDilithium3(signedScope, doc.Crypto["Hash-Alg"], priv)
	})
}

func signDocument(doc Document, sign func(signedScope []byte) (string, error)) ([]byte, error) {
	// The signature covers BEGIN through end of SCOPE, so rendering without
	// the Signature pair yields the same signed scope as the final bytes.
	unsigned, err := Render(doc)
	if err != nil {
		return nil, err
	}
	signedScope, err := scopeFromCanonical(unsigned)
	if err != nil {
		return nil, err
	}
	sig, err := sign(signedScope)
	if err != nil {
		return nil, err
	}
	doc.Crypto["Signature"] = sig
	return Render(doc)
}

func scopeFromCanonical(canonical []byte) ([]byte, error) {
	marker := []byte("\nCRYPTO\n")
	idx := bytes.Index(canonical, marker)
	if idx < 0 {
		return nil, errors.New("cannot determine signature scope")
	}
	return canonical[:idx+1], nil
}

// Verify checks the statement signature and structural bindings: the domain
// tag, the signed Caller field matching the identity derived from
// Caller-Key, and well-formed handles.
func (s *Statement) Verify() error {
	if s == nil {
		return errors.New("nil statement")
	}
	// Re-parse the receiver bytes so canonicalization cannot be bypassed via
	// a manually-constructed Statement or mutated fields.
	parsed, err := Parse(s.Raw)
	if err != nil {
		return err
	}
	s = parsed

	if s.Domain() != Domain {
		return fmt.Errorf("wrong statement domain %q", s.Domain())
	}
	callerKey := s.CallerKey()
	if callerKey == "" {
		return errors.New("missing Caller-Key")
	}
	claimed, err := s.CallerIdentity()
	if err != nil {
		return err
	}
	derived, err := keys.IdentityFromSignerKey(callerKey)
	if err != nil {
		return err
	}
	if claimed != derived {
		return errors.New("caller identity does not match Caller-Key")
	}
	alg, _, err := keys.ParseSignerKey(callerKey)
	if err != nil {
		return err
	}
	if alg != s.SignatureAlg() {
		return errors.New("Caller-Key alg does not match Signature-Alg")
	}
	for _, h := range s.Handles() {
		id, err := cid.Decode(h)
		if err != nil || !id.Defined() {
			return fmt.Errorf("malformed handle %q", h)
		}
	}
	sig := s.Signature()
	if sig == "" {
		return errors.New("missing Signature")
	}
	if s.HashAlg() == "" {
		return errors.New("missing Hash-Alg")
	}
	return keys.VerifySignature(callerKey, s.HashAlg(), s.Signed, sig)
}

// VerifyAt runs Verify and additionally enforces the validity window
// against the given clock reading.
func (s *Statement) VerifyAt(now time.Time) error {
	if err := s.Verify(); err != nil {
		return err
	}
	issuedAt, err := time.Parse(time.RFC3339, s.IssuedAt())
	if err != nil {
		return fmt.Errorf("invalid Issued-At: %w", err)
	}
	notAfter, err := time.Parse(time.RFC3339, s.NotAfter())
	if err != nil {
		return fmt.Errorf("invalid Not-After: %w", err)
	}
	if !notAfter.After(issuedAt) {
		return errors.New("Not-After must be after Issued-At")
	}
	if now.Before(issuedAt) {
		return errors.New("statement not yet valid")
	}
	if !now.Before(notAfter) {
		return errors.New("statement validity window lapsed")
	}
	return nil
}
