package keys

import (
	"crypto/ed25519"
	"strings"
	"testing"
)

func testSeed(fill byte) []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	return seed
}

func TestIdentityFromSignerKey_Deterministic(t *testing.T) {
	signerKey := SignerKeyFromSeed(testSeed(0x11))
	id1, err := IdentityFromSignerKey(signerKey)
	if err != nil {
		t.Fatalf("IdentityFromSignerKey: %v", err)
	}
	id2, err := IdentityFromSignerKey(signerKey)
	if err != nil {
		t.Fatalf("IdentityFromSignerKey: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("identity not deterministic: %s vs %s", id1, id2)
	}
	if id1.IsZero() {
		t.Fatalf("derived identity is zero")
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	id, err := IdentityFromSignerKey(SignerKeyFromSeed(testSeed(0x22)))
	if err != nil {
		t.Fatalf("IdentityFromSignerKey: %v", err)
	}
	s := id.String()
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*IdentitySize {
		t.Fatalf("unexpected identity rendering: %q", s)
	}
	parsed, err := ParseIdentity(s)
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed != id {
		t.Fatalf("identity round trip mismatch: %s vs %s", parsed, id)
	}
}

func TestParseIdentity_RejectsBadLengths(t *testing.T) {
	if _, err := ParseIdentity("0xdeadbeef"); err == nil {
		t.Fatalf("expected error for short identity")
	}
	if _, err := ParseIdentity("not-hex"); err == nil {
		t.Fatalf("expected error for non-hex identity")
	}
}

func TestSignVerify_Ed25519(t *testing.T) {
	seed := testSeed(0x33)
	priv := ed25519.NewKeyFromSeed(seed)
	signerKey := SignerKeyFromSeed(seed)

	msg := []byte("authorization statement bytes")
	for _, hashAlg := range []string{"sha256", "sha512", "sha3-256"} {
		sig, err := SignEd25519(msg, hashAlg, priv)
		if err != nil {
			t.Fatalf("SignEd25519(%s): %v", hashAlg, err)
		}
		if err := VerifySignature(signerKey, hashAlg, msg, sig); err != nil {
			t.Fatalf("VerifySignature(%s): %v", hashAlg, err)
		}
		if err := VerifySignature(signerKey, hashAlg, append(msg, '!'), sig); err == nil {
			t.Fatalf("VerifySignature(%s) accepted a mutated message", hashAlg)
		}
	}
}

func TestVerifySignature_RejectsWrongKey(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(testSeed(0x44))
	otherKey := SignerKeyFromSeed(testSeed(0x55))

	sig, err := SignEd25519([]byte("msg"), "sha256", priv)
	if err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	if err := VerifySignature(otherKey, "sha256", []byte("msg"), sig); err == nil {
		t.Fatalf("expected verification failure under foreign key")
	}
}

func TestDeriveRoleSeed_DistinctPerRole(t *testing.T) {
	root := testSeed(0x66)
	a, err := DeriveRoleSeed(root, "sign")
	if err != nil {
		t.Fatalf("DeriveRoleSeed(sign): %v", err)
	}
	b, err := DeriveRoleSeed(root, "reveal")
	if err != nil {
		t.Fatalf("DeriveRoleSeed(reveal): %v", err)
	}
	if string(a) == string(b) {
		t.Fatalf("role seeds must differ per role")
	}
	if string(a) == string(root) {
		t.Fatalf("role seed must differ from root seed")
	}
}

func TestKeyStore_InitDeriveLoad(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	seed := testSeed(0x77)

	signerKey, _, err := ks.InitializeRootKey("publisher", seed, false)
	if err != nil {
		t.Fatalf("InitializeRootKey: %v", err)
	}
	if signerKey != SignerKeyFromSeed(seed) {
		t.Fatalf("unexpected signer key: %s", signerKey)
	}

	// Second init without overwrite must fail.
	if _, _, err := ks.InitializeRootKey("publisher", seed, false); err == nil {
		t.Fatalf("expected error re-initializing without overwrite")
	}

	roleKey, _, err := ks.DeriveRoleKey("publisher", "reveal", false)
	if err != nil {
		t.Fatalf("DeriveRoleKey: %v", err)
	}
	roleSeed, err := ks.LoadSeed("", "publisher", "reveal", "")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if SignerKeyFromSeed(roleSeed) != roleKey {
		t.Fatalf("loaded role seed does not match derived key")
	}
}
