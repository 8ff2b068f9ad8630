package authstmt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"xdao.co/keygate/keys"
	"xdao.co/keygate/storage"
)

func testHandle(t *testing.T, data string) string {
	t.Helper()
	id, err := storage.HandleFor([]byte(data))
	if err != nil {
		t.Fatalf("HandleFor: %v", err)
	}
	return id.String()
}

func testParams(t *testing.T) Params {
	t.Helper()
	return Params{
		Resource:     "0x" + strings.Repeat("ab", 20),
		Handles:      []string{testHandle(t, "env-1"), testHandle(t, "env-2")},
		EphemeralKey: "x25519:dGVzdC1lcGhlbWVyYWwtcHVibGljLWtleS0zMmI=",
		IssuedAt:     time.Unix(1_700_000_000, 0),
	}
}

func testPriv(fill byte) ed25519.PrivateKey {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = fill
	}
	return ed25519.NewKeyFromSeed(seed)
}

func TestBuildSignedEd25519_ParsesAndVerifies(t *testing.T) {
	priv := testPriv(0x11)
	raw, err := BuildSignedEd25519(testParams(t), priv)
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	stmt, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := stmt.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if stmt.Domain() != Domain {
		t.Fatalf("domain: got %q", stmt.Domain())
	}
	if got := stmt.Handles(); len(got) != 2 {
		t.Fatalf("handles: got %v", got)
	}

	// The signed Caller field matches the identity of the signing key.
	pub := priv.Public().(ed25519.PublicKey)
	wantID := keys.IdentityFromPublicKey(pub)
	gotID, err := stmt.CallerIdentity()
	if err != nil {
		t.Fatalf("CallerIdentity: %v", err)
	}
	if gotID != wantID {
		t.Fatalf("caller identity: got %s want %s", gotID, wantID)
	}
}

func TestBuildSignedDilithium3_ParsesAndVerifies(t *testing.T) {
	pub, priv, err := keys.GenerateDilithium3Keypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	raw, err := BuildSignedDilithium3(testParams(t), pub, priv)
	if err != nil {
		t.Fatalf("BuildSignedDilithium3: %v", err)
	}
	stmt, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := stmt.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if stmt.SignatureAlg() != "dilithium3" {
		t.Fatalf("signature alg: got %q", stmt.SignatureAlg())
	}
}

func TestParse_RejectsNonCanonicalBytes(t *testing.T) {
	raw, err := BuildSignedEd25519(testParams(t), testPriv(0x22))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	cases := map[string][]byte{
		"crlf":             []byte(strings.ReplaceAll(string(raw), "\n", "\r\n")),
		"trailing newline": append(append([]byte(nil), raw...), '\n'),
		"bom":              append([]byte{0xEF, 0xBB, 0xBF}, raw...),
		"trailing space":   []byte(strings.Replace(string(raw), "\nSCOPE\n", "\nSCOPE \n", 1)),
		"blank line":       []byte(strings.Replace(string(raw), "\nSCOPE\n", "\n\nSCOPE\n", 1)),
	}
	for name, bad := range cases {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("%s: Parse accepted non-canonical bytes", name)
		}
	}
}

func TestVerify_RejectsMutatedScope(t *testing.T) {
	p := testParams(t)
	raw, err := BuildSignedEd25519(p, testPriv(0x33))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	// Swap the resource for another value of the same shape. The bytes stay
	// canonical, so only signature verification can catch it.
	mutated := strings.Replace(string(raw), p.Resource, "0x"+strings.Repeat("cd", 20), 1)
	stmt, err := Parse([]byte(mutated))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := stmt.Verify(); err == nil {
		t.Fatalf("Verify accepted a statement with a swapped resource")
	}
}

func TestVerify_RejectsForeignCallerKey(t *testing.T) {
	raw, err := BuildSignedEd25519(testParams(t), testPriv(0x44))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}

	// Replace Caller-Key with a different well-formed key. The signed Caller
	// identity no longer matches the key, and the signature fails under it.
	foreign := keys.SignerKeyFromSeed(make([]byte, ed25519.SeedSize))
	stmt, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	own := stmt.CallerKey()
	mutated := strings.Replace(string(raw), own, foreign, 1)
	tampered, err := Parse([]byte(mutated))
	if err != nil {
		t.Fatalf("Parse tampered: %v", err)
	}
	if err := tampered.Verify(); err == nil {
		t.Fatalf("Verify accepted a foreign Caller-Key")
	}
}

func TestVerifyAt_EnforcesWindow(t *testing.T) {
	p := testParams(t)
	p.Window = time.Hour
	raw, err := BuildSignedEd25519(p, testPriv(0x55))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}
	stmt, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	issued := p.IssuedAt
	if err := stmt.VerifyAt(issued.Add(-time.Minute)); err == nil {
		t.Fatalf("VerifyAt accepted a not-yet-valid statement")
	}
	if err := stmt.VerifyAt(issued.Add(30 * time.Minute)); err != nil {
		t.Fatalf("VerifyAt inside window: %v", err)
	}
	if err := stmt.VerifyAt(issued.Add(time.Hour)); err == nil {
		t.Fatalf("VerifyAt accepted a lapsed statement")
	}
}

func TestVerifyAt_DefaultWindowIsTenDays(t *testing.T) {
	p := testParams(t)
	raw, err := BuildSignedEd25519(p, testPriv(0x66))
	if err != nil {
		t.Fatalf("BuildSignedEd25519: %v", err)
	}
	stmt, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := stmt.VerifyAt(p.IssuedAt.Add(10*24*time.Hour - time.Second)); err != nil {
		t.Fatalf("VerifyAt just inside default window: %v", err)
	}
	if err := stmt.VerifyAt(p.IssuedAt.Add(10 * 24 * time.Hour)); err == nil {
		t.Fatalf("VerifyAt accepted past the default window")
	}
}

func TestCompose_RejectsMalformedHandles(t *testing.T) {
	p := testParams(t)
	p.Handles = []string{"not-a-cid"}
	if _, err := BuildSignedEd25519(p, testPriv(0x77)); err == nil {
		t.Fatalf("expected malformed handle rejection")
	}

	p = testParams(t)
	p.Handles = nil
	if _, err := BuildSignedEd25519(p, testPriv(0x77)); err == nil {
		t.Fatalf("expected empty handle rejection")
	}
}
