package keys

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestWrapUnwrapBoxKey(t *testing.T) {
	pub, priv, err := GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	plaintext := []byte("a 32-byte custody key placeholder")

	sealed, err := WrapToBoxKey(plaintext, pub)
	if err != nil {
		t.Fatalf("WrapToBoxKey: %v", err)
	}
	got, err := UnwrapWithBoxKey(sealed, pub, priv)
	if err != nil {
		t.Fatalf("UnwrapWithBoxKey: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("plaintext mismatch")
	}

	// A different recipient cannot open it.
	otherPub, otherPriv, err := GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	if _, err := UnwrapWithBoxKey(sealed, otherPub, otherPriv); err == nil {
		t.Fatalf("foreign keypair opened the sealed box")
	}

	// Tampering breaks authentication.
	sealed[len(sealed)-1] ^= 0x01
	if _, err := UnwrapWithBoxKey(sealed, pub, priv); err == nil {
		t.Fatalf("tampered box opened")
	}
}

func TestBoxKeyString_RoundTrip(t *testing.T) {
	pub, _, err := GenerateBoxKeypair(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateBoxKeypair: %v", err)
	}
	parsed, err := ParseBoxKey(BoxKeyString(pub))
	if err != nil {
		t.Fatalf("ParseBoxKey: %v", err)
	}
	if *parsed != *pub {
		t.Fatalf("box key round trip mismatch")
	}

	for _, bad := range []string{"", "x25519:", "x25519:!!!", "ed25519:AAAA", "x25519:AAAA"} {
		if _, err := ParseBoxKey(bad); err == nil {
			t.Fatalf("ParseBoxKey(%q) accepted", bad)
		}
	}
}

func TestBoxKeypairFromSeed_Deterministic(t *testing.T) {
	seed := make([]byte, BoxKeySize)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	pub1, priv1, err := BoxKeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("BoxKeypairFromSeed: %v", err)
	}
	pub2, priv2, err := BoxKeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("BoxKeypairFromSeed: %v", err)
	}
	if *pub1 != *pub2 || *priv1 != *priv2 {
		t.Fatalf("same seed must derive the same keypair")
	}
	if _, _, err := BoxKeypairFromSeed(seed[:16]); err == nil {
		t.Fatalf("short seed accepted")
	}
}
