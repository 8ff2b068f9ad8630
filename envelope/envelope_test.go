package envelope

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func testKey(fill byte) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = fill
	}
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := testKey(0xA1)
	plaintexts := [][]byte{
		nil,
		[]byte("x"),
		[]byte("a longer payload with some structure: {\"body\": \"# hello\"}"),
		bytes.Repeat([]byte{0x00, 0xFF}, 4096),
	}
	for _, want := range plaintexts {
		env, err := Seal(want, key, Metadata{Title: "t", Subtitle: "s", Date: time.Unix(1700000000, 0)})
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		got, err := Open(env, key)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("round trip mismatch: got %d bytes want %d bytes", len(got), len(want))
		}
	}
}

func TestOpen_WrongKeyFailsAuthentication(t *testing.T) {
	env, err := Seal([]byte("secret"), testKey(0x01), Metadata{})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	plaintext, err := Open(env, testKey(0x02))
	if err != ErrAuthenticationFailed {
		t.Fatalf("Open wrong key: got %v want %v", err, ErrAuthenticationFailed)
	}
	if plaintext != nil {
		t.Fatalf("Open must not return partial plaintext on failure")
	}
}

func TestOpen_TamperedCiphertextFailsAuthentication(t *testing.T) {
	key := testKey(0x03)
	env, err := Seal([]byte("secret"), key, Metadata{})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	env.Ciphertext[0] ^= 0x80
	if _, err := Open(env, key); err != ErrAuthenticationFailed {
		t.Fatalf("Open tampered: got %v want %v", err, ErrAuthenticationFailed)
	}
}

func TestSeal_FreshIVPerCall(t *testing.T) {
	key := testKey(0x04)
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		env, err := Seal([]byte("same plaintext"), key, Metadata{})
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if len(env.IV) != IVSize {
			t.Fatalf("iv length: got %d want %d", len(env.IV), IVSize)
		}
		if seen[string(env.IV)] {
			t.Fatalf("iv repeated across seals")
		}
		seen[string(env.IV)] = true
	}
}

func TestSeal_RejectsBadKeySize(t *testing.T) {
	if _, err := Seal([]byte("p"), make([]byte, 16), Metadata{}); err != ErrInvalidKeySize {
		t.Fatalf("Seal short key: got %v want %v", err, ErrInvalidKeySize)
	}
}

func TestPersistedForm_MetadataStaysPublic(t *testing.T) {
	env, err := Seal([]byte("secret"), testKey(0x05), Metadata{
		Title:    "Edition 12",
		Subtitle: "On custody keys",
		Date:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// Metadata must be readable straight off the persisted JSON, no key needed.
	var sidecar struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		Date     string `json:"date"`
	}
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		t.Fatalf("sidecar unmarshal: %v", err)
	}
	if sidecar.Title != "Edition 12" || sidecar.Subtitle != "On custody keys" {
		t.Fatalf("unexpected sidecar: %+v", sidecar)
	}
	if _, err := time.Parse(time.RFC3339, sidecar.Date); err != nil {
		t.Fatalf("date not RFC3339: %v", err)
	}

	parsed, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := Open(parsed, testKey(0x05))
	if err != nil {
		t.Fatalf("Open after persisted round trip: %v", err)
	}
	if string(got) != "secret" {
		t.Fatalf("plaintext mismatch after persisted round trip")
	}
}

func TestGenerateKey_SizeAndUniqueness(t *testing.T) {
	a, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(a) != KeySize || len(b) != KeySize {
		t.Fatalf("key sizes: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("generated keys must not repeat")
	}
}
