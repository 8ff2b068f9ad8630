// Package envelope implements the authenticated envelope that protects
// payload content. Payloads are sealed offline under the raw custody key;
// the sidecar metadata (title, subtitle, date) is deliberately public and
// readable without any authorization.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// KeySize is the custody key length: AES-256.
	KeySize = 32
	// IVSize is the GCM nonce length.
	IVSize = 12
)

var (
	// ErrAuthenticationFailed is returned by Open when the authentication
	// tag does not verify: wrong key, corrupted ciphertext, or tampering.
	// No partial plaintext is ever returned alongside it.
	ErrAuthenticationFailed = errors.New("envelope: authentication failed")

	ErrInvalidKeySize = fmt.Errorf("envelope: key must be %d bytes", KeySize)
	ErrInvalidIVSize  = fmt.Errorf("envelope: iv must be %d bytes", IVSize)
)

// Envelope is the persisted sealed payload. IV and Ciphertext are base64 in
// JSON; the GCM tag is appended to Ciphertext per standard AEAD framing.
// Metadata fields are stored unencrypted.
type Envelope struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`

	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Date     string `json:"date"`
}

// Metadata is the public sidecar carried on a sealed envelope.
type Metadata struct {
	Title    string
	Subtitle string
	Date     time.Time
}

// Seal authenticated-encrypts plaintext under rawKey with a fresh random IV.
func Seal(plaintext, rawKey []byte, meta Metadata) (*Envelope, error) {
	aead, err := newAEAD(rawKey)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return &Envelope{
		IV:         iv,
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
		Title:      meta.Title,
		Subtitle:   meta.Subtitle,
		Date:       meta.Date.UTC().Format(time.RFC3339),
	}, nil
}

// Open decrypts the envelope under rawKey. It fails with
// ErrAuthenticationFailed when the tag does not verify.
func Open(env *Envelope, rawKey []byte) ([]byte, error) {
	if env == nil {
		return nil, errors.New("envelope: nil envelope")
	}
	aead, err := newAEAD(rawKey)
	if err != nil {
		return nil, err
	}
	if len(env.IV) != IVSize {
		return nil, ErrInvalidIVSize
	}
	plaintext, err := aead.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random custody key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Marshal renders the envelope as its canonical persisted JSON. The handle
// scoping decryption requests is derived from exactly these bytes.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses a persisted envelope.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("envelope: invalid persisted form: %w", err)
	}
	return &env, nil
}

func newAEAD(rawKey []byte) (cipher.AEAD, error) {
	if len(rawKey) != KeySize {
		return nil, ErrInvalidKeySize
	}
	block, err := aes.NewCipher(rawKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
