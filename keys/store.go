package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyStore is a simple local-first store for Ed25519 seeds.
//
// Layout: <dir>/<name>/root.key holds the root seed; role-derived seeds live
// under <dir>/<name>/roles/<role>.key. Files are hex, mode 0600.
type KeyStore struct {
	Directory string
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".keygate", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootKeyPath(name string) string {
	return filepath.Join(ks.Directory, name, "root.key")
}

func (ks *KeyStore) roleKeyPath(name, role string) string {
	return filepath.Join(ks.Directory, name, "roles", role+".key")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

func CheckRole(role string) error {
	if role == "" {
		return errors.New("role cannot be empty")
	}
	for _, char := range role {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in role", char)
	}
	return nil
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func (ks *KeyStore) saveSeed(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

func (ks *KeyStore) loadSeed(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(strings.TrimSpace(string(data)))
}

// InitializeRootKey stores seed as the root key for name and returns the
// signer-key string plus the file it was written to.
func (ks *KeyStore) InitializeRootKey(name string, seed []byte, overwrite bool) (signerKey string, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return "", "", err
	}
	filePath = ks.rootKeyPath(name)
	if err := ks.saveSeed(filePath, seed, overwrite); err != nil {
		return "", "", err
	}
	return SignerKeyFromSeed(seed), filePath, nil
}

// DeriveRoleKey derives and stores a role key under an existing root key.
func (ks *KeyStore) DeriveRoleKey(from, role string, overwrite bool) (signerKey string, filePath string, err error) {
	if err := CheckKeyName(from); err != nil {
		return "", "", err
	}
	if err := CheckRole(role); err != nil {
		return "", "", err
	}
	rootSeed, err := ks.loadSeed(ks.rootKeyPath(from))
	if err != nil {
		return "", "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", "", err
	}
	filePath = ks.roleKeyPath(from, role)
	if err := ks.saveSeed(filePath, roleSeed, overwrite); err != nil {
		return "", "", err
	}
	return SignerKeyFromSeed(roleSeed), filePath, nil
}

// LoadSeed resolves a seed from, in order of precedence: an explicit hex
// seed, an explicit key file, or a named key (optionally role-scoped).
func (ks *KeyStore) LoadSeed(seedHex, name, role, keyFile string) ([]byte, error) {
	if seedHex != "" {
		return ParseSeedHex(seedHex)
	}
	if keyFile != "" {
		return ks.loadSeed(keyFile)
	}
	if name != "" {
		if err := CheckKeyName(name); err != nil {
			return nil, err
		}
		if role == "" {
			return ks.loadSeed(ks.rootKeyPath(name))
		}
		if err := CheckRole(role); err != nil {
			return nil, err
		}
		return ks.loadSeed(ks.roleKeyPath(name, role))
	}
	return nil, errors.New("no signer provided")
}
