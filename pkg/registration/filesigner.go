package registration

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/StuartF303/sorcha/pkg/sorchacrypto"
)

// FileSigner is a SystemSigner backed by an ED25519 key stored hex-encoded
// on disk, generating one on first use if the file does not yet exist.
type FileSigner struct {
	keyPath string
	key     ed25519.PrivateKey
}

// LoadOrGenerateFileSigner loads the key at keyPath, or generates and
// persists a new one (with owner-only file permissions) if none exists yet.
func LoadOrGenerateFileSigner(keyPath string) (*FileSigner, error) {
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return nil, fmt.Errorf("registration: create key directory: %w", err)
	}

	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("registration: generate system wallet key: %w", err)
		}
		if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
			return nil, fmt.Errorf("registration: save system wallet key: %w", err)
		}
		return &FileSigner{keyPath: keyPath, key: priv}, nil
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("registration: read system wallet key: %w", err)
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("registration: decode system wallet key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("registration: invalid system wallet key size: expected %d, got %d", ed25519.PrivateKeySize, len(keyBytes))
	}
	return &FileSigner{keyPath: keyPath, key: ed25519.PrivateKey(keyBytes)}, nil
}

func (s *FileSigner) Sign(ctx context.Context, digest []byte) ([]byte, string, error) {
	return ed25519.Sign(s.key, digest), string(sorchacrypto.ED25519), nil
}

func (s *FileSigner) PublicKey(ctx context.Context) (string, []byte, error) {
	pub, ok := s.key.Public().(ed25519.PublicKey)
	if !ok {
		return "", nil, fmt.Errorf("registration: unexpected public key type")
	}
	return string(sorchacrypto.ED25519), pub, nil
}
