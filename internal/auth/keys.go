package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aidanwoods.dev/go-paseto"
)

// KeyFileName is the file under the data directory holding the token key.
const KeyFileName = "auth.key"

// LoadOrCreateKey reads the hex-encoded PASETO v4 key from dir, creating the
// file with a fresh key on first start.
func LoadOrCreateKey(dir string) (paseto.V4SymmetricKey, error) {
	path := filepath.Join(dir, KeyFileName)

	//#nosec G304 -- path is built from the configured data directory
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, err := paseto.V4SymmetricKeyFromHex(strings.TrimSpace(string(data)))
		if err != nil {
			return paseto.V4SymmetricKey{}, fmt.Errorf("read %s: %w", path, err)
		}
		return key, nil
	case !errors.Is(err, os.ErrNotExist):
		return paseto.V4SymmetricKey{}, fmt.Errorf("read %s: %w", path, err)
	}

	key := paseto.NewV4SymmetricKey()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(key.ExportHex()), 0o600); err != nil {
		return paseto.V4SymmetricKey{}, fmt.Errorf("write %s: %w", path, err)
	}
	return key, nil
}
