package infra

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

const (
	historyKeySuffix = ".key" // history.db → history.db.key
	historyKeySize   = 32     // 256-bit raw SQLCipher key
)

var (
	errKeyExposed = errors.New("history key is accessible by other users")
	errKeyLost    = errors.New("history database exists but its key is missing")
)

// FileKeyProvider implements domain.KeyProvider. The key sits beside the
// history database it unlocks, hex encoded in the same form the raw-key
// pragma takes.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the history database in dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: historyKeyPath(historyDBPath(dataDir))}
}

func historyKeyPath(dbPath string) string {
	return dbPath + historyKeySuffix
}

// GetKey reads the key, refusing one other users could have read.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	info, err := os.Stat(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history key: %w", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0077 != 0 {
		return nil, fmt.Errorf("%s (mode %v): %w", p.keyPath, info.Mode().Perm(), errKeyExposed)
	}

	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history key: %w", err)
	}
	key, err := hex.DecodeString(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode history key: %w", err)
	}
	if err := validateHistoryKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// StoreKey writes key with owner-only permissions.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if err := validateHistoryKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(p.keyPath, []byte(hex.EncodeToString(key)+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write history key: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

func validateHistoryKey(key []byte) error {
	if len(key) != historyKeySize {
		return fmt.Errorf("invalid history key size: got %d, want %d", len(key), historyKeySize)
	}
	return nil
}

// GenerateKey creates a new random history key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, historyKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate history key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the stored key, generating and storing one on first use.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Ensure FileKeyProvider implements domain.KeyProvider.
var _ domain.KeyProvider = (*FileKeyProvider)(nil)
