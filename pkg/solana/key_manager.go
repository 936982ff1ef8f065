package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	solanago "github.com/gagliardetto/solana-go"
)

var ErrKeyNotFound = errors.New("key not found in keystore")

// KeyStoreEntry represents a keystore entry with metadata
type KeyStoreEntry struct {
	Address      string `json:"address"`
	Label        string `json:"label,omitempty"`
	EncryptedKey string `json:"encrypted_key"`
	Version      int    `json:"version"`
}

// KeyManager generates Solana key pairs and keeps them encrypted in Dir,
// one JSON file per address.
type KeyManager struct {
	Dir string
}

// NewKeyManager creates a KeyManager for dir
func NewKeyManager(dir string) *KeyManager {
	return &KeyManager{Dir: dir}
}

// GenerateKeyPair generates a new Solana key pair
func (km *KeyManager) GenerateKeyPair() (*types.Account, error) {
	account := types.NewAccount()
	return &account, nil
}

// EncryptPrivateKey encrypts a private key using AES-256-GCM
func (km *KeyManager) EncryptPrivateKey(privateKey []byte, password string) (string, error) {
	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// nonce || ciphertext
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptPrivateKey decrypts a private key using AES-256-GCM
func (km *KeyManager) DecryptPrivateKey(encryptedKey string, password string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// SaveKeyStoreEntry encrypts account's key and writes it to
// Dir/<address>.json.
func (km *KeyManager) SaveKeyStoreEntry(account *types.Account, label, password string) (*KeyStoreEntry, error) {
	encrypted, err := km.EncryptPrivateKey(account.PrivateKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	entry := &KeyStoreEntry{
		Address:      account.PublicKey.ToBase58(),
		Label:        label,
		EncryptedKey: encrypted,
		Version:      1,
	}
	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keystore entry: %w", err)
	}

	if err := os.MkdirAll(km.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	filename := filepath.Join(km.Dir, entry.Address+".json")
	if err := os.WriteFile(filename, jsonData, 0600); err != nil {
		return nil, fmt.Errorf("failed to write keystore entry to file: %w", err)
	}
	return entry, nil
}

func (km *KeyManager) readEntry(filename string) (*KeyStoreEntry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore entry: %w", err)
	}
	var entry KeyStoreEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore entry %s: %w", filepath.Base(filename), err)
	}
	return &entry, nil
}

// LoadKeyStoreEntry loads and decrypts the key stored for address
func (km *KeyManager) LoadKeyStoreEntry(address string, password string) (*types.Account, error) {
	filename := filepath.Join(km.Dir, address+".json")
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, address)
	}
	entry, err := km.readEntry(filename)
	if err != nil {
		return nil, err
	}
	if entry.Address != address {
		return nil, fmt.Errorf("address mismatch: expected %s, got %s", address, entry.Address)
	}

	privateKey, err := km.DecryptPrivateKey(entry.EncryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}
	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from private key: %w", err)
	}
	return &account, nil
}

// LoadSigner loads the key stored for address as a transaction signer.
func (km *KeyManager) LoadSigner(address string, password string) (solanago.PrivateKey, error) {
	account, err := km.LoadKeyStoreEntry(address, password)
	if err != nil {
		return nil, err
	}
	return solanago.PrivateKey(account.PrivateKey), nil
}

// List returns every entry in Dir ordered by label, then address.
func (km *KeyManager) List() ([]KeyStoreEntry, error) {
	files, err := filepath.Glob(filepath.Join(km.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	entries := make([]KeyStoreEntry, 0, len(files))
	for _, f := range files {
		entry, err := km.readEntry(f)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Label != entries[j].Label {
			return entries[i].Label < entries[j].Label
		}
		return entries[i].Address < entries[j].Address
	})
	return entries, nil
}

// FindByLabel returns the entries whose label starts with prefix.
func (km *KeyManager) FindByLabel(prefix string) ([]KeyStoreEntry, error) {
	all, err := km.List()
	if err != nil {
		return nil, err
	}
	var out []KeyStoreEntry
	for _, e := range all {
		if strings.HasPrefix(e.Label, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

// LoadOrCreateSigner returns the signer labeled label, generating and storing
// one if none exists.
func (km *KeyManager) LoadOrCreateSigner(label, password string) (solanago.PrivateKey, error) {
	found, err := km.FindByLabel(label)
	if err != nil {
		return nil, err
	}
	for _, e := range found {
		if e.Label == label {
			return km.LoadSigner(e.Address, password)
		}
	}

	account, err := km.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if _, err := km.SaveKeyStoreEntry(account, label, password); err != nil {
		return nil, err
	}
	return solanago.PrivateKey(account.PrivateKey), nil
}

// GetSolanaAddressFromPrivateKey returns the Solana address for a private key
func (km *KeyManager) GetSolanaAddressFromPrivateKey(privateKey []byte) (string, error) {
	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to create account from private key: %w", err)
	}
	return account.PublicKey.ToBase58(), nil
}

// deriveKey creates a 32-byte key from a password using SHA-256
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}
