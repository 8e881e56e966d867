package api

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// ErrVaultLocked is returned when a secret-writing operation is attempted
// before an unlock passphrase has been set for this process.
var ErrVaultLocked = errors.New("vault: locked")

const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	keyLen  = 32
)

// vaultFile is the on-disk encrypted secret store (spec.md §6,
// $ASTRA_DATA_DIR/vault.bin). Each entry is encrypted independently under a
// key derived from the unlock passphrase and that entry's own salt, so
// rotating one secret never requires re-encrypting the others.
type vaultFile struct {
	Entries map[string]vaultEntry `json:"entries"`
}

type vaultEntry struct {
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Vault guards a per-process passphrase and the encrypted secret file. It
// mirrors the original implementation's split between a runtime-only
// passphrase (core/secrets.py's set_runtime_passphrase) and an at-rest
// encrypted file (memory/vault.py) — that file's cipher was never part of
// the retrieval pack, so the scheme here is original: scrypt-derived
// per-entry keys over AES-256-GCM, the standard authenticated-encryption
// pairing documented for golang.org/x/crypto/scrypt.
type Vault struct {
	path string

	mu         sync.Mutex
	passphrase string
}

// NewVault returns a Vault backed by the encrypted file at path.
func NewVault(path string) *Vault {
	return &Vault{path: path}
}

// Unlock records the passphrase for subsequent writes/reads in this process.
// It never touches disk and never validates the passphrase against existing
// entries — a wrong passphrase simply fails later decryption.
func (v *Vault) Unlock(passphrase string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.passphrase = passphrase
}

// Unlocked reports whether a passphrase has been set this process.
func (v *Vault) Unlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.passphrase != ""
}

func (v *Vault) currentPassphrase() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.passphrase == "" {
		return "", ErrVaultLocked
	}
	return v.passphrase, nil
}

// SetSecret encrypts value under key and persists it, merging with whatever
// other entries already exist in the file.
func (v *Vault) SetSecret(key, value string) error {
	passphrase, err := v.currentPassphrase()
	if err != nil {
		return err
	}

	vf, err := v.load()
	if err != nil {
		return err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("vault: generate salt: %w", err)
	}
	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return fmt.Errorf("vault: derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("vault: new gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("vault: generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)

	if vf.Entries == nil {
		vf.Entries = make(map[string]vaultEntry)
	}
	vf.Entries[key] = vaultEntry{
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return v.save(vf)
}

// GetSecret decrypts and returns the value stored under key, if any.
func (v *Vault) GetSecret(key string) (string, error) {
	passphrase, err := v.currentPassphrase()
	if err != nil {
		return "", err
	}

	vf, err := v.load()
	if err != nil {
		return "", err
	}
	entry, ok := vf.Entries[key]
	if !ok {
		return "", fmt.Errorf("vault: no such secret %q", key)
	}

	salt, err := base64.StdEncoding.DecodeString(entry.Salt)
	if err != nil {
		return "", fmt.Errorf("vault: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(entry.Nonce)
	if err != nil {
		return "", fmt.Errorf("vault: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(entry.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("vault: decode ciphertext: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return "", fmt.Errorf("vault: derive key: %w", err)
	}
	block, err := aes.NewCipher(derived)
	if err != nil {
		return "", fmt.Errorf("vault: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault: new gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt: wrong passphrase or corrupt entry: %w", err)
	}
	return string(plaintext), nil
}

func (v *Vault) load() (vaultFile, error) {
	b, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return vaultFile{Entries: map[string]vaultEntry{}}, nil
	}
	if err != nil {
		return vaultFile{}, fmt.Errorf("vault: read file: %w", err)
	}
	var vf vaultFile
	if err := json.Unmarshal(b, &vf); err != nil {
		return vaultFile{}, fmt.Errorf("vault: parse file: %w", err)
	}
	return vf, nil
}

func (v *Vault) save(vf vaultFile) error {
	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return fmt.Errorf("vault: mkdir: %w", err)
	}
	b, err := json.MarshalIndent(vf, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: encode file: %w", err)
	}
	return os.WriteFile(v.path, b, 0o600)
}
