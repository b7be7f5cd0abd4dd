package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dmelo/crossarb/internal/domain"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-store JSON schema version.
	currentVersion = 1
)

// encryptedStoreJSON is the on-disk format for an encrypted credential store.
type encryptedStoreJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// StoreConfig carries the information LoadCredentials needs to resolve the
// per-exchange API credentials. Populate the fields from environment
// variables or a config file.
type StoreConfig struct {
	// Raw holds plain credentials keyed by exchange name. Per exchange they
	// take precedence over entries in the encrypted store.
	Raw map[string]domain.Credentials

	// EncryptedPath is the path to a JSON file produced by EncryptCredentials.
	EncryptedPath string

	// Password is used to decrypt the file at EncryptedPath.
	Password string
}

// EncryptCredentials encrypts a per-exchange credential map with a password
// using PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated
// encryption. It returns the JSON blob suitable for writing to disk.
func EncryptCredentials(creds map[string]domain.Credentials, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	if len(creds) == 0 {
		return nil, errors.New("crypto: no credentials to encrypt")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal credentials: %w", err)
	}

	// Generate random salt and derive AES key.
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	// AES-256-GCM encrypt.
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := encryptedStoreJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecryptCredentials decrypts a JSON blob produced by EncryptCredentials,
// returning the per-exchange credential map.
func DecryptCredentials(encryptedJSON []byte, password string) (map[string]domain.Credentials, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	var stored encryptedStoreJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return nil, fmt.Errorf("crypto: parsing encrypted store JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return nil, fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}

	var creds map[string]domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("crypto: parsing decrypted credentials: %w", err)
	}

	return creds, nil
}

// LoadCredentials resolves the per-exchange credentials from the provided
// configuration. When an encrypted store is configured it is read and
// decrypted, and inline Raw entries are then merged on top, winning per
// exchange. An exchange present only in the store keeps its stored
// credentials. With neither source configured an error is returned.
func LoadCredentials(cfg StoreConfig) (map[string]domain.Credentials, error) {
	if len(cfg.Raw) == 0 && cfg.EncryptedPath == "" {
		return nil, errors.New("crypto: no credential source configured (set raw credentials or an encrypted store path)")
	}

	out := make(map[string]domain.Credentials, len(cfg.Raw))

	if cfg.EncryptedPath != "" {
		data, err := os.ReadFile(cfg.EncryptedPath)
		if err != nil {
			return nil, fmt.Errorf("crypto: reading encrypted store: %w", err)
		}
		stored, err := DecryptCredentials(data, cfg.Password)
		if err != nil {
			return nil, err
		}
		for k, v := range stored {
			out[k] = v
		}
	}

	for k, v := range cfg.Raw {
		out[k] = v
	}

	return out, nil
}
