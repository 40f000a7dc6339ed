package channel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/Abraxas-365/manifesto/pkg/errx"
)

// Vault encrypts and decrypts channel credentials at rest with AES-256-GCM.
// There is no dedicated envelope-encryption library in use elsewhere in this
// codebase, so this stays on the standard library's crypto/aes and
// crypto/cipher rather than reaching for an unrelated dependency.
type Vault struct {
	gcm cipher.AEAD
}

// NewVault builds a Vault from a 32-byte key, typically sourced from a
// secrets manager or environment variable at startup.
func NewVault(key []byte) (*Vault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errx.Wrap(err, "failed to initialize credential cipher", errx.TypeInternal)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errx.Wrap(err, "failed to initialize GCM mode", errx.TypeInternal)
	}
	return &Vault{gcm: gcm}, nil
}

// Seal encrypts plaintext and returns it as a base64 string safe to store
// in the encrypted_credential column.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errx.Wrap(err, "failed to generate nonce", errx.TypeInternal)
	}
	ciphertext := v.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Open reverses Seal. It returns ErrInvalidCredential if sealed is malformed
// or was encrypted under a different key.
func (v *Vault) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrInvalidCredential()
	}
	nonceSize := v.gcm.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrInvalidCredential()
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := v.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCredential()
	}
	return string(plaintext), nil
}
