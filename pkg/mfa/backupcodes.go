package mfa

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// backupCodeCharset excludes visually ambiguous characters (I, O, 0, 1) so
// a printed or dictated code is unambiguous.
const backupCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes creates count recovery codes formatted XXXX-XXXX.
// Callers store only HashBackupCode(code), never the plaintext.
func GenerateBackupCodes(count int) ([]string, error) {
	codes := make([]string, count)
	for i := range codes {
		code, err := generateOneBackupCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

func generateOneBackupCode() (string, error) {
	raw := make([]byte, 8)
	charsetLen := byte(len(backupCodeCharset))

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		raw[i] = backupCodeCharset[b%charsetLen]
	}

	return fmt.Sprintf("%s-%s", raw[:4], raw[4:]), nil
}

// HashBackupCode hashes a plaintext backup code for at-rest storage and
// constant-time lookup comparison.
func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
