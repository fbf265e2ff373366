package authcore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// generateRecoveryCodes returns count fresh codes in clear (shown to the
// user exactly once) alongside their hashes for storage at rest.
func generateRecoveryCodes(count int) (codes []string, hashes []string) {
	codes = make([]string, 0, count)
	hashes = make([]string, 0, count)
	for i := 0; i < count; i++ {
		code := uuid.NewString()
		codes = append(codes, code)
		hashes = append(hashes, hashRecoveryCode(code))
	}
	return codes, hashes
}

func hashRecoveryCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
