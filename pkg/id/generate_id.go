package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewControlNumber returns ECOM-<year>-<NNNN> with a sequence in 1000..9999.
// Callers retry on collision.
func NewControlNumber(year int) string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return fmt.Sprintf("ECOM-%04d-1000", year)
	}
	return fmt.Sprintf("ECOM-%04d-%04d", year, n.Int64()+1000)
}
