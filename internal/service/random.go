package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// verificationAlphabet omits characters that are easy to misread (0/O, 1/I/L).
const verificationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// randomString draws n characters uniformly from alphabet using crypto/rand.
func randomString(alphabet string, n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random string length must be positive")
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// NewVerificationCode returns a random booking verification code of length n.
func NewVerificationCode(n int) (string, error) {
	return randomString(verificationAlphabet, n)
}

func newTemporaryPassword(n int) (string, error) {
	if n < 8 {
		n = 8
	}
	return randomString(passwordAlphabet, n)
}
