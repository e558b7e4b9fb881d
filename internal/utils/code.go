package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// VerificationCodeTTL is how long an emailed registration code is valid.
const VerificationCodeTTL = 15 * time.Minute

// MaxCodeAttempts is how many wrong guesses burn a verification code.
const MaxCodeAttempts = 5

var codeSpace = big.NewInt(1_000_000)

// NewVerificationCode returns a six digit code with leading zeros kept.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashVerificationCode returns the stored form of a verification code.
func HashVerificationCode(code string) string {
	return SHA256Hex(code)
}

// VerificationCodeMatches compares a submitted code against a stored
// hash in constant time.
func VerificationCodeMatches(hash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(HashVerificationCode(code))) == 1
}
