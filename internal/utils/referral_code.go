package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Unambiguous alphabet: no 0/O or 1/I, codes get typed from phone screens.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// GenerateReferralCode creates a random code in the format "REF-XXXXXXXX".
func GenerateReferralCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		code[i] = codeAlphabet[idx.Int64()]
	}
	return "REF-" + string(code), nil
}
