package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*"
)

// GenerateOTP returns a numeric one-time code of the given length.
func GenerateOTP(length int) (string, error) {
	return randomFrom(digitChars, length)
}

// GenerateStrongPassword returns a password with at least one lower case letter,
// one upper case letter, one digit and one symbol. length must be at least 4.
func GenerateStrongPassword(length int) (string, error) {
	if length < 4 {
		return "", fmt.Errorf("password length %d is too short", length)
	}

	out := make([]byte, 0, length)
	for _, set := range []string{lowerChars, upperChars, digitChars, symbolChars} {
		c, err := randomFrom(set, 1)
		if err != nil {
			return "", err
		}
		out = append(out, c[0])
	}

	rest, err := randomFrom(lowerChars+upperChars+digitChars+symbolChars, length-len(out))
	if err != nil {
		return "", err
	}
	out = append(out, rest...)

	// Shuffle so the required classes are not always in front.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("failed to shuffle password: %w", err)
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}
	return string(out), nil
}

func randomFrom(charset string, length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
