// Package crypto signs audit payloads.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrEmptyKey = errors.New("signing key is empty")

// Sign returns the hex HMAC-SHA256 of payload under key.
func Sign(payload []byte, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	h := hmac.New(sha256.New, []byte(key))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether signature is the HMAC of payload under key.
func Verify(payload []byte, key, signature string) bool {
	expected, err := Sign(payload, key)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
