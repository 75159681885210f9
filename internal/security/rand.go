package security

import (
	"crypto/rand"
	"encoding/base64"
	"io"
)

// RandomBytes generates n cryptographically strong bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	return b, err
}

// RandomStringURLSafe generates an unpadded base64url token from n random
// bytes. Used for room ids handed out to peers.
func RandomStringURLSafe(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
