package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// CryptoRandomBytes generates cryptographically secure random bytes.
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomHex generates a random hex string of the given length.
func CryptoRandomHex(length int) (string, error) {
	bytes, err := CryptoRandomBytes(int64((length + 1) / 2))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// CryptoRandomCode generates a random string of the given length drawn from
// charset using crypto/rand.
func CryptoRandomCode(length int, charset string) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = charset[n.Int64()]
	}
	return string(code), nil
}
