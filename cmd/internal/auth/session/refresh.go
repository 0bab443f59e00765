package session

import (
	"crypto/rand"
	"encoding/base64"

	"freemonitor/cmd/security/token"
)

func digestHex(s string, key []byte) string {
	return token.DigestHex(s, key)
}

func newOpaqueRefreshToken(nBytes int, digestKey []byte) (plain string, digestHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)

	digestHex = token.DigestHex(plain, digestKey) // 64 hex chars

	return plain, digestHex, nil
}
