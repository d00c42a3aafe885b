package identity

import (
	"crypto/rand"
	"encoding/hex"
)

// secretBytes is the entropy of a generated homeserver password.
// 16 random bytes render to 32 lowercase hex characters.
const secretBytes = 16

// NewAccountSecret returns a cryptographically random password for a
// provisioned homeserver account. The value is a real credential, not a
// display token: it is stored server-side and replayed to the
// homeserver's password login, never shown to the end user.
func NewAccountSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
