package regmac

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// SharedSecretEnvKey is the env var name for the homeserver's
	// registration shared secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SharedSecretEnvKey = "CRABBA_MATRIX_SHARED_SECRET"

	// notAdmin is the literal trailing field of the signed byte
	// sequence for non-admin registrations.
	notAdmin = "notadmin"
)

// Sign computes the registration MAC for a non-admin account.
//
// The signed byte sequence is exactly
//
//	nonce NUL localpart NUL secret NUL "notadmin"
//
// with NUL a single zero byte, keyed by sharedSecret using HMAC-SHA1,
// rendered as lowercase hex. Any deviation (separator, field order,
// case) is rejected by the homeserver.
func Sign(nonce, localpart, secret string, sharedSecret []byte) string {
	m := hmac.New(sha1.New, sharedSecret)
	m.Write([]byte(nonce))
	m.Write([]byte{0})
	m.Write([]byte(localpart))
	m.Write([]byte{0})
	m.Write([]byte(secret))
	m.Write([]byte{0})
	m.Write([]byte(notAdmin))
	return hex.EncodeToString(m.Sum(nil))
}

// SharedSecretFromEnv returns the configured shared secret bytes
// (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrSharedSecretMissing.
// If too short -> ErrSharedSecretTooShort.
func SharedSecretFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(SharedSecretEnvKey))
	if raw == "" {
		return nil, ErrSharedSecretMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrSharedSecretTooShort
	}
	return b, nil
}
