package regmac

import "errors"

var (
	// ErrSharedSecretMissing is returned when the registration shared
	// secret env var is absent or blank. This is a fatal
	// misconfiguration: every provisioning attempt would fail, so it
	// must be surfaced at startup, not retried per request.
	ErrSharedSecretMissing = errors.New("registration shared secret is missing")

	// ErrSharedSecretTooShort is returned when the configured secret is
	// below the enforced minimum byte length.
	ErrSharedSecretTooShort = errors.New("registration shared secret is too short")
)
