package app

import (
	"errors"
	"fmt"

	"crabba/cmd/security/regmac"
)

// minSharedSecretBytes is deliberately conservative; Synapse generates
// much longer registration secrets by default.
const minSharedSecretBytes = 16

// minSessionSecretBytes matches the HMAC-SHA256 key size used for
// session JWTs.
const minSessionSecretBytes = 32

// ValidateSecurityConfig enforces startup security policy.
//
// Fail-fast is intentional: a bridge that silently runs without its
// registration secret would accept provisioning calls and fail every
// one of them.
func ValidateSecurityConfig(cfg Config) error {
	if cfg.HomeserverURL == "" {
		return errors.New("security policy: CRABBA_MATRIX_HOMESERVER_URL (or legacy CRABBA_MATRIX_BASE_URL) is required")
	}

	if _, err := regmac.SharedSecretFromEnv(minSharedSecretBytes); err != nil {
		switch {
		case errors.Is(err, regmac.ErrSharedSecretMissing):
			return fmt.Errorf("security policy: %s is missing", regmac.SharedSecretEnvKey)
		case errors.Is(err, regmac.ErrSharedSecretTooShort):
			return fmt.Errorf("security policy: %s is too short (min %d bytes)", regmac.SharedSecretEnvKey, minSharedSecretBytes)
		default:
			return err
		}
	}

	if len(cfg.SessionSecret) < minSessionSecretBytes {
		return fmt.Errorf("security policy: CRABBA_SESSION_JWT_SECRET must be at least %d bytes", minSessionSecretBytes)
	}

	return nil
}
