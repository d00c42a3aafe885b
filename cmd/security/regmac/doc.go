// Package regmac computes the keyed MAC required by the homeserver's
// shared-secret registration endpoint.
//
// The byte layout and the SHA-1 HMAC are a wire-format contract with
// Synapse's admin registration protocol; they are not tunable. The
// shared secret itself is operator configuration and is validated
// fail-fast at startup.
package regmac
