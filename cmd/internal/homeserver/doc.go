// Package homeserver is a minimal Matrix homeserver client for the
// identity bridge: shared-secret admin registration, password login,
// and the admin password override.
//
// Error responses from the homeserver all share one JSON shape and are
// surfaced as tagged *MatrixError values so callers match on stable
// error codes (e.g. M_USER_IN_USE) instead of inspecting strings.
package homeserver
