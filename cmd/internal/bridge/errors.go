package bridge

import "errors"

// Sentinel failures of the two bridge operations. Handlers translate
// these into HTTP statuses; everything else surfaces as an internal
// error.
var (
	// ErrInvalidUsername means the requested or derived localpart
	// cannot be made into a legal Matrix localpart.
	ErrInvalidUsername = errors.New("bridge: invalid username")

	// ErrUsernameTaken means the username is already bound to a
	// different account.
	ErrUsernameTaken = errors.New("bridge: username taken")

	// ErrProvisionFailed means registration or the identity write
	// failed for a reason the caller cannot fix.
	ErrProvisionFailed = errors.New("bridge: provisioning failed")

	// ErrIdentityNotFound means no usable identity exists for the
	// account and auto-provisioning is disabled or already spent.
	ErrIdentityNotFound = errors.New("bridge: identity not found")

	// ErrUpstreamAuth means the homeserver rejected the stored
	// credential at login.
	ErrUpstreamAuth = errors.New("bridge: homeserver rejected credentials")
)
