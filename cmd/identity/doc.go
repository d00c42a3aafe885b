// Package identity implements Crabba's messaging-identity foundation.
//
// It contains the localpart rules for Matrix user IDs, the generator
// for homeserver account secrets, and the store that links external
// accounts to their provisioned messaging identities and credentials.
//
// This package is intentionally dependency-light and security-first.
package identity
