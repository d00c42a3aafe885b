// Package bridge implements the identity bridge: it links external
// auth accounts to auto-provisioned Matrix identities and exchanges
// verified sessions for homeserver access tokens.
//
// The bridge is stateless per request. The only persistent state is
// the identity/credential store; the two public operations are safe
// under concurrent duplicate invocations because every write is an
// idempotent keyed upsert and "already registered" on the homeserver
// is a tolerated terminal state.
package bridge
