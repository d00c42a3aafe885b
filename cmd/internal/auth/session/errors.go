package session

import "errors"

var (
	// ErrNoSession is returned when the request carries no session
	// credential at all (no bearer token, no session cookie).
	ErrNoSession = errors.New("no active session")

	// ErrInvalidSession is returned when a presented credential fails
	// verification (bad signature, expired, malformed claims).
	ErrInvalidSession = errors.New("invalid session")

	// ErrConfig is returned for invalid verifier configuration.
	ErrConfig = errors.New("invalid session verifier config")
)
