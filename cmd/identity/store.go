package identity

import (
	"context"
	"time"
)

// Record links an external account to its provisioned messaging identity.
type Record struct {
	AccountID   string
	MessagingID string // fully qualified: @localpart:domain
	Username    string // public handle, unique across all records
	UpdatedAt   time.Time
}

// Credential is the generated homeserver password for an account.
// It is stored separately from Record so the two tables can be granted
// to different roles (least privilege: the credential is only ever read
// server-side to mint tokens).
type Credential struct {
	AccountID string
	Secret    string
	UpdatedAt time.Time
}

// Store is the identity/credential persistence boundary.
//
// All writes are keyed by account ID with insert-or-update semantics:
// a single atomic round trip per record, safe under concurrent
// duplicate requests. Username uniqueness is enforced by the storage
// layer itself (not check-then-insert) so racing claims for the same
// handle have exactly one winner; the loser sees a ConflictError with
// Field "username".
type Store interface {
	// UpsertIdentity creates or replaces the identity link for accountID.
	UpsertIdentity(ctx context.Context, accountID, messagingID, username string) error

	// UpsertCredential creates or replaces the stored homeserver secret.
	UpsertCredential(ctx context.Context, accountID, secret string) error

	// GetIdentity returns the identity record, or ErrNotFound.
	GetIdentity(ctx context.Context, accountID string) (Record, error)

	// GetCredential returns the stored secret, or ErrNotFound.
	GetCredential(ctx context.Context, accountID string) (Credential, error)
}
