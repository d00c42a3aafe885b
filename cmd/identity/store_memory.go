package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests. It
// enforces the same uniqueness rules as the Postgres store: one
// identity per account, and a username bound to at most one account
// (case-insensitive).
type MemoryStore struct {
	mu          sync.Mutex
	identities  map[string]Record
	credentials map[string]Credential
	usernames   map[string]string // lower(username) -> account_id
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities:  make(map[string]Record),
		credentials: make(map[string]Credential),
		usernames:   make(map[string]string),
	}
}

func (s *MemoryStore) UpsertIdentity(_ context.Context, accountID, messagingID, username string) error {
	const op = "memory.upsert_identity"
	if accountID == "" || messagingID == "" || username == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty field"}
	}

	key := strings.ToLower(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.usernames[key]; ok && owner != accountID {
		return ConflictError{Op: op, Field: "username"}
	}

	if prev, ok := s.identities[accountID]; ok {
		delete(s.usernames, strings.ToLower(prev.Username))
	}
	s.identities[accountID] = Record{
		AccountID:   accountID,
		MessagingID: messagingID,
		Username:    username,
		UpdatedAt:   time.Now().UTC(),
	}
	s.usernames[key] = accountID
	return nil
}

func (s *MemoryStore) UpsertCredential(_ context.Context, accountID, secret string) error {
	const op = "memory.upsert_credential"
	if accountID == "" || secret == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty field"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[accountID] = Credential{
		AccountID: accountID,
		Secret:    secret,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) GetIdentity(_ context.Context, accountID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.identities[accountID]
	if !ok {
		return Record{}, NotFoundError{Op: "memory.get_identity", Resource: "identity"}
	}
	return rec, nil
}

func (s *MemoryStore) GetCredential(_ context.Context, accountID string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[accountID]
	if !ok {
		return Credential{}, NotFoundError{Op: "memory.get_credential", Resource: "credential"}
	}
	return cred, nil
}

var _ Store = (*MemoryStore)(nil)
