package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Every write is a single-statement upsert keyed by account_id, so concurrent
//   duplicate provisioning converges instead of racing.
// - Unique violations are mapped to identity sentinel kinds.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "crabba").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "crabba",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table(name string) string {
	return fmt.Sprintf("%q.%q", s.schema, name)
}

// UpsertIdentity creates or replaces the account→messaging identity link.
// A username held by a different account surfaces as ConflictError{Field: "username"}.
func (s *PostgresStore) UpsertIdentity(ctx context.Context, accountID, messagingID, username string) error {
	const op = "identity.UpsertIdentity"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "account id is required"}
	}
	if messagingID == "" || username == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "messaging id and username are required"}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, matrix_user_id, username, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (account_id) DO UPDATE SET
			matrix_user_id = EXCLUDED.matrix_user_id,
			username = EXCLUDED.username,
			updated_at = now()
	`, s.table("profiles"))

	if _, err := s.pool.Exec(ctx, query, accountID, messagingID, username); err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return ConflictError{Op: op, Field: field}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertCredential creates or replaces the stored homeserver secret for an account.
func (s *PostgresStore) UpsertCredential(ctx context.Context, accountID, secret string) error {
	const op = "identity.UpsertCredential"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "account id is required"}
	}
	if secret == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "secret is required"}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, matrix_password, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (account_id) DO UPDATE SET
			matrix_password = EXCLUDED.matrix_password,
			updated_at = now()
	`, s.table("matrix_credentials"))

	if _, err := s.pool.Exec(ctx, query, accountID, secret); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetIdentity returns the identity record for an account, or ErrNotFound.
func (s *PostgresStore) GetIdentity(ctx context.Context, accountID string) (Record, error) {
	const op = "identity.GetIdentity"

	if s == nil || s.pool == nil {
		return Record{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	query := fmt.Sprintf(`
		SELECT account_id, matrix_user_id, username, updated_at
		FROM %s
		WHERE account_id = $1
	`, s.table("profiles"))

	var rec Record
	err := s.pool.QueryRow(ctx, query, accountID).Scan(
		&rec.AccountID, &rec.MessagingID, &rec.Username, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, NotFoundError{Op: op, Resource: "profile"}
		}
		return Record{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetCredential returns the stored homeserver secret for an account, or ErrNotFound.
func (s *PostgresStore) GetCredential(ctx context.Context, accountID string) (Credential, error) {
	const op = "identity.GetCredential"

	if s == nil || s.pool == nil {
		return Credential{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	query := fmt.Sprintf(`
		SELECT account_id, matrix_password, updated_at
		FROM %s
		WHERE account_id = $1
	`, s.table("matrix_credentials"))

	var cred Credential
	err := s.pool.QueryRow(ctx, query, accountID).Scan(
		&cred.AccountID, &cred.Secret, &cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, NotFoundError{Op: op, Resource: "credential"}
		}
		return Credential{}, fmt.Errorf("%s: %w", op, err)
	}
	return cred, nil
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names. Fall back to heuristic substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_profiles_username":
		return "username", true
	case "profiles_pkey":
		return "account_id", true
	default:
		if strings.Contains(c, "username") {
			return "username", true
		}
		return "unique", true
	}
}
