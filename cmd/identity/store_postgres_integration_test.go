package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crabba/cmd/identity/ids"
)

// Integration tests are opt-in and require CRABBA_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_UpsertIdentity_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyBridgeSchema(t, pool, schema)

	s := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.UpsertIdentity(ctx, "acct-1", "@alice:crabba.net", "alice"); err != nil {
		t.Fatalf("upsert identity 1: %v", err)
	}

	// Same username (case-insensitive) held by another account should conflict.
	err := s.UpsertIdentity(ctx, "acct-2", "@alice:crabba.net", "ALICE")
	if err == nil {
		t.Fatalf("expected conflict, got nil")
	}
	if !IsUsernameConflict(err) {
		t.Fatalf("expected username conflict error, got: %v", err)
	}
}

func TestPostgresStore_UpsertIdentity_SameAccountRebinds(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyBridgeSchema(t, pool, schema)

	s := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.UpsertIdentity(ctx, "acct-1", "@bob:localhost", "bob"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Stale-domain migration rewrites the row in place.
	if err := s.UpsertIdentity(ctx, "acct-1", "@bob:crabba.net", "bob"); err != nil {
		t.Fatalf("rebind: %v", err)
	}

	rec, err := s.GetIdentity(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get identity: %v", err)
	}
	if rec.MessagingID != "@bob:crabba.net" {
		t.Fatalf("messaging id not migrated: %q", rec.MessagingID)
	}
}

func TestPostgresStore_Credentials_RoundTrip(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyBridgeSchema(t, pool, schema)

	s := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.GetCredential(ctx, "acct-1"); !IsNotFound(err) {
		t.Fatalf("expected not found before insert, got %v", err)
	}

	secret, err := NewAccountSecret()
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	if err := s.UpsertCredential(ctx, "acct-1", secret); err != nil {
		t.Fatalf("upsert credential: %v", err)
	}

	cred, err := s.GetCredential(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if cred.Secret != secret {
		t.Fatalf("secret round trip mismatch")
	}
}

func TestPostgresStore_GetIdentity_NotFound(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyBridgeSchema(t, pool, schema)

	s := mustNewStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.GetIdentity(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// ---- helpers ----

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("CRABBA_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: CRABBA_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse CRABBA_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (CRABBA_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "crabba_it_" + strings.ToLower(mustNewULID(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgxIdent1(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgxIdent1(schema)+` CASCADE`)
}

func mustApplyBridgeSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	profiles := pgIdent2(schema, "profiles")
	creds := pgIdent2(schema, "matrix_credentials")

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  account_id TEXT PRIMARY KEY,
  matrix_user_id TEXT NOT NULL,
  username TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_profiles_username ON %s (lower(username));

CREATE TABLE IF NOT EXISTS %s (
  account_id TEXT PRIMARY KEY,
  matrix_password TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`, profiles, profiles, creds)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func mustNewStore(t *testing.T, pool *pgxpool.Pool, schema string) *PostgresStore {
	t.Helper()

	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustNewULID(t *testing.T) string {
	t.Helper()

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func pgxIdent1(ident string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection in dynamic DDL.
	return pgx.Identifier{ident}.Sanitize()
}

func pgIdent2(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}
