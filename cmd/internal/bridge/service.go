package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"crabba/cmd/identity"
	"crabba/cmd/internal/homeserver"
)

// Homeserver is the slice of the Matrix client the bridge needs.
// *homeserver.Client satisfies it.
type Homeserver interface {
	RegisterSharedSecret(ctx context.Context, localpart, secret string, sharedSecret []byte) (homeserver.RegisterResult, error)
	LoginPassword(ctx context.Context, userID, password string) (homeserver.LoginResult, error)
	ResetUserPassword(ctx context.Context, adminToken, userID, newPassword string, logoutDevices bool) error
}

// Service orchestrates provisioning and token exchange over the
// identity store and the homeserver client.
type Service struct {
	log          *slog.Logger
	cfg          Config
	store        identity.Store
	hs           Homeserver
	sharedSecret []byte
}

// NewService wires a bridge service. sharedSecret is the Synapse
// registration shared secret and must not be empty.
func NewService(log *slog.Logger, cfg Config, store identity.Store, hs Homeserver, sharedSecret []byte) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		log:          log.With("component", "bridge"),
		cfg:          cfg,
		store:        store,
		hs:           hs,
		sharedSecret: sharedSecret,
	}
}

// ProvisionInput identifies the external account to provision.
// RequestedUsername is optional; when empty the localpart is derived
// from the email address.
type ProvisionInput struct {
	AccountID         string
	Email             string
	RequestedUsername string
}

// ProvisionResult reports the identity that now exists for the
// account. Created is false when the homeserver already knew the
// user and registration was skipped.
type ProvisionResult struct {
	MessagingID string
	Username    string
	Created     bool
}

// Provision ensures the account has a Matrix identity: it registers
// the user on the homeserver (tolerating "already exists"), binds the
// identity to the account, and resolves the stored credential so a
// later login can succeed.
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (ProvisionResult, error) {
	localpart, err := s.resolveLocalpart(in)
	if err != nil {
		provisionTotal.WithLabelValues(outcomeInvalidUsername).Inc()
		return ProvisionResult{}, err
	}

	secret, err := identity.NewAccountSecret()
	if err != nil {
		provisionTotal.WithLabelValues(outcomeFailed).Inc()
		return ProvisionResult{}, fmt.Errorf("%w: %v", ErrProvisionFailed, err)
	}

	reg, err := s.hs.RegisterSharedSecret(ctx, localpart, secret, s.sharedSecret)
	if err != nil {
		provisionTotal.WithLabelValues(outcomeFailed).Inc()
		return ProvisionResult{}, fmt.Errorf("%w: register %q: %v", ErrProvisionFailed, localpart, err)
	}

	messagingID := identity.FormatUserID(localpart, s.cfg.serverDomain())
	if err := s.store.UpsertIdentity(ctx, in.AccountID, messagingID, localpart); err != nil {
		if identity.IsUsernameConflict(err) {
			provisionTotal.WithLabelValues(outcomeUsernameTaken).Inc()
			return ProvisionResult{}, fmt.Errorf("%w: %q", ErrUsernameTaken, localpart)
		}
		provisionTotal.WithLabelValues(outcomeFailed).Inc()
		return ProvisionResult{}, fmt.Errorf("%w: store identity: %v", ErrProvisionFailed, err)
	}

	if err := s.resolveCredential(ctx, in.AccountID, messagingID, secret, reg.Created); err != nil {
		provisionTotal.WithLabelValues(outcomeFailed).Inc()
		return ProvisionResult{}, fmt.Errorf("%w: store credential: %v", ErrProvisionFailed, err)
	}

	if reg.Created {
		provisionTotal.WithLabelValues(outcomeCreated).Inc()
		s.log.Info("identity provisioned",
			"account_id", in.AccountID, "messaging_id", messagingID)
	} else {
		provisionTotal.WithLabelValues(outcomeAlreadyExisted).Inc()
		s.log.Info("identity relinked",
			"account_id", in.AccountID, "messaging_id", messagingID)
	}

	return ProvisionResult{
		MessagingID: messagingID,
		Username:    localpart,
		Created:     reg.Created,
	}, nil
}

func (s *Service) resolveLocalpart(in ProvisionInput) (string, error) {
	var localpart string
	if in.RequestedUsername != "" {
		localpart = identity.SanitizeLocalpart(in.RequestedUsername)
	} else {
		localpart = identity.LocalpartFromEmail(in.Email)
	}
	if err := identity.ValidateLocalpart(localpart); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}
	return localpart, nil
}

// resolveCredential decides what secret ends up in the store.
//
// A freshly registered user verifiably holds the new secret, so it is
// stored. When the user already existed the new secret was never set
// on the homeserver: with an admin token the password is reset to the
// new secret first; otherwise an existing stored credential is kept as
// is, and only if none exists is the unverified secret stored so the
// next login can fail loudly instead of silently.
func (s *Service) resolveCredential(ctx context.Context, accountID, messagingID, secret string, created bool) error {
	if created {
		return s.store.UpsertCredential(ctx, accountID, secret)
	}

	if s.cfg.AdminToken != "" {
		err := s.hs.ResetUserPassword(ctx, s.cfg.AdminToken, messagingID, secret, false)
		if err == nil {
			return s.store.UpsertCredential(ctx, accountID, secret)
		}
		s.log.Warn("admin password reset failed, falling back",
			"messaging_id", messagingID, "error", err)
	}

	_, err := s.store.GetCredential(ctx, accountID)
	if err == nil {
		return nil
	}
	if !identity.IsNotFound(err) {
		return err
	}

	s.log.Warn("storing unverified credential for pre-existing user",
		"account_id", accountID, "messaging_id", messagingID)
	return s.store.UpsertCredential(ctx, accountID, secret)
}

// TokenResult is a successful homeserver login on behalf of the
// account.
type TokenResult struct {
	MessagingID string
	AccessToken string
	DeviceID    string
}

// ExchangeToken logs the account's Matrix identity in with its stored
// credential and returns the access token. A missing identity, an
// identity on a stale domain, or a missing credential is healed by a
// single re-provision when auto-provisioning is enabled; the heal is
// never retried within one call.
func (s *Service) ExchangeToken(ctx context.Context, accountID, email string) (TokenResult, error) {
	messagingID, username, healed, err := s.currentIdentity(ctx, accountID, email)
	if err != nil {
		exchangeTotal.WithLabelValues(outcomeNotFound).Inc()
		return TokenResult{}, err
	}

	cred, err := s.store.GetCredential(ctx, accountID)
	if identity.IsNotFound(err) && !healed && s.cfg.AutoProvision {
		// Identity exists but its secret was lost. One heal re-runs
		// the provisioning path, which resolves the credential.
		if _, err := s.heal(ctx, accountID, email, username); err != nil {
			exchangeTotal.WithLabelValues(outcomeFailed).Inc()
			return TokenResult{}, err
		}
		cred, err = s.store.GetCredential(ctx, accountID)
	}
	if err != nil {
		if identity.IsNotFound(err) {
			exchangeTotal.WithLabelValues(outcomeNotFound).Inc()
			return TokenResult{}, fmt.Errorf("%w: no credential for %q", ErrIdentityNotFound, accountID)
		}
		exchangeTotal.WithLabelValues(outcomeFailed).Inc()
		return TokenResult{}, fmt.Errorf("load credential: %w", err)
	}

	login, err := s.hs.LoginPassword(ctx, messagingID, cred.Secret)
	if err != nil {
		if homeserver.IsAuthRejected(err) {
			exchangeTotal.WithLabelValues(outcomeAuthRejected).Inc()
			s.log.Error("homeserver rejected stored credential",
				"account_id", accountID, "messaging_id", messagingID)
			return TokenResult{}, fmt.Errorf("%w: %v", ErrUpstreamAuth, err)
		}
		exchangeTotal.WithLabelValues(outcomeFailed).Inc()
		return TokenResult{}, fmt.Errorf("homeserver login: %w", err)
	}

	exchangeTotal.WithLabelValues(outcomeSuccess).Inc()
	return TokenResult{
		MessagingID: login.UserID,
		AccessToken: login.AccessToken,
		DeviceID:    login.DeviceID,
	}, nil
}

// currentIdentity loads the account's identity, re-provisioning it at
// most once when it is missing or parked on a stale domain. The
// returned healed flag tells the caller the one allowed heal is spent.
func (s *Service) currentIdentity(ctx context.Context, accountID, email string) (messagingID, username string, healed bool, err error) {
	rec, err := s.store.GetIdentity(ctx, accountID)
	switch {
	case err == nil:
		local, domain, splitErr := identity.SplitUserID(rec.MessagingID)
		if splitErr == nil && !s.cfg.isStaleDomain(domain) {
			return rec.MessagingID, local, false, nil
		}
		if !s.cfg.AutoProvision {
			return "", "", false, fmt.Errorf("%w: identity for %q is stale", ErrIdentityNotFound, accountID)
		}
		s.log.Info("migrating stale identity",
			"account_id", accountID, "messaging_id", rec.MessagingID)
		res, healErr := s.heal(ctx, accountID, email, rec.Username)
		if healErr != nil {
			return "", "", false, healErr
		}
		return res.MessagingID, res.Username, true, nil

	case identity.IsNotFound(err):
		if !s.cfg.AutoProvision {
			return "", "", false, fmt.Errorf("%w: account %q", ErrIdentityNotFound, accountID)
		}
		res, healErr := s.heal(ctx, accountID, email, "")
		if healErr != nil {
			return "", "", false, healErr
		}
		return res.MessagingID, res.Username, true, nil

	default:
		return "", "", false, fmt.Errorf("load identity: %w", err)
	}
}

func (s *Service) heal(ctx context.Context, accountID, email, username string) (ProvisionResult, error) {
	healTotal.Inc()
	res, err := s.Provision(ctx, ProvisionInput{
		AccountID:         accountID,
		Email:             email,
		RequestedUsername: username,
	})
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("re-provision: %w", err)
	}
	return res, nil
}
