package homeserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"crabba/cmd/security/regmac"
)

// registerPath is Synapse's shared-secret admin registration endpoint.
// The same path serves both steps of the handshake: a GET for the
// one-time nonce and a POST with the signed registration.
const registerPath = "/_synapse/admin/v1/register"

// RegisterResult reports the outcome of a shared-secret registration.
type RegisterResult struct {
	// Created is true when the account was created by this call, and
	// false when the localpart was already registered (tolerated as a
	// non-error terminal state: registration is idempotent from the
	// caller's point of view).
	Created bool
	// UserID is the fully qualified user ID returned by the homeserver
	// on creation; empty when Created is false.
	UserID string
}

type registerRequest struct {
	Nonce    string `json:"nonce"`
	Username string `json:"username"`
	Password string `json:"password"`
	MAC      string `json:"mac"`
	Admin    bool   `json:"admin"`
}

// RegisterSharedSecret creates a non-admin account via the two-step
// shared-secret handshake: fetch a one-time nonce, then POST the
// registration signed with regmac.Sign.
//
// The nonce is single-use, so a failed POST is not retried here — the
// caller may retry the whole two-step sequence.
func (c *Client) RegisterSharedSecret(ctx context.Context, localpart, secret string, sharedSecret []byte) (RegisterResult, error) {
	nonce, err := c.fetchRegistrationNonce(ctx)
	if err != nil {
		return RegisterResult{}, err
	}

	request := registerRequest{
		Nonce:    nonce,
		Username: localpart,
		Password: secret,
		MAC:      regmac.Sign(nonce, localpart, secret, sharedSecret),
		Admin:    false,
	}

	body, err := c.doRequest(ctx, http.MethodPost, registerPath, "", request)
	if err != nil {
		if IsMatrixError(err, ErrCodeUserInUse) {
			c.logger.Info("homeserver.register.already_in_use", "localpart", localpart)
			return RegisterResult{Created: false}, nil
		}
		return RegisterResult{}, fmt.Errorf("register %q: %w", localpart, err)
	}

	var response struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return RegisterResult{}, fmt.Errorf("homeserver: failed to parse register response: %w", err)
	}

	c.logger.Info("homeserver.register.created", "user_id", response.UserID)
	return RegisterResult{Created: true, UserID: response.UserID}, nil
}

func (c *Client) fetchRegistrationNonce(ctx context.Context) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, registerPath, "", nil)
	if err != nil {
		return "", fmt.Errorf("homeserver: fetch registration nonce: %w", err)
	}

	var response struct {
		Nonce string `json:"nonce"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("homeserver: failed to parse nonce response: %w", err)
	}
	if response.Nonce == "" {
		return "", fmt.Errorf("homeserver: nonce response missing nonce")
	}
	return response.Nonce, nil
}
