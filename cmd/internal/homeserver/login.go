package homeserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const loginPath = "/_matrix/client/v3/login"

// LoginResult is a homeserver session minted by password login. Expiry
// and revocation semantics are homeserver-defined and opaque here.
type LoginResult struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
}

type loginIdentifier struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type loginRequest struct {
	Type                     string          `json:"type"`
	Identifier               loginIdentifier `json:"identifier"`
	Password                 string          `json:"password"`
	InitialDeviceDisplayName string          `json:"initial_device_display_name"`
}

// LoginPassword performs a password-grant login for a fully qualified
// user ID. A credential rejection surfaces as a *MatrixError for which
// IsAuthRejected reports true — that signals a stored credential out of
// sync with the homeserver, not a transport failure.
func (c *Client) LoginPassword(ctx context.Context, userID, password string) (LoginResult, error) {
	if userID == "" {
		return LoginResult{}, fmt.Errorf("homeserver: user ID is required for login")
	}
	if password == "" {
		return LoginResult{}, fmt.Errorf("homeserver: password is required for login")
	}

	request := loginRequest{
		Type:                     "m.login.password",
		Identifier:               loginIdentifier{Type: "m.id.user", User: userID},
		Password:                 password,
		InitialDeviceDisplayName: c.deviceName,
	}

	body, err := c.doRequest(ctx, http.MethodPost, loginPath, "", request)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login %q: %w", userID, err)
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return LoginResult{}, fmt.Errorf("homeserver: failed to parse login response: %w", err)
	}

	c.logger.Info("homeserver.login.success",
		"user_id", result.UserID,
		"device_id", result.DeviceID,
	)
	return result, nil
}
