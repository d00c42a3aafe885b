package homeserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ResetUserPassword changes a user's password through the Synapse v2
// user admin endpoint. Requires an admin access token. When
// logoutDevices is false, existing sessions stay valid.
//
// The bridge uses this to re-align a stored credential with the
// homeserver when registration reports the account already exists: the
// shared-secret handshake cannot change an existing password, but an
// admin override can.
func (c *Client) ResetUserPassword(ctx context.Context, adminToken, userID, newPassword string, logoutDevices bool) error {
	if adminToken == "" {
		return fmt.Errorf("homeserver: admin token is required for password reset")
	}
	if userID == "" {
		return fmt.Errorf("homeserver: user ID is required for password reset")
	}

	path := "/_synapse/admin/v2/users/" + url.PathEscape(userID)
	body := map[string]any{
		"password":       newPassword,
		"logout_devices": logoutDevices,
	}

	if _, err := c.doRequest(ctx, http.MethodPut, path, adminToken, body); err != nil {
		return fmt.Errorf("reset password for %q: %w", userID, err)
	}

	c.logger.Info("homeserver.admin.password_reset", "user_id", userID, "logout_devices", logoutDevices)
	return nil
}
