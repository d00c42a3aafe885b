package bridge

import "strings"

type syncRequest struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
}

type syncResponse struct {
	MessagingID string `json:"matrix_user_id"`
	Username    string `json:"username"`
	Created     bool   `json:"created"`
}

type tokenResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	DeviceID    string `json:"device_id"`
}

func normalizeSyncRequest(req syncRequest) (syncRequest, bool) {
	req.AccountID = strings.TrimSpace(req.AccountID)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.AccountID == "" || req.Email == "" {
		return syncRequest{}, false
	}
	return req, true
}
