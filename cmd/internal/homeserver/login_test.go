package homeserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginPassword_Success(t *testing.T) {
	var seen loginRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/v3/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&seen); err != nil {
			t.Errorf("decode login request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":      seen.Identifier.User,
			"access_token": "syt_abc123",
			"device_id":    "DEVICEID",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	res, err := c.LoginPassword(context.Background(), "@alice:example.org", "passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if res.AccessToken != "syt_abc123" || res.DeviceID != "DEVICEID" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if seen.Type != "m.login.password" {
		t.Fatalf("login type=%q", seen.Type)
	}
	if seen.Identifier.Type != "m.id.user" || seen.Identifier.User != "@alice:example.org" {
		t.Fatalf("identifier=%+v", seen.Identifier)
	}
	if seen.InitialDeviceDisplayName != "Crabba Web Client" {
		t.Fatalf("device display name=%q", seen.InitialDeviceDisplayName)
	}
}

func TestLoginPassword_RejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/v3/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"errcode": ErrCodeForbidden, "error": "Invalid password",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	_, err := c.LoginPassword(context.Background(), "@alice:example.org", "stale")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsAuthRejected(err) {
		t.Fatalf("expected auth rejection, got %v", err)
	}
}

func TestLoginPassword_RequiresInputs(t *testing.T) {
	c := newTestClient(t, "http://localhost:0")

	if _, err := c.LoginPassword(context.Background(), "", "pw"); err == nil {
		t.Fatalf("expected error for empty user ID")
	}
	if _, err := c.LoginPassword(context.Background(), "@a:b", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestLoginPassword_CustomDeviceName(t *testing.T) {
	var seen loginRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/v3/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "@a:b", "access_token": "t", "device_id": "d"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{HomeserverURL: srv.URL, DeviceDisplayName: "Crabba iOS"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.LoginPassword(context.Background(), "@a:b", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if seen.InitialDeviceDisplayName != "Crabba iOS" {
		t.Fatalf("device display name=%q", seen.InitialDeviceDisplayName)
	}
}
