package homeserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResetUserPassword(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotBody map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/_synapse/admin/v2/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	err := c.ResetUserPassword(context.Background(), "syt_admin", "@alice:example.org", "newpw", false)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}

	if gotAuth != "Bearer syt_admin" {
		t.Fatalf("authorization=%q", gotAuth)
	}
	if gotPath != "/_synapse/admin/v2/users/@alice:example.org" {
		t.Fatalf("path=%q", gotPath)
	}
	if gotBody["password"] != "newpw" {
		t.Fatalf("password=%v", gotBody["password"])
	}
	if gotBody["logout_devices"] != false {
		t.Fatalf("logout_devices=%v", gotBody["logout_devices"])
	}
}

func TestResetUserPassword_RequiresAdminToken(t *testing.T) {
	c := newTestClient(t, "http://localhost:0")
	if err := c.ResetUserPassword(context.Background(), "", "@a:b", "pw", false); err == nil {
		t.Fatalf("expected error for missing admin token")
	}
}
