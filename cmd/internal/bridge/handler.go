package bridge

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"crabba/cmd/internal/auth/session"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler exposes the bridge over HTTP:
//
//	POST /auth/sync   provision an identity for an account
//	GET  /auth/token  exchange a verified session for an access token
type Handler struct {
	log      *slog.Logger
	cfg      Config
	svc      *Service
	sessions *session.Verifier

	pool *pgxpool.Pool
}

// NewHandler constructs the HTTP layer. pool is used for audit
// logging only and may be nil.
func NewHandler(log *slog.Logger, cfg Config, svc *Service, sessions *session.Verifier, pool *pgxpool.Pool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		pool:     pool,
	}
}

// Register wires bridge routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/sync", h.handleSync)
	mux.HandleFunc("/auth/token", h.handleToken)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.syncKeyOK(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid sync key")
		return
	}

	var req syncRequest
	if err := decodeJSON(w, r, h.cfg.maxBodyBytes(), &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	req, ok := normalizeSyncRequest(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "account_id and email are required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	res, err := h.svc.Provision(ctx, ProvisionInput{
		AccountID:         req.AccountID,
		Email:             req.Email,
		RequestedUsername: req.Username,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidUsername):
			h.auditProvisionFailed(ctx, req.AccountID, ip, ua, "invalid_username")
			writeError(w, http.StatusBadRequest, "invalid_username", "username cannot be made into a valid identity")
		case errors.Is(err, ErrUsernameTaken):
			h.auditProvisionFailed(ctx, req.AccountID, ip, ua, "username_taken")
			writeError(w, http.StatusConflict, "username_taken", "username is bound to another account")
		default:
			h.log.Error("bridge.provision.fail", "err", err, "account_id", req.AccountID)
			h.auditProvisionFailed(ctx, req.AccountID, ip, ua, "internal")
			writeError(w, http.StatusInternalServerError, "provision_failed", "could not provision identity")
		}
		return
	}

	h.auditProvisioned(ctx, req.AccountID, res.MessagingID, res.Created, ip, ua)
	writeJSON(w, http.StatusOK, syncResponse{
		MessagingID: res.MessagingID,
		Username:    res.Username,
		Created:     res.Created,
	})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.sessions.VerifyRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "valid session required")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	res, err := h.svc.ExchangeToken(ctx, claims.AccountID, claims.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrIdentityNotFound):
			h.auditTokenFailed(ctx, claims.AccountID, ip, ua, "identity_not_found")
			writeError(w, http.StatusNotFound, "identity_not_found", "no messaging identity for this account")
		case errors.Is(err, ErrUpstreamAuth):
			h.auditTokenFailed(ctx, claims.AccountID, ip, ua, "auth_rejected")
			writeError(w, http.StatusBadGateway, "upstream_auth_failed", "homeserver rejected stored credentials")
		case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrUsernameTaken):
			h.auditTokenFailed(ctx, claims.AccountID, ip, ua, "heal_conflict")
			writeError(w, http.StatusConflict, "identity_conflict", "identity could not be re-provisioned")
		default:
			h.log.Error("bridge.token.fail", "err", err, "account_id", claims.AccountID)
			h.auditTokenFailed(ctx, claims.AccountID, ip, ua, "internal")
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditTokenIssued(ctx, claims.AccountID, res.MessagingID, ip, ua)
	writeJSON(w, http.StatusOK, tokenResponse{
		UserID:      res.MessagingID,
		AccessToken: res.AccessToken,
		DeviceID:    res.DeviceID,
	})
}

func (h *Handler) syncKeyOK(r *http.Request) bool {
	if h.cfg.SyncKey == "" {
		return true
	}
	got := r.Header.Get("X-Sync-Key")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.SyncKey)) == 1
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
