package bridge

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	"crabba/cmd/identity/ids"
)

func (h *Handler) auditProvisioned(ctx context.Context, accountID, messagingID string, created bool, ip net.IP, ua string) {
	h.insertAudit(ctx, "bridge.provision.ok", accountID, ip, ua, map[string]any{
		"matrix_user_id": messagingID,
		"created":        created,
	})
}

func (h *Handler) auditProvisionFailed(ctx context.Context, accountID string, ip net.IP, ua string, reason string) {
	h.insertAudit(ctx, "bridge.provision.fail", accountID, ip, ua, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditTokenIssued(ctx context.Context, accountID, messagingID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "bridge.token.ok", accountID, ip, ua, map[string]any{
		"matrix_user_id": messagingID,
	})
}

func (h *Handler) auditTokenFailed(ctx context.Context, accountID string, ip net.IP, ua string, reason string) {
	h.insertAudit(ctx, "bridge.token.fail", accountID, ip, ua, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) insertAudit(ctx context.Context, action, accountID string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	id, err := ids.NewULID(time.Now().UTC())
	if err != nil {
		h.log.Error("bridge.audit.id.fail", "err", err, "action", action)
		return
	}

	_, err = h.pool.Exec(ctx, `
		INSERT INTO crabba.audit_log (
			id, action, account_id, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, now(), $4, $5, $6::jsonb)
	`, id, action, trimOrNil(accountID), ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("bridge.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
