// Package audit appends immutable records of state-changing actions inside an
// organization scope. Writes are best-effort: a failed append is logged and
// discarded, never surfaced to the caller.
package audit

import (
	"context"
	"strings"
	"time"

	"clauselens.org/internal/enterprise"
	"clauselens.org/internal/obs"
)

type ctxKey string

const clientIPKey ctxKey = "audit_client_ip"

// WithClientIP attaches the requester address to the context so audit entries
// can record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext extracts the requester address if present.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(clientIPKey).(string); ok {
		return v
	}
	return ""
}

// Recorder writes AuditLog records for organization members.
type Recorder struct {
	store enterprise.AuditStore
	now   func() time.Time
}

// NewRecorder constructs a Recorder over the given audit store.
func NewRecorder(store enterprise.AuditStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record appends one entry scoped to the actor's organization. It no-ops when
// the actor has no organization (audit logging is an enterprise feature) and
// swallows every persistence error.
func (r *Recorder) Record(ctx context.Context, actor *enterprise.User, action, resourceType, resourceID, details string) {
	if r == nil || r.store == nil {
		return
	}
	if actor == nil || actor.OrganizationID == "" {
		return
	}
	if details == "" {
		details = "User performed " + action + " on " + resourceType
	}
	entry := &enterprise.AuditEntry{
		OrganizationID: actor.OrganizationID,
		UserID:         actor.ID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Details:        details,
		IPAddress:      ClientIPFromContext(ctx),
		OccurredAt:     r.now().UTC(),
	}
	if err := r.store.Append(ctx, entry); err != nil {
		obs.LogError("audit append failed", err, map[string]any{
			"action":          action,
			"organization_id": actor.OrganizationID,
		})
	}
}
