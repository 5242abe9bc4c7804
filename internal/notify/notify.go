// Package notify sends templated transactional email through the external
// provider. Sends are fire-and-forget from the caller's point of view:
// lifecycle code logs failures and never propagates them.
package notify

import "context"

// Sender delivers the transactional templates used by the enterprise core.
type Sender interface {
	SendEnterpriseWelcome(ctx context.Context, to, userName, orgName string) error
	SendEnterpriseInvite(ctx context.Context, to, orgName, inviterName, token, role string) error
	SendPremiumConfirmation(ctx context.Context, to, userName string) error
}
