package enterprise

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"clauselens.org/internal/billing"
	"clauselens.org/internal/ids"
	"clauselens.org/internal/notify"
	"clauselens.org/internal/obs"
)

const inviteTTL = 7 * 24 * time.Hour

// AuditRecorder appends best-effort audit entries. Implementations must never
// fail the triggering operation.
type AuditRecorder interface {
	Record(ctx context.Context, actor *User, action, resourceType, resourceID, details string)
}

// Service implements the organization, sharing and subscription lifecycles.
// External collaborators are injected; none of them is a process singleton.
type Service struct {
	store     Store
	gateway   billing.Gateway
	sender    notify.Sender
	recorder  AuditRecorder
	clientURL string
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the enterprise service. clientURL is the web frontend
// base used for checkout redirect links.
func NewService(store Store, gateway billing.Gateway, sender notify.Sender, recorder AuditRecorder, clientURL string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("enterprise: store is required")
	}
	if gateway == nil {
		return nil, errors.New("enterprise: billing gateway is required")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	svc := &Service{
		store:     store,
		gateway:   gateway,
		sender:    sender,
		recorder:  recorder,
		clientURL: strings.TrimSuffix(clientURL, "/"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *User, string, string, string, string) {}

// CreateOrganizationInput carries the founding request fields.
type CreateOrganizationInput struct {
	Name         string
	Domain       string
	BillingEmail string
}

// CreateOrganization registers a new tenant, opens its gateway customer
// record and promotes the creating user to admin. The welcome notification is
// best-effort and never rolls back creation.
func (s *Service) CreateOrganization(ctx context.Context, actor *User, in CreateOrganizationInput) (*Organization, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.TrimSpace(strings.ToLower(in.Domain))
	in.BillingEmail = strings.TrimSpace(strings.ToLower(in.BillingEmail))
	if in.Name == "" || in.Domain == "" || in.BillingEmail == "" {
		return nil, fmt.Errorf("%w: organization name, domain and billing email are required", ErrInvalidInput)
	}

	if _, err := s.store.Organizations(ctx).FindByDomain(ctx, in.Domain); err == nil {
		return nil, fmt.Errorf("%w: organization with this domain already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	customer, err := s.gateway.CreateCustomer(ctx, in.BillingEmail, in.Name, map[string]string{
		"organizationType": "enterprise",
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway customer: %w", err)
	}

	org := &Organization{
		Name:         in.Name,
		Domain:       in.Domain,
		PlanType:     PlanBasic,
		MaxUsers:     DefaultMaxUsers,
		Features:     BaseFeatures(),
		BillingEmail: in.BillingEmail,
		CustomerID:   customer.ID,
		Admins:       []string{actor.ID},
		TeamSettings: DefaultTeamSettings(),
	}
	if err := s.store.Organizations(ctx).Create(ctx, org); err != nil {
		return nil, err
	}

	role := RoleAdmin
	isEnterprise := true
	isPremium := true
	admin, err := s.store.Users(ctx).Update(ctx, actor.ID, UserUpdate{
		OrganizationID: &org.ID,
		Role:           &role,
		IsEnterprise:   &isEnterprise,
		IsPremium:      &isPremium,
		Permissions:    AdminPermissions,
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, admin, "organization_created", ResourceOrganization, org.ID,
		fmt.Sprintf("Organization %q created", org.Name))

	s.sendQuietly(ctx, "enterprise_welcome", func(ctx context.Context) error {
		return s.sender.SendEnterpriseWelcome(ctx, admin.Email, admin.DisplayName, org.Name)
	})

	return org, nil
}

// InviteMember adds an existing account to the organization or creates an
// invite placeholder. Caller must be an admin or manager; the seat limit is
// checked read-then-write, so concurrent invites can transiently exceed it.
func (s *Service) InviteMember(ctx context.Context, actor *User, email, role string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	role = strings.TrimSpace(strings.ToLower(role))
	if email == "" || role == "" {
		return nil, fmt.Errorf("%w: email and role are required", ErrInvalidInput)
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unsupported role %s", ErrInvalidInput, role)
	}
	if !actor.IsOrgManager() {
		return nil, fmt.Errorf("%w: only admins and managers can invite team members", ErrUnauthorized)
	}

	org, err := s.store.Organizations(ctx).Find(ctx, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Users(ctx).CountByOrg(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if current >= org.MaxUsers {
		return nil, ErrSeatLimit
	}

	token, err := ids.NewInviteToken()
	if err != nil {
		return nil, err
	}
	expires := s.now().UTC().Add(inviteTTL)

	users := s.store.Users(ctx)
	invited, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		isEnterprise := true
		invited, err = users.Update(ctx, invited.ID, UserUpdate{
			OrganizationID: &org.ID,
			Role:           &role,
			IsEnterprise:   &isEnterprise,
			InvitedBy:      &actor.ID,
			InviteToken:    &token,
			InviteExpires:  &expires,
		})
		if err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
		placeholderID, err := ids.NewPlaceholderID()
		if err != nil {
			return nil, err
		}
		invited = &User{
			Email:          email,
			DisplayName:    displayNameFromEmail(email),
			ProviderID:     placeholderID,
			OrganizationID: org.ID,
			Role:           role,
			IsEnterprise:   true,
			InvitedBy:      actor.ID,
			InviteToken:    token,
			InviteExpires:  &expires,
		}
		if err := users.Create(ctx, invited); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.recorder.Record(ctx, actor, "user_invited", ResourceUser, invited.ID,
		fmt.Sprintf("User %s invited with role %s", email, role))

	s.sendQuietly(ctx, "enterprise_invite", func(ctx context.Context) error {
		return s.sender.SendEnterpriseInvite(ctx, email, org.Name, actor.DisplayName, token, role)
	})

	return invited, nil
}

// AcceptInvite redeems an invite token, activating the account's enterprise
// membership and clearing the token.
func (s *Service) AcceptInvite(ctx context.Context, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: invite token is required", ErrInvalidInput)
	}
	user, err := s.store.Users(ctx).FindByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid or expired invite token", ErrInvalidInput)
		}
		return nil, err
	}
	if user.InviteExpires == nil || s.now().After(*user.InviteExpires) {
		return nil, fmt.Errorf("%w: invalid or expired invite token", ErrInvalidInput)
	}

	isEnterprise := true
	user, err = s.store.Users(ctx).Update(ctx, user.ID, UserUpdate{
		IsEnterprise: &isEnterprise,
		ClearInvite:  true,
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, user, "invite_accepted", ResourceUser, user.ID,
		fmt.Sprintf("User %s accepted invitation", user.Email))
	return user, nil
}

// UpdateSettings replaces the organization's team settings wholesale.
// Admin-only; no partial-merge semantics.
func (s *Service) UpdateSettings(ctx context.Context, actor *User, settings TeamSettings) (*Organization, error) {
	if !actor.IsOrgAdmin() {
		return nil, fmt.Errorf("%w: only admin users can update organization settings", ErrUnauthorized)
	}
	org, err := s.store.Organizations(ctx).Update(ctx, actor.OrganizationID, OrganizationUpdate{
		TeamSettings: &settings,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, actor, "settings_updated", ResourceSettings, org.ID,
		"Organization settings replaced")
	return org, nil
}

// Organization returns the caller's organization record.
func (s *Service) Organization(ctx context.Context, actor *User) (*Organization, error) {
	if actor.OrganizationID == "" {
		return nil, fmt.Errorf("%w: user is not associated with any organization", ErrNotFound)
	}
	return s.store.Organizations(ctx).Find(ctx, actor.OrganizationID)
}

// AuditTrail returns the newest audit entries for the caller's organization.
// Admin-only.
func (s *Service) AuditTrail(ctx context.Context, actor *User, limit int) ([]*AuditEntry, error) {
	if !actor.IsOrgAdmin() {
		return nil, fmt.Errorf("%w: only admin users can read the audit trail", ErrUnauthorized)
	}
	if limit <= 0 {
		limit = 100
	}
	return s.store.Audit(ctx).ListByOrg(ctx, actor.OrganizationID, limit)
}

// sendQuietly runs a notification send, logging and counting the outcome
// without ever propagating an error.
func (s *Service) sendQuietly(ctx context.Context, template string, fn func(context.Context) error) {
	if s.sender == nil {
		return
	}
	if err := fn(ctx); err != nil {
		obs.ObserveNotification(template, "error")
		obs.LogError("notification send failed", err, map[string]any{"template": template})
		return
	}
	obs.ObserveNotification(template, "ok")
}

func displayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
