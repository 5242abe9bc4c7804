package enterprise

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"clauselens.org/internal/billing"
)

// EventKind classifies a verified webhook event into exactly one variant
// before any processing happens.
type EventKind string

const (
	EventUnhandled                EventKind = "unhandled"
	EventIndividualPayment        EventKind = "individual_payment"
	EventOrganizationSubscription EventKind = "organization_subscription"
)

// ClassifyEvent assigns a verified gateway event to one variant. Organization
// metadata wins over an individual client reference; everything else is
// unhandled.
func ClassifyEvent(ev billing.Event) EventKind {
	switch ev.Type {
	case billing.EventCheckoutCompleted, billing.EventSubscriptionCreated:
	default:
		return EventUnhandled
	}
	if ev.Data.Object.Metadata["organizationId"] != "" {
		return EventOrganizationSubscription
	}
	if ev.Type == billing.EventCheckoutCompleted && ev.Data.Object.ClientReferenceID != "" {
		return EventIndividualPayment
	}
	return EventUnhandled
}

// StartCheckout opens a gateway checkout session for an organization plan.
// Admin-only. The plan tier, organization id and seat limit travel as opaque
// session metadata and come back on the activation webhook.
func (s *Service) StartCheckout(ctx context.Context, actor *User, planType string) (billing.CheckoutSession, error) {
	plan, ok := PlanByType(planType)
	if !ok {
		return billing.CheckoutSession{}, fmt.Errorf("%w: invalid plan type", ErrInvalidInput)
	}
	if !actor.IsOrgAdmin() {
		return billing.CheckoutSession{}, fmt.Errorf("%w: only organization admins can manage subscriptions", ErrUnauthorized)
	}
	org, err := s.store.Organizations(ctx).Find(ctx, actor.OrganizationID)
	if err != nil {
		return billing.CheckoutSession{}, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		Mode:       billing.ModeSubscription,
		CustomerID: org.CustomerID,
		SuccessURL: s.clientURL + "/enterprise-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.clientURL + "/enterprise-cancel",
		LineItems:  []billing.LineItem{{PriceID: plan.PriceID, Quantity: 1}},
		Metadata: map[string]string{
			"organizationId": org.ID,
			"planType":       plan.Type,
			"maxUsers":       strconv.Itoa(plan.MaxUsers),
		},
	})
	if err != nil {
		return billing.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}

	s.recorder.Record(ctx, actor, "subscription_checkout", ResourceOrganization, org.ID,
		fmt.Sprintf("Started %s subscription checkout", plan.Type))

	return session, nil
}

// StartPremiumCheckout opens a one-time lifetime-premium checkout for an
// individual user.
func (s *Service) StartPremiumCheckout(ctx context.Context, actor *User) (billing.CheckoutSession, error) {
	session, err := s.gateway.CreateCheckoutSession(ctx, billing.CheckoutParams{
		Mode:              billing.ModePayment,
		CustomerEmail:     actor.Email,
		ClientReferenceID: actor.ID,
		SuccessURL:        s.clientURL + "/payment-success",
		CancelURL:         s.clientURL + "/payment-cancel",
		LineItems: []billing.LineItem{{
			ProductName: "Lifetime Subscription",
			Currency:    "usd",
			UnitAmount:  1000,
			Quantity:    1,
		}},
	})
	if err != nil {
		return billing.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

// ProcessEvent applies a signature-verified webhook event. Callers ack the
// gateway regardless of the returned error; persistence failures here are
// logged, not retried.
func (s *Service) ProcessEvent(ctx context.Context, ev billing.Event) error {
	switch ClassifyEvent(ev) {
	case EventIndividualPayment:
		return s.activatePremium(ctx, ev)
	case EventOrganizationSubscription:
		return s.activateSubscription(ctx, ev)
	default:
		return nil
	}
}

func (s *Service) activatePremium(ctx context.Context, ev billing.Event) error {
	userID := ev.Data.Object.ClientReferenceID
	isPremium := true
	user, err := s.store.Users(ctx).Update(ctx, userID, UserUpdate{IsPremium: &isPremium})
	if err != nil {
		return fmt.Errorf("activate premium for user %s: %w", userID, err)
	}

	s.sendQuietly(ctx, "premium_confirmation", func(ctx context.Context) error {
		return s.sender.SendPremiumConfirmation(ctx, user.Email, user.DisplayName)
	})
	return nil
}

func (s *Service) activateSubscription(ctx context.Context, ev billing.Event) error {
	object := ev.Data.Object
	orgID := object.Metadata["organizationId"]
	planType := object.Metadata["planType"]

	maxUsers := 10
	if plan, ok := PlanByType(planType); ok {
		maxUsers = plan.MaxUsers
	} else if raw := object.Metadata["maxUsers"]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			maxUsers = parsed
		}
	}
	features := FeaturesByPlan(planType)

	// Checkout sessions reference the subscription; subscription events are
	// the subscription itself.
	subscriptionID := object.Subscription
	if subscriptionID == "" {
		subscriptionID = object.ID
	}
	if subscriptionID == "" {
		return fmt.Errorf("subscription id missing from event %s", ev.ID)
	}

	orgs := s.store.Organizations(ctx)
	org, err := orgs.Find(ctx, orgID)
	if err != nil {
		return fmt.Errorf("activate subscription for organization %s: %w", orgID, err)
	}

	settings := org.TeamSettings
	settings.CustomTemplates = planType != PlanBasic

	if _, err := orgs.Update(ctx, org.ID, OrganizationUpdate{
		PlanType:       &planType,
		MaxUsers:       &maxUsers,
		Features:       features,
		SubscriptionID: &subscriptionID,
		TeamSettings:   &settings,
	}); err != nil {
		return fmt.Errorf("activate subscription for organization %s: %w", orgID, err)
	}

	// Attribute the audit entry to an organization admin; no admin means no
	// entry, but the activation itself stands.
	admin, err := s.store.Users(ctx).FindAdmin(ctx, orgID)
	switch {
	case err == nil:
		s.recorder.Record(ctx, admin, "subscription_activated", ResourceOrganization, orgID,
			fmt.Sprintf("%s subscription activated", planType))
	case errors.Is(err, ErrNotFound):
	default:
		return err
	}
	return nil
}

// PremiumStatus reports the caller's premium classification.
func (s *Service) PremiumStatus(actor *User) string {
	if actor != nil && actor.IsPremium {
		return "active"
	}
	return "inactive"
}
