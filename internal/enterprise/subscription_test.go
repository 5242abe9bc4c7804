package enterprise

import (
	"context"
	"errors"
	"testing"

	"clauselens.org/internal/billing"
)

func checkoutEvent(eventType string, object billing.EventObject) billing.Event {
	ev := billing.Event{ID: "evt_1", Type: eventType}
	ev.Data.Object = object
	return ev
}

func TestClassifyEvent(t *testing.T) {
	cases := []struct {
		name string
		ev   billing.Event
		want EventKind
	}{
		{
			name: "organization checkout",
			ev: checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
				Metadata: map[string]string{"organizationId": "org-1"},
			}),
			want: EventOrganizationSubscription,
		},
		{
			name: "organization subscription created",
			ev: checkoutEvent(billing.EventSubscriptionCreated, billing.EventObject{
				ID:       "sub_1",
				Metadata: map[string]string{"organizationId": "org-1"},
			}),
			want: EventOrganizationSubscription,
		},
		{
			name: "individual checkout",
			ev: checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
				ClientReferenceID: "user-1",
			}),
			want: EventIndividualPayment,
		},
		{
			name: "organization metadata wins over client reference",
			ev: checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
				ClientReferenceID: "user-1",
				Metadata:          map[string]string{"organizationId": "org-1"},
			}),
			want: EventOrganizationSubscription,
		},
		{
			name: "client reference on subscription event is not individual",
			ev: checkoutEvent(billing.EventSubscriptionCreated, billing.EventObject{
				ClientReferenceID: "user-1",
			}),
			want: EventUnhandled,
		},
		{
			name: "unrelated event type",
			ev: checkoutEvent("invoice.paid", billing.EventObject{
				Metadata: map[string]string{"organizationId": "org-1"},
			}),
			want: EventUnhandled,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyEvent(tc.ev); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStartCheckout(t *testing.T) {
	env := newTestEnv(t)
	admin, org := env.createAdmin(t, "founder@acme.example")

	var captured billing.CheckoutParams
	env.gateway.createSessionFn = func(_ context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
		captured = params
		return billing.CheckoutSession{ID: "cs_sub", URL: "https://checkout.example/cs_sub"}, nil
	}

	session, err := env.svc.StartCheckout(context.Background(), admin, PlanEnterprise)
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if session.ID != "cs_sub" {
		t.Fatalf("unexpected session %+v", session)
	}
	if captured.Mode != billing.ModeSubscription {
		t.Fatalf("expected subscription mode, got %q", captured.Mode)
	}
	if captured.CustomerID != org.CustomerID {
		t.Fatalf("expected customer %q, got %q", org.CustomerID, captured.CustomerID)
	}
	if len(captured.LineItems) != 1 || captured.LineItems[0].PriceID != "price_enterprise_unlimited_monthly" {
		t.Fatalf("unexpected line items %v", captured.LineItems)
	}
	if captured.Metadata["organizationId"] != org.ID || captured.Metadata["planType"] != PlanEnterprise || captured.Metadata["maxUsers"] != "100" {
		t.Fatalf("unexpected metadata %v", captured.Metadata)
	}

	actions := env.recorder.actions()
	if actions[len(actions)-1] != "subscription_checkout" {
		t.Fatalf("expected checkout audit entry, got %v", actions)
	}
}

func TestStartCheckoutValidation(t *testing.T) {
	env := newTestEnv(t)
	admin, org := env.createAdmin(t, "founder@acme.example")

	if _, err := env.svc.StartCheckout(context.Background(), admin, "platinum"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown plan, got %v", err)
	}

	member := env.createUser(t, &User{
		Email:          "member@acme.example",
		OrganizationID: org.ID,
		Role:           RoleMember,
		IsEnterprise:   true,
	})
	if _, err := env.svc.StartCheckout(context.Background(), member, PlanBasic); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for member, got %v", err)
	}
}

func TestStartPremiumCheckout(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, &User{Email: "solo@person.example", DisplayName: "Solo"})

	var captured billing.CheckoutParams
	env.gateway.createSessionFn = func(_ context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
		captured = params
		return billing.CheckoutSession{ID: "cs_pay"}, nil
	}

	if _, err := env.svc.StartPremiumCheckout(context.Background(), user); err != nil {
		t.Fatalf("premium checkout: %v", err)
	}
	if captured.Mode != billing.ModePayment {
		t.Fatalf("expected one-time payment mode, got %q", captured.Mode)
	}
	if captured.ClientReferenceID != user.ID {
		t.Fatalf("expected client reference %q, got %q", user.ID, captured.ClientReferenceID)
	}
	item := captured.LineItems[0]
	if item.ProductName != "Lifetime Subscription" || item.Currency != "usd" || item.UnitAmount != 1000 {
		t.Fatalf("unexpected line item %+v", item)
	}
}

func TestProcessEventActivatesSubscription(t *testing.T) {
	env := newTestEnv(t)
	_, org := env.createAdmin(t, "founder@acme.example")
	ctx := context.Background()

	ev := checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
		ID:           "cs_done",
		Subscription: "sub_123",
		Metadata: map[string]string{
			"organizationId": org.ID,
			"planType":       PlanEnterprise,
			"maxUsers":       "100",
		},
	})
	if err := env.svc.ProcessEvent(ctx, ev); err != nil {
		t.Fatalf("process: %v", err)
	}

	updated, err := env.store.Organizations(ctx).Find(ctx, org.ID)
	if err != nil {
		t.Fatalf("reload org: %v", err)
	}
	if updated.PlanType != PlanEnterprise || updated.MaxUsers != 100 {
		t.Fatalf("unexpected plan %s/%d", updated.PlanType, updated.MaxUsers)
	}
	if updated.SubscriptionID != "sub_123" {
		t.Fatalf("expected subscription id from checkout, got %q", updated.SubscriptionID)
	}
	if len(updated.Features) != 10 {
		t.Fatalf("expected full enterprise feature set, got %v", updated.Features)
	}
	if !updated.TeamSettings.CustomTemplates {
		t.Fatal("expected custom templates enabled for paid tier")
	}
	if updated.TeamSettings.RequireApproval != true {
		t.Fatal("activation must preserve other settings")
	}

	actions := env.recorder.actions()
	if actions[len(actions)-1] != "subscription_activated" {
		t.Fatalf("expected activation audit entry, got %v", actions)
	}
}

func TestProcessEventSubscriptionCreatedUsesObjectID(t *testing.T) {
	env := newTestEnv(t)
	_, org := env.createAdmin(t, "founder@acme.example")
	ctx := context.Background()

	ev := checkoutEvent(billing.EventSubscriptionCreated, billing.EventObject{
		ID: "sub_direct",
		Metadata: map[string]string{
			"organizationId": org.ID,
			"planType":       PlanProfessional,
		},
	})
	if err := env.svc.ProcessEvent(ctx, ev); err != nil {
		t.Fatalf("process: %v", err)
	}
	updated, _ := env.store.Organizations(ctx).Find(ctx, org.ID)
	if updated.SubscriptionID != "sub_direct" {
		t.Fatalf("expected object id as subscription, got %q", updated.SubscriptionID)
	}
	if updated.MaxUsers != 25 {
		t.Fatalf("expected professional seat limit, got %d", updated.MaxUsers)
	}
}

func TestProcessEventWithoutAdminStillActivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := &Organization{
		Name:         "Orphan Org",
		Domain:       "orphan.example",
		PlanType:     PlanBasic,
		MaxUsers:     DefaultMaxUsers,
		BillingEmail: "billing@orphan.example",
		TeamSettings: DefaultTeamSettings(),
	}
	if err := env.store.Organizations(ctx).Create(ctx, org); err != nil {
		t.Fatalf("create org: %v", err)
	}

	ev := checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
		ID:           "cs_x",
		Subscription: "sub_x",
		Metadata:     map[string]string{"organizationId": org.ID, "planType": PlanBasic},
	})
	if err := env.svc.ProcessEvent(ctx, ev); err != nil {
		t.Fatalf("process: %v", err)
	}
	updated, _ := env.store.Organizations(ctx).Find(ctx, org.ID)
	if updated.SubscriptionID != "sub_x" {
		t.Fatal("activation must succeed without an admin on file")
	}
	if len(env.recorder.calls) != 0 {
		t.Fatalf("no admin means no audit entry, got %v", env.recorder.calls)
	}
}

func TestProcessEventIndividualPremium(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, &User{Email: "solo@person.example", DisplayName: "Solo"})
	ctx := context.Background()

	ev := checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
		ClientReferenceID: user.ID,
	})
	if err := env.svc.ProcessEvent(ctx, ev); err != nil {
		t.Fatalf("process: %v", err)
	}

	reloaded, _ := env.store.Users(ctx).Find(ctx, user.ID)
	if !reloaded.IsPremium {
		t.Fatal("expected premium flag set")
	}
	if env.svc.PremiumStatus(reloaded) != "active" {
		t.Fatal("expected active premium status")
	}
	if len(env.sender.sent) != 1 || env.sender.sent[0].template != "premium_confirmation" {
		t.Fatalf("expected confirmation mail, got %v", env.sender.sent)
	}
}

func TestProcessEventUnhandledIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ev := checkoutEvent("invoice.paid", billing.EventObject{ID: "in_1"})
	if err := env.svc.ProcessEvent(context.Background(), ev); err != nil {
		t.Fatalf("unhandled events must be acknowledged silently: %v", err)
	}
}

func TestProcessEventUnknownOrganization(t *testing.T) {
	env := newTestEnv(t)
	ev := checkoutEvent(billing.EventCheckoutCompleted, billing.EventObject{
		ID:           "cs_y",
		Subscription: "sub_y",
		Metadata:     map[string]string{"organizationId": "missing", "planType": PlanBasic},
	})
	if err := env.svc.ProcessEvent(context.Background(), ev); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
