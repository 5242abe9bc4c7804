package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clauselens.org/internal/audit"
	"clauselens.org/internal/auth"
	"clauselens.org/internal/billing"
	"clauselens.org/internal/enterprise"
)

const testWebhookSecret = "whsec_test"

type stubGateway struct {
	sessions int
}

func (g *stubGateway) CreateCustomer(context.Context, string, string, map[string]string) (billing.Customer, error) {
	return billing.Customer{ID: "cus_test"}, nil
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (billing.CheckoutSession, error) {
	g.sessions++
	return billing.CheckoutSession{
		ID:  fmt.Sprintf("cs_%d", g.sessions),
		URL: fmt.Sprintf("https://checkout.example/cs_%d", g.sessions),
	}, nil
}

type stubSender struct{}

func (stubSender) SendEnterpriseWelcome(context.Context, string, string, string) error { return nil }
func (stubSender) SendEnterpriseInvite(context.Context, string, string, string, string, string) error {
	return nil
}
func (stubSender) SendPremiumConfirmation(context.Context, string, string) error { return nil }

type testAPI struct {
	t       *testing.T
	srv     *httptest.Server
	store   *enterprise.MemoryStore
	gateway *stubGateway
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	auth.ResetSecretForTests()
	t.Setenv("CLAUSELENS_AUTH_SECRET", "integration-test-secret")
	t.Cleanup(auth.ResetSecretForTests)

	store := enterprise.NewMemoryStore()
	gateway := &stubGateway{}
	recorder := audit.NewRecorder(store.Audit(context.Background()))
	svc, err := enterprise.NewService(store, gateway, stubSender{}, recorder, "https://app.clauselens.org")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	api := New(ReadyProbe{}, "test", store, svc, testWebhookSecret)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testAPI{t: t, srv: srv, store: store, gateway: gateway}
}

func (a *testAPI) createUser(email string) *enterprise.User {
	a.t.Helper()
	u := &enterprise.User{Email: email, DisplayName: "Test User"}
	if err := a.store.Users(context.Background()).Create(context.Background(), u); err != nil {
		a.t.Fatalf("create user: %v", err)
	}
	return u
}

func (a *testAPI) token(userID string) string {
	a.t.Helper()
	token, err := auth.GenerateToken(userID, time.Hour)
	if err != nil {
		a.t.Fatalf("generate token: %v", err)
	}
	return token
}

func (a *testAPI) do(method, path, token string, body any) *http.Response {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	if err != nil {
		a.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (a *testAPI) createOrganization(token string) *enterprise.Organization {
	a.t.Helper()
	resp := a.do(http.MethodPost, "/enterprise/create-organization", token, map[string]any{
		"name":          "Acme Legal",
		"domain":        "acme.example",
		"billing_email": "billing@acme.example",
	})
	if resp.StatusCode != http.StatusCreated {
		a.t.Fatalf("create organization: expected 201, got %d", resp.StatusCode)
	}
	var org enterprise.Organization
	decodeBody(a.t, resp, &org)
	return &org
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", resp.StatusCode)
	}
	var health map[string]any
	decodeBody(t, resp, &health)
	if health["service"] != "clauselens-api" {
		t.Fatalf("unexpected health payload %v", health)
	}

	resp = api.do(http.MethodGet, "/v1/info", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/enterprise/organization", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/enterprise/organization", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateOrganizationFlow(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)

	org := api.createOrganization(token)
	if org.PlanType != enterprise.PlanBasic || org.MaxUsers != 5 {
		t.Fatalf("unexpected org defaults %+v", org)
	}

	// Duplicate domain conflicts.
	second := api.createUser("second@other.example")
	resp := api.do(http.MethodPost, "/enterprise/create-organization", api.token(second.ID), map[string]any{
		"name":          "Copycat",
		"domain":        "acme.example",
		"billing_email": "x@y.z",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate domain, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Founder can read the organization back.
	resp = api.do(http.MethodGet, "/enterprise/organization", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get organization: expected 200, got %d", resp.StatusCode)
	}
	var got enterprise.Organization
	decodeBody(t, resp, &got)
	if got.ID != org.ID {
		t.Fatalf("expected org %s, got %s", org.ID, got.ID)
	}
}

func TestInviteAndAcceptFlow(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)
	api.createOrganization(token)

	resp := api.do(http.MethodPost, "/enterprise/invite", token, map[string]any{
		"email": "jordan@acme.example",
		"role":  "member",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invite: expected 200, got %d", resp.StatusCode)
	}
	var confirmation struct {
		Message string           `json:"message"`
		User    *enterprise.User `json:"user"`
	}
	decodeBody(t, resp, &confirmation)
	if confirmation.Message == "" || confirmation.User == nil {
		t.Fatalf("expected confirmation payload, got %+v", confirmation)
	}
	invited := *confirmation.User

	// The invite token never leaves the server in API responses.
	stored, err := api.store.Users(context.Background()).Find(context.Background(), invited.ID)
	if err != nil {
		t.Fatalf("reload invited: %v", err)
	}
	if stored.InviteToken == "" {
		t.Fatal("expected stored invite token")
	}

	// Accept is public: no Authorization header.
	resp = api.do(http.MethodPost, "/enterprise/accept-invite", "", map[string]any{
		"token": stored.InviteToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d", resp.StatusCode)
	}
	var accepted enterprise.User
	decodeBody(t, resp, &accepted)
	if !accepted.IsEnterprise {
		t.Fatal("expected enterprise membership after accept")
	}

	// Members cannot invite.
	resp = api.do(http.MethodPost, "/enterprise/invite", api.token(accepted.ID), map[string]any{
		"email": "x@acme.example",
		"role":  "member",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member invite: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInviteRouteIsAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	org := api.createOrganization(api.token(founder.ID))
	ctx := context.Background()

	manager := &enterprise.User{
		Email:          "manager@acme.example",
		DisplayName:    "Manager",
		OrganizationID: org.ID,
		Role:           enterprise.RoleManager,
		IsEnterprise:   true,
	}
	if err := api.store.Users(ctx).Create(ctx, manager); err != nil {
		t.Fatalf("create manager: %v", err)
	}

	resp := api.do(http.MethodPost, "/enterprise/invite", api.token(manager.ID), map[string]any{
		"email": "jordan@acme.example",
		"role":  "member",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("manager invite: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// The rejection happens before the service runs: no placeholder account.
	if _, err := api.store.Users(ctx).FindByEmail(ctx, "jordan@acme.example"); !errors.Is(err, enterprise.ErrNotFound) {
		t.Fatalf("expected no invited user, got %v", err)
	}
}

func TestSeatLimitOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)
	api.createOrganization(token)

	for i := 0; i < 4; i++ {
		resp := api.do(http.MethodPost, "/enterprise/invite", token, map[string]any{
			"email": fmt.Sprintf("member%d@acme.example", i),
			"role":  "member",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("invite %d: expected 200, got %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := api.do(http.MethodPost, "/enterprise/invite", token, map[string]any{
		"email": "overflow@acme.example",
		"role":  "member",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 at seat limit, got %d", resp.StatusCode)
	}
	var payload map[string]any
	decodeBody(t, resp, &payload)
	if payload["error"] != "organization has reached maximum user limit" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}

func TestShareContractFlow(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)
	org := api.createOrganization(token)
	ctx := context.Background()

	colleague := &enterprise.User{
		Email:          "colleague@acme.example",
		OrganizationID: org.ID,
		Role:           enterprise.RoleMember,
		IsEnterprise:   true,
	}
	if err := api.store.Users(ctx).Create(ctx, colleague); err != nil {
		t.Fatalf("create colleague: %v", err)
	}
	contract := &enterprise.Contract{
		UserID:       founder.ID,
		ContractType: "nda",
		ContractText: "secret text",
		Summary:      "Mutual NDA",
	}
	if err := api.store.Contracts(ctx).Create(ctx, contract); err != nil {
		t.Fatalf("create contract: %v", err)
	}

	resp := api.do(http.MethodPost, "/enterprise/share-contract", token, map[string]any{
		"contract_id": contract.ID,
		"shared_with": []string{colleague.ID},
		"message":     "please review",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share: expected 200, got %d", resp.StatusCode)
	}
	var tc enterprise.TeamContract
	decodeBody(t, resp, &tc)
	if tc.AccessLevel != enterprise.AccessView || tc.Version != 1 {
		t.Fatalf("unexpected team contract %+v", tc)
	}

	// Audience member sees the listing without the raw text.
	resp = api.do(http.MethodGet, "/enterprise/org-contracts", api.token(colleague.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var listing struct {
		Contracts []*enterprise.TeamContractView `json:"contracts"`
	}
	decodeBody(t, resp, &listing)
	if len(listing.Contracts) != 1 {
		t.Fatalf("expected 1 contract, got %d", len(listing.Contracts))
	}
	if listing.Contracts[0].Contract.ContractText != "" {
		t.Fatal("listing must not include the contract text")
	}

	// Sharing with an outsider fails entirely.
	outsider := api.createUser("outsider@other.example")
	resp = api.do(http.MethodPost, "/enterprise/share-contract", token, map[string]any{
		"contract_id": contract.ID,
		"shared_with": []string{outsider.ID},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("outsider share: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubscriptionCheckoutAndWebhook(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)
	org := api.createOrganization(token)

	resp := api.do(http.MethodPost, "/enterprise/create-subscription", token, map[string]any{
		"plan_type": "enterprise",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create subscription: expected 200, got %d", resp.StatusCode)
	}
	var checkout map[string]string
	decodeBody(t, resp, &checkout)
	if checkout["sessionId"] == "" || checkout["url"] == "" {
		t.Fatalf("unexpected checkout payload %v", checkout)
	}

	// Activation arrives over the signed webhook.
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "subscription": "sub_99", "metadata": {
			"organizationId": %q, "planType": "enterprise", "maxUsers": "100"
		}}}
	}`, org.ID))
	header := billing.SignPayload(payload, testWebhookSecret, time.Now())

	req, _ := http.NewRequest(http.MethodPost, api.srv.URL+"/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	whResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if whResp.StatusCode != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d", whResp.StatusCode)
	}
	var ack map[string]any
	decodeBody(t, whResp, &ack)
	if ack["received"] != true {
		t.Fatalf("unexpected ack %v", ack)
	}

	updated, err := api.store.Organizations(context.Background()).Find(context.Background(), org.ID)
	if err != nil {
		t.Fatalf("reload org: %v", err)
	}
	if updated.PlanType != enterprise.PlanEnterprise || updated.MaxUsers != 100 || updated.SubscriptionID != "sub_99" {
		t.Fatalf("subscription not activated: %+v", updated)
	}

	// Audit trail records the lifecycle; admin can read it.
	resp = api.do(http.MethodGet, "/enterprise/audit-logs?limit=10", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("audit logs: expected 200, got %d", resp.StatusCode)
	}
	var trail struct {
		Entries []*enterprise.AuditEntry `json:"entries"`
	}
	decodeBody(t, resp, &trail)
	if len(trail.Entries) == 0 {
		t.Fatal("expected audit entries")
	}
	if trail.Entries[0].Action != "subscription_activated" {
		t.Fatalf("expected newest entry first, got %q", trail.Entries[0].Action)
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	api := newTestAPI(t)

	payload := []byte(`{"id": "evt_x", "type": "checkout.session.completed", "data": {"object": {}}}`)
	req, _ := http.NewRequest(http.MethodPost, api.srv.URL+"/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", billing.SignPayload(payload, "whsec_wrong", time.Now()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing header entirely.
	req, _ = http.NewRequest(http.MethodPost, api.srv.URL+"/payments/webhook", bytes.NewReader(payload))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPremiumCheckoutAndStatus(t *testing.T) {
	api := newTestAPI(t)
	user := api.createUser("solo@person.example")
	token := api.token(user.ID)

	resp := api.do(http.MethodGet, "/payments/premium-status", token, nil)
	var status map[string]string
	decodeBody(t, resp, &status)
	if status["status"] != "inactive" {
		t.Fatalf("expected inactive, got %v", status)
	}

	resp = api.do(http.MethodPost, "/payments/create-checkout-session", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("premium checkout: expected 200, got %d", resp.StatusCode)
	}
	var checkout map[string]string
	decodeBody(t, resp, &checkout)
	if checkout["sessionId"] == "" {
		t.Fatalf("unexpected checkout payload %v", checkout)
	}

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "client_reference_id": %q}}
	}`, user.ID))
	req, _ := http.NewRequest(http.MethodPost, api.srv.URL+"/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", billing.SignPayload(payload, testWebhookSecret, time.Now()))
	whResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}
	whResp.Body.Close()

	resp = api.do(http.MethodGet, "/payments/premium-status", token, nil)
	decodeBody(t, resp, &status)
	if status["status"] != "active" {
		t.Fatalf("expected active after payment, got %v", status)
	}
}

func TestSettingsUpdate(t *testing.T) {
	api := newTestAPI(t)
	founder := api.createUser("founder@acme.example")
	token := api.token(founder.ID)
	api.createOrganization(token)

	resp := api.do(http.MethodPut, "/enterprise/settings", token, map[string]any{
		"allow_public_contracts": false,
		"require_approval":       false,
		"custom_templates":       false,
		"data_retention_days":    90,
		"audit_logging_enabled":  true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("settings: expected 200, got %d", resp.StatusCode)
	}
	var org enterprise.Organization
	decodeBody(t, resp, &org)
	if org.TeamSettings.DataRetentionDays != 90 || org.TeamSettings.RequireApproval {
		t.Fatalf("settings not replaced: %+v", org.TeamSettings)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	user := api.createUser("someone@acme.example")
	token := api.token(user.ID)

	resp := api.do(http.MethodGet, "/enterprise/invite", token, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow: POST, got %q", allow)
	}
	resp.Body.Close()
}

func TestRequestIDPropagated(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/healthz", "", nil)
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected generated request id header")
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, api.srv.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "req-supplied")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.Header.Get("X-Request-Id") != "req-supplied" {
		t.Fatalf("expected upstream id echoed, got %q", resp.Header.Get("X-Request-Id"))
	}
	resp.Body.Close()
}
