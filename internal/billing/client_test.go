package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("sk_test_123", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateCustomer(t *testing.T) {
	var gotForm url.Values
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "cus_42"}`))
	})

	customer, err := client.CreateCustomer(context.Background(), "billing@acme.example", "Acme Legal", map[string]string{
		"organizationType": "enterprise",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if customer.ID != "cus_42" {
		t.Fatalf("unexpected customer %+v", customer)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotForm.Get("email") != "billing@acme.example" || gotForm.Get("metadata[organizationType]") != "enterprise" {
		t.Fatalf("unexpected form %v", gotForm)
	}
}

func TestCreateCheckoutSessionSubscription(t *testing.T) {
	var gotForm url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/sessions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"id": "cs_42", "url": "https://checkout.example/cs_42"}`))
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		Mode:       ModeSubscription,
		CustomerID: "cus_42",
		SuccessURL: "https://app.example/ok",
		CancelURL:  "https://app.example/no",
		LineItems:  []LineItem{{PriceID: "price_enterprise_pro_monthly", Quantity: 1}},
		Metadata:   map[string]string{"organizationId": "org-1"},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID != "cs_42" || session.URL == "" {
		t.Fatalf("unexpected session %+v", session)
	}
	if gotForm.Get("mode") != "subscription" || gotForm.Get("customer") != "cus_42" {
		t.Fatalf("unexpected form %v", gotForm)
	}
	if gotForm.Get("line_items[0][price]") != "price_enterprise_pro_monthly" {
		t.Fatalf("price line item missing: %v", gotForm)
	}
	if gotForm.Get("metadata[organizationId]") != "org-1" {
		t.Fatalf("metadata missing: %v", gotForm)
	}
}

func TestCreateCheckoutSessionAdHocProduct(t *testing.T) {
	var gotForm url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		_, _ = w.Write([]byte(`{"id": "cs_43"}`))
	})

	_, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		Mode:              ModePayment,
		CustomerEmail:     "solo@person.example",
		ClientReferenceID: "user-1",
		LineItems: []LineItem{{
			ProductName: "Lifetime Subscription",
			Currency:    "usd",
			UnitAmount:  1000,
		}},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if gotForm.Get("line_items[0][price_data][product_data][name]") != "Lifetime Subscription" {
		t.Fatalf("product data missing: %v", gotForm)
	}
	if gotForm.Get("line_items[0][price_data][unit_amount]") != "1000" {
		t.Fatalf("unit amount missing: %v", gotForm)
	}
	if gotForm.Get("line_items[0][quantity]") != "1" {
		t.Fatalf("quantity must default to 1: %v", gotForm)
	}
	if gotForm.Get("client_reference_id") != "user-1" {
		t.Fatalf("client reference missing: %v", gotForm)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": {"message": "card declined"}}`))
	})

	_, err := client.CreateCustomer(context.Background(), "a@b.c", "A", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "create customer: gateway responded 402: card declined" {
		t.Fatalf("unexpected error %q", got)
	}
}
