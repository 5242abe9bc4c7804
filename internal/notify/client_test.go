package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("re_test_123", "https://app.clauselens.org/", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSendEnterpriseInvite(t *testing.T) {
	var got emailRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer re_test_123" {
			t.Fatalf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	err := client.SendEnterpriseInvite(context.Background(), "jordan@acme.example", "Acme Legal", "Founder", "tok123", "member")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(got.To) != 1 || got.To[0] != "jordan@acme.example" {
		t.Fatalf("unexpected recipients %v", got.To)
	}
	if !strings.Contains(got.Subject, "Acme Legal") {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "https://app.clauselens.org/accept-invite?token=tok123") {
		t.Fatalf("accept link missing from body: %s", got.HTML)
	}
}

func TestSendEscapesHTML(t *testing.T) {
	var got emailRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	})

	if err := client.SendEnterpriseWelcome(context.Background(), "a@b.c", "<script>x</script>", "Acme & Co"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(got.HTML, "<script>") {
		t.Fatal("user-controlled values must be escaped")
	}
	if !strings.Contains(got.HTML, "Acme &amp; Co") {
		t.Fatalf("expected escaped org name, got: %s", got.HTML)
	}
}

func TestSendSurfacesProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "invalid from address"}`))
	})

	err := client.SendPremiumConfirmation(context.Background(), "a@b.c", "Solo")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "422") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
