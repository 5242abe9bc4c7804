package httpapi

import (
	"io"
	"net/http"

	"clauselens.org/internal/billing"
	"clauselens.org/internal/enterprise"
	"clauselens.org/internal/obs"
)

func (a *API) handlePremiumCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	session, err := a.svc.StartPremiumCheckout(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
	})
}

// handleWebhook verifies the gateway signature over the raw body. A verified
// event is always acknowledged with 200, even when processing fails, so the
// gateway does not retry forever; failures are logged and counted instead.
func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unable to read request body")
		return
	}
	event, err := billing.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), a.webhookSecret)
	if err != nil {
		obs.ObserveWebhookEvent("unverified", "rejected")
		writeError(w, r, http.StatusBadRequest, "webhook signature verification failed")
		return
	}

	kind := string(enterprise.ClassifyEvent(event))
	if err := a.svc.ProcessEvent(r.Context(), event); err != nil {
		obs.ObserveWebhookEvent(kind, "error")
		obs.LogError("webhook processing failed", err, map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
		})
	} else {
		obs.ObserveWebhookEvent(kind, "ok")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
	})
}

func (a *API) handlePremiumStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": a.svc.PremiumStatus(actor),
	})
}
