package httpapi

import (
	"net/http"

	"clauselens.org/internal/enterprise"
)

type createOrganizationRequest struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	BillingEmail string `json:"billing_email"`
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type acceptInviteRequest struct {
	Token string `json:"token"`
}

type shareContractRequest struct {
	ContractID  string   `json:"contract_id"`
	SharedWith  []string `json:"shared_with"`
	AccessLevel string   `json:"access_level"`
	Message     string   `json:"message"`
}

type createSubscriptionRequest struct {
	PlanType string `json:"plan_type"`
}

func (a *API) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.CreateOrganization(r.Context(), actor, enterprise.CreateOrganizationInput{
		Name:         req.Name,
		Domain:       req.Domain,
		BillingEmail: req.BillingEmail,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (a *API) handleInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	// This route is admin-only; the service keeps the wider admin-or-manager
	// predicate for other invite surfaces.
	if !actor.IsOrgAdmin() {
		writeError(w, r, http.StatusForbidden, "only organization admins can invite team members")
		return
	}
	var req inviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	invited, err := a.svc.InviteMember(r.Context(), actor, req.Email, req.Role)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "invitation sent to " + invited.Email,
		"user":    invited,
	})
}

func (a *API) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req acceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user, err := a.svc.AcceptInvite(r.Context(), req.Token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleShareContract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req shareContractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tc, err := a.svc.ShareContract(r.Context(), actor, enterprise.ShareContractInput{
		ContractID:  req.ContractID,
		SharedWith:  req.SharedWith,
		AccessLevel: req.AccessLevel,
		Message:     req.Message,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (a *API) handleOrgContracts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	views, err := a.svc.OrganizationContracts(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []*enterprise.TeamContractView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contracts": views,
	})
}

func (a *API) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.StartCheckout(r.Context(), actor, req.PlanType)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

func (a *API) handleOrganization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	org, err := a.svc.Organization(r.Context(), actor)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	var settings enterprise.TeamSettings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	org, err := a.svc.UpdateSettings(r.Context(), actor, settings)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.principal(w, r)
	if !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.svc.AuditTrail(r.Context(), actor, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*enterprise.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
	})
}
