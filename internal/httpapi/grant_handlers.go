package httpapi

import (
	"net/http"

	"github.com/elhub/auth-grant-manager-sub001/internal/audit"
	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
)

type consumeGrantRequest struct {
	Status authorization.GrantStatus `json:"grantStatus"`
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request) {
	items, err := a.grants.ListGrants(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	g, err := a.grants.FindGrant(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (a *API) consumeGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	caller, ok := callerIdentifier(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no caller identity")
		return
	}
	var req consumeGrantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "MalformedBody", err.Error())
		return
	}

	g, err := a.grants.ConsumeGrant(r.Context(), id, req.Status, caller)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "authorization.grant.consume", map[string]any{
		"grant_id": g.ID.String(),
		"status":   string(g.Status),
	})
	writeJSON(w, http.StatusOK, g)
}
