package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/elhub/auth-grant-manager-sub001/internal/audit"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
)

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var model process.Model
	if err := decodeJSON(w, r, &model); err != nil {
		writeError(w, r, http.StatusBadRequest, "MalformedBody", err.Error())
		return
	}

	cmd, err := a.validator.Validate(r.Context(), model)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	req, err := a.requests.CreateRequest(r.Context(), cmd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "authorization.request.create", map[string]any{
		"request_id": req.ID.String(),
		"process":    string(req.Type),
	})
	w.Header().Set("Location", "/v1/authorization-requests/"+req.ID.String())
	writeJSON(w, http.StatusCreated, req)
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	items, err := a.requests.ListRequests(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	req, err := a.requests.FindRequest(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) acceptRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	caller, ok := callerIdentifier(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no caller identity")
		return
	}
	req, err := a.requests.AcceptRequest(r.Context(), id, caller)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authorization.request.accept", map[string]any{
		"request_id": req.ID.String(),
		"grant_id":   req.GrantID.String(),
	})
	writeJSON(w, http.StatusOK, req)
}

func (a *API) rejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	caller, ok := callerIdentifier(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no caller identity")
		return
	}
	req, err := a.requests.RejectRequest(r.Context(), id, caller)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "authorization.request.reject", map[string]any{
		"request_id": req.ID.String(),
	})
	writeJSON(w, http.StatusOK, req)
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidId", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
