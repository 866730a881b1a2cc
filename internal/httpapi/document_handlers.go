package httpapi

import (
	"net/http"

	"github.com/elhub/auth-grant-manager-sub001/internal/audit"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
)

type confirmDocumentRequest struct {
	// SignedFile is the dual-signed envelope, base64 in transit.
	SignedFile []byte `json:"signedFile"`
}

func (a *API) createDocument(w http.ResponseWriter, r *http.Request) {
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
	doc, err := a.documents.CreateDocument(r.Context(), cmd)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "authorization.document.create", map[string]any{
		"document_id": doc.ID.String(),
		"process":     string(doc.Type),
	})
	w.Header().Set("Location", "/v1/authorization-documents/"+doc.ID.String())
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	items, err := a.documents.ListDocuments(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	caller, ok := callerIdentifier(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no caller identity")
		return
	}
	doc, err := a.documents.GetDocument(r.Context(), id, caller)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) confirmDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	caller, ok := callerIdentifier(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "no caller identity")
		return
	}
	var req confirmDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "MalformedBody", err.Error())
		return
	}
	if len(req.SignedFile) == 0 {
		writeError(w, r, http.StatusBadRequest, "MissingSignedFile", "signedFile is required")
		return
	}

	doc, err := a.documents.ConfirmDocument(r.Context(), id, caller, req.SignedFile)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "authorization.document.confirm", map[string]any{
		"document_id": doc.ID.String(),
		"grant_id":    doc.GrantID.String(),
	})
	writeJSON(w, http.StatusOK, doc)
}
