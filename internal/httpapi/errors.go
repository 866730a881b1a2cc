package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
	"github.com/elhub/auth-grant-manager-sub001/internal/pades"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
)

// handleDomainError translates core errors into HTTP responses. Signature
// validation codes pass through verbatim so the supplier can show the end
// user why the signed file was rejected.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *process.ValidationError
	if errors.As(err, &ve) {
		switch ve.Class() {
		case process.ClassNotFound:
			writeError(w, r, http.StatusNotFound, string(ve.Code), ve.Error())
		case process.ClassUnexpected:
			writeError(w, r, http.StatusInternalServerError, string(ve.Code), "internal error")
		default:
			writeError(w, r, http.StatusUnprocessableEntity, string(ve.Code), ve.Error())
		}
		return
	}

	var se *pades.ValidationError
	if errors.As(err, &se) {
		writeError(w, r, http.StatusUnprocessableEntity, string(se.Code), se.Error())
		return
	}

	switch {
	case errors.Is(err, authorization.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "NotFound", "resource not found")
	case errors.Is(err, authorization.ErrNotAuthorized):
		writeError(w, r, http.StatusForbidden, "NotAuthorized", "caller is not a party to this resource")
	case errors.Is(err, authorization.ErrInvalidRequestedBy):
		writeError(w, r, http.StatusForbidden, "InvalidRequestedBy", "requestedBy does not match the document")
	case errors.Is(err, authorization.ErrIllegalState):
		writeError(w, r, http.StatusConflict, "IllegalState", err.Error())
	case errors.Is(err, authorization.ErrExpired):
		writeError(w, r, http.StatusGone, "Expired", "the resource is no longer confirmable")
	case errors.Is(err, authorization.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "InvalidInput", err.Error())
	default:
		obs.LogRequest(map[string]any{
			"level":      "error",
			"msg":        "unhandled domain error",
			"error":      err.Error(),
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusInternalServerError, "InternalError", "internal error")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"code":  code,
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
