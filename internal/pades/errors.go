package pades

import "fmt"

// Code names one distinct signature-validation failure. Codes are returned
// verbatim to callers so the end user can be told exactly why confirmation
// failed; they are never collapsed into a generic error.
type Code string

const (
	CodeMalformedFile               Code = "MalformedFile"
	CodeOriginalDocumentMismatch    Code = "OriginalDocumentMismatch"
	CodeMissingSystemSignature      Code = "MissingSystemSignature"
	CodeInvalidSystemSignature      Code = "InvalidSystemSignature"
	CodeUntrustedSystemCertificate  Code = "UntrustedSystemCertificate"
	CodeMissingEndUserSignature     Code = "MissingEndUserSignature"
	CodeInvalidEndUserSignature     Code = "InvalidEndUserSignature"
	CodeUntrustedEndUserCertificate Code = "UntrustedEndUserCertificate"
	CodeMissingNationalID           Code = "MissingNationalId"
	CodeNationalIDMismatch          Code = "NationalIdMismatch"
)

// ValidationError carries the failure code plus human-readable detail.
type ValidationError struct {
	Code   Code
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("pades: %s", e.Code)
	}
	return fmt.Sprintf("pades: %s: %s", e.Code, e.Detail)
}

func failf(code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Detail: fmt.Sprintf(format, args...)}
}
