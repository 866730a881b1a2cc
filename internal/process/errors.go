package process

import "fmt"

// Code identifies a business-process validation failure. The set is closed;
// callers branch on Class() for status mapping and surface the code itself to
// the end user.
type Code string

const (
	CodeMissingRequestedFromName    Code = "MissingRequestedFromName"
	CodeMissingBalanceSupplierName  Code = "MissingBalanceSupplierName"
	CodeMissingContractName         Code = "MissingContractName"
	CodeMissingMeteringPointID      Code = "MissingMeteringPointId"
	CodeMissingMeteringPointAddress Code = "MissingMeteringPointAddress"
	CodeMissingRequestedBy          Code = "MissingRequestedBy"
	CodeMissingRequestedFrom        Code = "MissingRequestedFrom"

	CodeInvalidMeteringPointID     Code = "InvalidMeteringPointId"
	CodeInvalidRequestedBy         Code = "InvalidRequestedBy"
	CodeInvalidRequestedFromName   Code = "InvalidRequestedFromName"
	CodeInvalidBalanceSupplierName Code = "InvalidBalanceSupplierName"
	CodeInvalidContractName        Code = "InvalidContractName"

	CodeRequestedFromNotFound Code = "RequestedFromNotFound"
	CodeMeteringPointNotFound Code = "MeteringPointNotFound"
	CodeRequestedByNotFound   Code = "RequestedByNotFound"
	CodeContractsNotFound     Code = "ContractsNotFound"

	CodeEndUserNotOnMeteringPoint     Code = "EndUserNotOnMeteringPoint"
	CodeEndUserAlreadyOnMeteringPoint Code = "EndUserAlreadyOnMeteringPoint"
	CodeBlockedForSwitching           Code = "BlockedForSwitching"
	CodeStartDateNotBackInTime        Code = "StartDateNotBackInTime"
	CodeNotActiveRequestedBy          Code = "NotActiveRequestedBy"
	CodeMatchingRequestedBy           Code = "MatchingRequestedBy"
	CodeRequestedToMismatch           Code = "RequestedToRequestedFromMismatch"

	CodeInvalidBalanceSupplierContractName Code = "InvalidBalanceSupplierContractName"
	CodeUnknownProcessType                 Code = "UnknownProcessType"
	CodeUnexpectedError                    Code = "UnexpectedError"
)

// Class groups codes for HTTP-status translation.
type Class int

const (
	ClassValidation Class = iota
	ClassNotFound
	ClassUnexpected
)

// ValidationError reports the first failed step of a validation pipeline.
type ValidationError struct {
	Code   Code
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("process: %s: %s (%s)", e.Code, e.Field, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("process: %s: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("process: %s", e.Code)
}

// Class maps the code to its status family.
func (e *ValidationError) Class() Class {
	switch e.Code {
	case CodeRequestedFromNotFound, CodeMeteringPointNotFound, CodeRequestedByNotFound, CodeContractsNotFound:
		return ClassNotFound
	case CodeUnexpectedError:
		return ClassUnexpected
	default:
		return ClassValidation
	}
}
