package process

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/obs"
	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

var (
	meteringPointPattern = regexp.MustCompile(`^\d{18}$`)
	glnPattern           = regexp.MustCompile(`^\d{13}$`)
	freeTextPattern      = regexp.MustCompile(`^[\pL\pN][\pL\pN _.\-]*$`)
)

const balanceSupplierPartyType = "BalanceSupplier"

// Validator runs the fixed validation pipeline for every process type. The
// step order is part of the contract: callers rely on deterministic error
// reporting, so each step short-circuits on first failure.
type Validator struct {
	persons        refdata.PersonDirectory
	meteringPoints refdata.MeteringPointDirectory
	organisations  refdata.OrganisationDirectory
	pricing        refdata.ProductCatalog

	// contractCheck gates the price-comparison cross-check of the contract name.
	contractCheck bool
	now           func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithContractCheck enables the contract-name cross-check against the
// price-comparison service.
func WithContractCheck(enabled bool) Option {
	return func(v *Validator) { v.contractCheck = enabled }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator wires the pipeline over the reference-data collaborators.
func NewValidator(persons refdata.PersonDirectory, meteringPoints refdata.MeteringPointDirectory, organisations refdata.OrganisationDirectory, pricing refdata.ProductCatalog, opts ...Option) *Validator {
	v := &Validator{
		persons:        persons,
		meteringPoints: meteringPoints,
		organisations:  organisations,
		pricing:        pricing,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the pipeline for the model's process type and returns the
// normalized command on success.
func (v *Validator) Validate(ctx context.Context, m Model) (authorization.Command, error) {
	if !m.Process.Valid() {
		return authorization.Command{}, v.fail(CodeUnknownProcessType, "process", string(m.Process))
	}

	// Step 1: required fields, in fixed order.
	if err := v.checkPresence(m); err != nil {
		return authorization.Command{}, err
	}
	// Step 2: format checks.
	if err := v.checkFormats(m); err != nil {
		return authorization.Command{}, err
	}

	// Step 3: resolve the end user.
	person, err := v.persons.FindOrCreateByNin(ctx, m.RequestedFrom)
	if err != nil {
		if refdata.IsNotFound(err) {
			return authorization.Command{}, v.fail(CodeRequestedFromNotFound, "requestedFrom", "")
		}
		return authorization.Command{}, v.fail(CodeUnexpectedError, "requestedFrom", err.Error())
	}

	// Step 4: fetch the metering point scoped to the end user.
	mp, err := v.meteringPoints.ByIDAndElhubInternalID(ctx, m.MeteringPointID, person.InternalID)
	if err != nil {
		if refdata.IsNotFound(err) {
			return authorization.Command{}, v.fail(CodeMeteringPointNotFound, "meteringPointId", "")
		}
		return authorization.Command{}, v.fail(CodeUnexpectedError, "meteringPointId", err.Error())
	}

	// Step 5: metering-point state rules differ between switch and move-in flows.
	if err := v.checkMeteringPointState(m.Process, mp, person.InternalID); err != nil {
		return authorization.Command{}, err
	}

	// Step 6: a move-in start date may lie in the past or today, never ahead.
	if m.Process.IsMoveIn() && m.StartDate != nil {
		if m.StartDate.After(v.now()) {
			return authorization.Command{}, v.fail(CodeStartDateNotBackInTime, "startDate", m.StartDate.Format(time.RFC3339))
		}
	}

	// Step 7: the requesting supplier must exist and be active.
	org, err := v.organisations.PartyByIDAndType(ctx, m.RequestedBy, balanceSupplierPartyType)
	if err != nil {
		if refdata.IsNotFound(err) {
			return authorization.Command{}, v.fail(CodeRequestedByNotFound, "requestedBy", "")
		}
		return authorization.Command{}, v.fail(CodeUnexpectedError, "requestedBy", err.Error())
	}
	if !strings.EqualFold(org.Status, "ACTIVE") {
		return authorization.Command{}, v.fail(CodeNotActiveRequestedBy, "requestedBy", org.Status)
	}

	// Step 8: switching to the supplier already on the point is a no-op request.
	if org.PartyID == mp.CurrentSupplierPartyID {
		return authorization.Command{}, v.fail(CodeMatchingRequestedBy, "requestedBy", "")
	}

	// Step 9: the consenting party must be the process target.
	if m.RequestedTo != m.RequestedFrom {
		return authorization.Command{}, v.fail(CodeRequestedToMismatch, "requestedTo", "")
	}

	// Step 10: optional contract-name cross-check.
	if v.contractCheck {
		if err := v.checkContract(ctx, org.OrganizationNumber, m.ContractName); err != nil {
			return authorization.Command{}, err
		}
	}

	return buildCommand(m, person.InternalID, mp), nil
}

func (v *Validator) checkPresence(m Model) error {
	checks := []struct {
		value string
		code  Code
		field string
	}{
		{m.RequestedFromName, CodeMissingRequestedFromName, "requestedFromName"},
		{m.BalanceSupplierName, CodeMissingBalanceSupplierName, "balanceSupplierName"},
		{m.ContractName, CodeMissingContractName, "contractName"},
		{m.MeteringPointID, CodeMissingMeteringPointID, "meteringPointId"},
		{m.MeteringPointAddress, CodeMissingMeteringPointAddress, "meteringPointAddress"},
		{m.RequestedBy, CodeMissingRequestedBy, "requestedBy"},
		{m.RequestedFrom, CodeMissingRequestedFrom, "requestedFrom"},
	}
	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return v.fail(c.code, c.field, "")
		}
	}
	return nil
}

func (v *Validator) checkFormats(m Model) error {
	if !meteringPointPattern.MatchString(m.MeteringPointID) {
		return v.fail(CodeInvalidMeteringPointID, "meteringPointId", m.MeteringPointID)
	}
	if !glnPattern.MatchString(m.RequestedBy) {
		return v.fail(CodeInvalidRequestedBy, "requestedBy", m.RequestedBy)
	}
	if !freeTextPattern.MatchString(m.RequestedFromName) {
		return v.fail(CodeInvalidRequestedFromName, "requestedFromName", "")
	}
	if !freeTextPattern.MatchString(m.BalanceSupplierName) {
		return v.fail(CodeInvalidBalanceSupplierName, "balanceSupplierName", "")
	}
	if !freeTextPattern.MatchString(m.ContractName) {
		return v.fail(CodeInvalidContractName, "contractName", "")
	}
	return nil
}

func (v *Validator) checkMeteringPointState(p authorization.ProcessType, mp refdata.MeteringPoint, personID string) error {
	if p.IsMoveIn() {
		if mp.EndUserID == personID {
			return v.fail(CodeEndUserAlreadyOnMeteringPoint, "meteringPointId", "")
		}
	} else {
		if mp.EndUserID != personID {
			return v.fail(CodeEndUserNotOnMeteringPoint, "meteringPointId", "")
		}
	}
	if p != authorization.ProcessMoveIn && mp.BlockedForSwitching {
		return v.fail(CodeBlockedForSwitching, "meteringPointId", "")
	}
	return nil
}

func (v *Validator) checkContract(ctx context.Context, orgNumber, contractName string) error {
	products, err := v.pricing.ProductsByOrganizationNumber(ctx, orgNumber)
	if err != nil {
		if refdata.IsNotFound(err) {
			return v.fail(CodeContractsNotFound, "contractName", "")
		}
		return v.fail(CodeUnexpectedError, "contractName", err.Error())
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, contractName) {
			return nil
		}
	}
	return v.fail(CodeInvalidBalanceSupplierContractName, "contractName", contractName)
}

func (v *Validator) fail(code Code, field, detail string) error {
	obs.ValidationFailed(string(code))
	return &ValidationError{Code: code, Field: field, Detail: detail}
}

func buildCommand(m Model, personID string, mp refdata.MeteringPoint) authorization.Command {
	props := map[string]string{
		PropRequestedFromName:    m.RequestedFromName,
		PropBalanceSupplierName:  m.BalanceSupplierName,
		PropContractName:         m.ContractName,
		PropMeteringPointAddress: m.MeteringPointAddress,
	}
	if mp.MeterNumber != "" {
		props[PropMeterNumber] = mp.MeterNumber
	}
	if m.StartDate != nil {
		props[PropStartDate] = m.StartDate.Format("2006-01-02")
	}
	return authorization.Command{
		Process:         m.Process,
		RequestedBy:     authorization.Identifier{IDType: authorization.IDTypeGLN, IDValue: m.RequestedBy},
		RequestedFrom:   authorization.Identifier{IDType: authorization.IDTypeNationalID, IDValue: m.RequestedFrom},
		RequestedTo:     authorization.Identifier{IDType: authorization.IDTypeNationalID, IDValue: m.RequestedTo},
		EndUserPersonID: personID,
		Scopes: []authorization.ScopeSpec{{
			ResourceType: authorization.ResourceMeteringPoint,
			ResourceID:   m.MeteringPointID,
			Permission:   m.Process.Permission(),
		}},
		Properties: props,
	}
}
