package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

const (
	testNin      = "01017012345"
	testPersonID = "person-1"
	testMpID     = "707057500000000001"
	testGLN      = "7080000000001"
)

type stubRefdata struct {
	personErr   error
	mp          refdata.MeteringPoint
	mpErr       error
	org         refdata.OrganisationParty
	orgErr      error
	products    []refdata.Product
	productsErr error
}

func (s *stubRefdata) FindOrCreateByNin(_ context.Context, nin string) (refdata.Person, error) {
	if s.personErr != nil {
		return refdata.Person{}, s.personErr
	}
	return refdata.Person{InternalID: testPersonID}, nil
}

func (s *stubRefdata) ByIDAndElhubInternalID(_ context.Context, _, _ string) (refdata.MeteringPoint, error) {
	return s.mp, s.mpErr
}

func (s *stubRefdata) PartyByIDAndType(_ context.Context, _, _ string) (refdata.OrganisationParty, error) {
	return s.org, s.orgErr
}

func (s *stubRefdata) ProductsByOrganizationNumber(_ context.Context, _ string) ([]refdata.Product, error) {
	return s.products, s.productsErr
}

func healthyRefdata() *stubRefdata {
	return &stubRefdata{
		mp: refdata.MeteringPoint{
			ID:                     testMpID,
			EndUserID:              testPersonID,
			AccessType:             "Remote",
			CurrentSupplierPartyID: "party-old-supplier",
			MeterNumber:            "M-4711",
		},
		org: refdata.OrganisationParty{
			PartyID:            "party-new-supplier",
			Status:             "ACTIVE",
			OrganizationNumber: "987654321",
			Name:               "Ny Kraft AS",
		},
		products: []refdata.Product{{Name: "Spotpris Variabel"}},
	}
}

func validModel(process authorization.ProcessType) Model {
	return Model{
		Process:              process,
		RequestedFromName:    "Ola Nordmann",
		BalanceSupplierName:  "Ny Kraft AS",
		ContractName:         "Spotpris Variabel",
		MeteringPointID:      testMpID,
		MeteringPointAddress: "Storgata 1, Oslo",
		RequestedBy:          testGLN,
		RequestedFrom:        testNin,
		RequestedTo:          testNin,
	}
}

func newValidator(rd *stubRefdata, opts ...Option) *Validator {
	return NewValidator(rd, rd, rd, rd, opts...)
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Code != want {
		t.Fatalf("code=%s, want %s", ve.Code, want)
	}
}

func TestValidateHappyPath(t *testing.T) {
	v := newValidator(healthyRefdata())

	cmd, err := v.Validate(context.Background(), validModel(authorization.ProcessChangeOfEnergySupplier))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(cmd.Scopes) != 1 {
		t.Fatalf("scopes=%d, want 1", len(cmd.Scopes))
	}
	sc := cmd.Scopes[0]
	if sc.ResourceType != authorization.ResourceMeteringPoint || sc.ResourceID != testMpID {
		t.Fatalf("scope resource=%s/%s", sc.ResourceType, sc.ResourceID)
	}
	if sc.Permission != authorization.PermissionChangeOfEnergySupplierForPerson {
		t.Fatalf("scope permission=%s, want ChangeOfEnergySupplierForPerson", sc.Permission)
	}
	if cmd.EndUserPersonID != testPersonID {
		t.Fatalf("endUserPersonId=%s, want %s", cmd.EndUserPersonID, testPersonID)
	}
	if cmd.RequestedFrom.IDType != authorization.IDTypeNationalID || cmd.RequestedFrom.IDValue != testNin {
		t.Fatalf("requestedFrom=%v", cmd.RequestedFrom)
	}
	if cmd.Properties[PropMeterNumber] != "M-4711" {
		t.Fatalf("meterNumber property=%q", cmd.Properties[PropMeterNumber])
	}
}

func TestValidateOrderDeterminism(t *testing.T) {
	// With both names missing, the first step's first check always wins.
	m := validModel(authorization.ProcessChangeOfEnergySupplier)
	m.RequestedFromName = ""
	m.BalanceSupplierName = ""

	_, err := newValidator(healthyRefdata()).Validate(context.Background(), m)
	assertCode(t, err, CodeMissingRequestedFromName)
}

func TestValidatePresenceAndFormat(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Model)
		want   Code
	}{
		{"missing contract name", func(m *Model) { m.ContractName = "" }, CodeMissingContractName},
		{"missing metering point", func(m *Model) { m.MeteringPointID = "" }, CodeMissingMeteringPointID},
		{"missing requestedBy", func(m *Model) { m.RequestedBy = "" }, CodeMissingRequestedBy},
		{"short metering point id", func(m *Model) { m.MeteringPointID = "1234" }, CodeInvalidMeteringPointID},
		{"non-digit metering point id", func(m *Model) { m.MeteringPointID = "70705750000000000X" }, CodeInvalidMeteringPointID},
		{"requestedBy not a GLN", func(m *Model) { m.RequestedBy = "987654321" }, CodeInvalidRequestedBy},
		{"name with forbidden characters", func(m *Model) { m.RequestedFromName = "Ola <script>" }, CodeInvalidRequestedFromName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validModel(authorization.ProcessChangeOfEnergySupplier)
			tc.mutate(&m)
			_, err := newValidator(healthyRefdata()).Validate(context.Background(), m)
			assertCode(t, err, tc.want)
		})
	}
}

func TestValidateCollaboratorFailures(t *testing.T) {
	notFound := &refdata.ClientError{Kind: refdata.KindNotFound, Op: "lookup"}
	serverErr := &refdata.ClientError{Kind: refdata.KindServerError, Op: "lookup"}

	cases := []struct {
		name   string
		mutate func(*stubRefdata)
		want   Code
	}{
		{"person not found", func(rd *stubRefdata) { rd.personErr = notFound }, CodeRequestedFromNotFound},
		{"person lookup failure", func(rd *stubRefdata) { rd.personErr = serverErr }, CodeUnexpectedError},
		{"metering point not found", func(rd *stubRefdata) { rd.mpErr = notFound }, CodeMeteringPointNotFound},
		{"metering point lookup failure", func(rd *stubRefdata) { rd.mpErr = serverErr }, CodeUnexpectedError},
		{"organisation not found", func(rd *stubRefdata) { rd.orgErr = notFound }, CodeRequestedByNotFound},
		{"organisation inactive", func(rd *stubRefdata) { rd.org.Status = "TERMINATED" }, CodeNotActiveRequestedBy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rd := healthyRefdata()
			tc.mutate(rd)
			_, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessChangeOfEnergySupplier))
			assertCode(t, err, tc.want)
		})
	}
}

func TestValidateMeteringPointState(t *testing.T) {
	t.Run("switch flow requires existing end user", func(t *testing.T) {
		rd := healthyRefdata()
		rd.mp.EndUserID = "someone-else"
		_, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessChangeOfSupplier))
		assertCode(t, err, CodeEndUserNotOnMeteringPoint)
	})

	t.Run("move-in rejects existing end user", func(t *testing.T) {
		rd := healthyRefdata()
		_, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessMoveIn))
		assertCode(t, err, CodeEndUserAlreadyOnMeteringPoint)
	})

	t.Run("blocked for switching", func(t *testing.T) {
		rd := healthyRefdata()
		rd.mp.BlockedForSwitching = true
		_, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessChangeOfBalanceSupplier))
		assertCode(t, err, CodeBlockedForSwitching)
	})

	t.Run("pure move-in ignores switching block", func(t *testing.T) {
		rd := healthyRefdata()
		rd.mp.EndUserID = ""
		rd.mp.BlockedForSwitching = true
		if _, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessMoveIn)); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestValidateMatchingRequestedBy(t *testing.T) {
	rd := healthyRefdata()
	rd.org.PartyID = rd.mp.CurrentSupplierPartyID

	_, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessChangeOfEnergySupplier))
	assertCode(t, err, CodeMatchingRequestedBy)
}

func TestValidateRequestedToMismatch(t *testing.T) {
	m := validModel(authorization.ProcessChangeOfEnergySupplier)
	m.RequestedTo = "31126054321"

	_, err := newValidator(healthyRefdata()).Validate(context.Background(), m)
	assertCode(t, err, CodeRequestedToMismatch)
}

func TestValidateStartDateNotBackInTime(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	rd := healthyRefdata()
	rd.mp.EndUserID = ""

	m := validModel(authorization.ProcessMoveInAndChangeOfEnergySupplier)
	tomorrow := now.Add(24 * time.Hour)
	m.StartDate = &tomorrow

	v := newValidator(rd, WithClock(func() time.Time { return now }))
	_, err := v.Validate(context.Background(), m)
	assertCode(t, err, CodeStartDateNotBackInTime)

	yesterday := now.Add(-24 * time.Hour)
	m.StartDate = &yesterday
	if _, err := v.Validate(context.Background(), m); err != nil {
		t.Fatalf("past start date must pass: %v", err)
	}
}

func TestValidateContractCheck(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		rd := healthyRefdata()
		rd.products = nil
		if _, err := newValidator(rd).Validate(context.Background(), validModel(authorization.ProcessChangeOfBalanceSupplier)); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("case-insensitive match", func(t *testing.T) {
		rd := healthyRefdata()
		m := validModel(authorization.ProcessChangeOfBalanceSupplier)
		m.ContractName = "SPOTPRIS variabel"
		v := newValidator(rd, WithContractCheck(true))
		if _, err := v.Validate(context.Background(), m); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("unknown contract name", func(t *testing.T) {
		rd := healthyRefdata()
		m := validModel(authorization.ProcessChangeOfBalanceSupplier)
		m.ContractName = "Fastpris 3 aar"
		v := newValidator(rd, WithContractCheck(true))
		_, err := v.Validate(context.Background(), m)
		assertCode(t, err, CodeInvalidBalanceSupplierContractName)
	})

	t.Run("no contracts", func(t *testing.T) {
		rd := healthyRefdata()
		rd.productsErr = &refdata.ClientError{Kind: refdata.KindNotFound, Op: "pricing.products"}
		v := newValidator(rd, WithContractCheck(true))
		_, err := v.Validate(context.Background(), validModel(authorization.ProcessChangeOfBalanceSupplier))
		assertCode(t, err, CodeContractsNotFound)
	})
}

func TestValidateUnknownProcess(t *testing.T) {
	m := validModel("TransferOfOwnership")
	_, err := newValidator(healthyRefdata()).Validate(context.Background(), m)
	assertCode(t, err, CodeUnknownProcessType)
}
