package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elhub/auth-grant-manager-sub001/internal/auth"
	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/pades"
	"github.com/elhub/auth-grant-manager-sub001/internal/process"
	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

const (
	testNin      = "01017012345"
	testGLN      = "7080000000001"
	testMpID     = "707057500000000001"
	testConsumer = "market-processing"
)

// personRef maps a NIN to its registry internal id, so distinct people
// resolve to distinct parties.
func personRef(nin string) string { return "person-" + nin }

type fakeRefdata struct{}

func (fakeRefdata) FindOrCreateByNin(_ context.Context, nin string) (refdata.Person, error) {
	return refdata.Person{InternalID: personRef(nin)}, nil
}

func (fakeRefdata) ByIDAndElhubInternalID(_ context.Context, id, _ string) (refdata.MeteringPoint, error) {
	return refdata.MeteringPoint{
		ID:                     id,
		EndUserID:              personRef(testNin),
		CurrentSupplierPartyID: "party-old-supplier",
		MeterNumber:            "M-4711",
	}, nil
}

func (fakeRefdata) PartyByIDAndType(_ context.Context, _, _ string) (refdata.OrganisationParty, error) {
	return refdata.OrganisationParty{
		PartyID:            "party-new-supplier",
		Status:             "ACTIVE",
		OrganizationNumber: "987654321",
		Name:               "Ny Kraft AS",
	}, nil
}

func (fakeRefdata) ProductsByOrganizationNumber(_ context.Context, _ string) ([]refdata.Product, error) {
	return []refdata.Product{{Name: "Spotpris Variabel"}}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Generate(_ context.Context, _ string, _ map[string]string) ([]byte, error) {
	return []byte("contract body"), nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(_ context.Context, content []byte) ([]byte, error) {
	return append([]byte("signed:"), content...), nil
}

type fakeSignatureValidator struct{ err error }

func (v fakeSignatureValidator) Validate(_, _ []byte, _ string) error { return v.err }

func newTestServer(t *testing.T, sigErr error) *httptest.Server {
	t.Helper()
	t.Setenv("AGM_AUTH_SECRET", "test-secret")
	auth.ResetSecretCache()
	t.Cleanup(auth.ResetSecretCache)

	store := authorization.NewInMemory()
	resolver := authorization.NewResolver(store, fakeRefdata{})
	api := New(Config{
		Requests:  authorization.NewRequestService(store, resolver),
		Documents: authorization.NewDocumentService(store, resolver, fakeGenerator{}, fakeSigner{}, fakeSignatureValidator{err: sigErr}),
		Grants:    authorization.NewGrantService(store, testConsumer),
		Validator: process.NewValidator(fakeRefdata{}, fakeRefdata{}, fakeRefdata{}, fakeRefdata{}),
		Version:   "test",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, partyType, idType, idValue string) string {
	t.Helper()
	tok, err := auth.GenerateToken(auth.AuthorizedParty{PartyType: partyType, IDType: idType, IDValue: idValue}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func supplierToken(t *testing.T) string {
	return token(t, "OrganizationEntity", "GlobalLocationNumber", testGLN)
}

func endUserToken(t *testing.T) string {
	return token(t, "Person", "NationalIdentityNumber", testNin)
}

func doJSON(t *testing.T, method, url, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, out.Bytes()
}

func validModelBody() map[string]any {
	return map[string]any{
		"process":              "ChangeOfEnergySupplier",
		"requestedFromName":    "Ola Nordmann",
		"balanceSupplierName":  "Ny Kraft AS",
		"contractName":         "Spotpris Variabel",
		"meteringPointId":      testMpID,
		"meteringPointAddress": "Storgata 1, Oslo",
		"requestedBy":          testGLN,
		"requestedFrom":        testNin,
		"requestedTo":          testNin,
	}
}

func TestHealthEndpointsArePublic(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/metrics"} {
		resp, _ := doJSON(t, http.MethodGet, srv.URL+path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status=%d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/v1/authorization-requests", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", resp.StatusCode)
	}
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	bearer := supplierToken(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-requests", bearer, validModelBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, body)
	}
	var created authorization.Request
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if created.Status != authorization.RequestStatusPending {
		t.Fatalf("status=%s, want Pending", created.Status)
	}

	// The supplier cannot accept its own request.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-requests/"+created.ID.String()+"/accept", bearer, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self-accept status=%d, want 403", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-requests/"+created.ID.String()+"/accept", endUserToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status=%d body=%s", resp.StatusCode, body)
	}
	var accepted authorization.Request
	if err := json.Unmarshal(body, &accepted); err != nil {
		t.Fatalf("decode accepted: %v", err)
	}
	if accepted.Status != authorization.RequestStatusAccepted || accepted.GrantID == nil {
		t.Fatalf("accepted=%+v, want Accepted with grant", accepted)
	}

	// Second accept conflicts.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-requests/"+created.ID.String()+"/accept", endUserToken(t), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double accept status=%d, want 409", resp.StatusCode)
	}
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	bearer := supplierToken(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-documents", bearer, validModelBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, body)
	}
	var doc authorization.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	confirm := map[string]any{"signedFile": []byte("dual-signed")}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-documents/"+doc.ID.String()+"/confirm", bearer, confirm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status=%d body=%s", resp.StatusCode, body)
	}
	var confirmed authorization.Document
	if err := json.Unmarshal(body, &confirmed); err != nil {
		t.Fatalf("decode confirmed: %v", err)
	}
	if confirmed.Status != authorization.DocumentStatusSigned || confirmed.GrantID == nil {
		t.Fatalf("confirmed=%+v, want Signed with grant", confirmed)
	}

	// The grant is consumable by the dedicated system party only.
	grantURL := srv.URL + "/v1/authorization-grants/" + confirmed.GrantID.String()
	resp, _ = doJSON(t, http.MethodPost, grantURL+"/status", bearer, map[string]any{"grantStatus": "Exhausted"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("consume by supplier status=%d, want 403", resp.StatusCode)
	}

	sysToken := token(t, "System", "System", testConsumer)
	resp, body = doJSON(t, http.MethodPost, grantURL+"/status", sysToken, map[string]any{"grantStatus": "Exhausted"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("consume status=%d body=%s", resp.StatusCode, body)
	}
	var g authorization.Grant
	if err := json.Unmarshal(body, &g); err != nil {
		t.Fatalf("decode grant: %v", err)
	}
	if g.Status != authorization.GrantStatusExhausted {
		t.Fatalf("grant status=%s, want Exhausted", g.Status)
	}
}

func TestDocumentVisibilityOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-documents", supplierToken(t), validModelBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, body)
	}
	var doc authorization.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	docURL := srv.URL + "/v1/authorization-documents/" + doc.ID.String()

	resp, _ = doJSON(t, http.MethodGet, docURL, endUserToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end-user read status=%d, want 200", resp.StatusCode)
	}

	stranger := token(t, "Person", "NationalIdentityNumber", "31126054321")
	resp, _ = doJSON(t, http.MethodGet, docURL, stranger, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger read status=%d, want 403", resp.StatusCode)
	}
}

func TestConfirmSignatureErrorCodePassesThrough(t *testing.T) {
	srv := newTestServer(t, &pades.ValidationError{Code: pades.CodeInvalidEndUserSignature})
	bearer := supplierToken(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-documents", bearer, validModelBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", resp.StatusCode, body)
	}
	var doc authorization.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}

	confirm := map[string]any{"signedFile": []byte("bad")}
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-documents/"+doc.ID.String()+"/confirm", bearer, confirm)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("confirm status=%d, want 422", resp.StatusCode)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != string(pades.CodeInvalidEndUserSignature) {
		t.Fatalf("code=%q, want verbatim signature code", payload.Code)
	}
}

func TestValidationErrorsMapToStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	bearer := supplierToken(t)

	body := validModelBody()
	body["requestedFromName"] = ""
	resp, raw := doJSON(t, http.MethodPost, srv.URL+"/v1/authorization-requests", bearer, body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s, want 422", resp.StatusCode, raw)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Code != string(process.CodeMissingRequestedFromName) {
		t.Fatalf("code=%q, want MissingRequestedFromName", payload.Code)
	}
}

func TestUnknownResourceIs404(t *testing.T) {
	srv := newTestServer(t, nil)
	url := fmt.Sprintf("%s/v1/authorization-requests/%s", srv.URL, "2fd2cc95-16ad-45b2-8b92-7d2052b6c9e5")
	resp, _ := doJSON(t, http.MethodGet, url, supplierToken(t), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}
}
