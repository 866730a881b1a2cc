package refdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPersonsFindOrCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/persons" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["nin"] != "01017012345" {
			t.Fatalf("unexpected nin: %q", body["nin"])
		}
		_ = json.NewEncoder(w).Encode(Person{InternalID: "person-1"})
	}))
	defer srv.Close()

	persons := NewPersons(srv.URL, srv.Client())
	got, err := persons.FindOrCreateByNin(context.Background(), "01017012345")
	if err != nil {
		t.Fatalf("FindOrCreateByNin: %v", err)
	}
	if got.InternalID != "person-1" {
		t.Fatalf("unexpected person: %+v", got)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := map[int]ErrorKind{
		http.StatusNotFound:            KindNotFound,
		http.StatusBadRequest:          KindBadRequest,
		http.StatusUnauthorized:        KindUnauthorized,
		http.StatusForbidden:           KindUnauthorized,
		http.StatusInternalServerError: KindServerError,
		http.StatusTeapot:              KindUnexpected,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		orgs := NewOrganisations(srv.URL, srv.Client())
		_, err := orgs.PartyByIDAndType(context.Background(), "987654321", "BalanceSupplier")
		srv.Close()
		ce, ok := err.(*ClientError)
		if !ok {
			t.Fatalf("status %d: expected ClientError, got %v", status, err)
		}
		if ce.Kind != want {
			t.Fatalf("status %d: kind=%s, want %s", status, ce.Kind, want)
		}
	}
}

func TestMeteringPointQueryShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metering-points/123456789012345678" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("elhubInternalId") != "person-1" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(MeteringPoint{ID: "123456789012345678", MeterNumber: "42"})
	}))
	defer srv.Close()

	mps := NewMeteringPoints(srv.URL, srv.Client())
	got, err := mps.ByIDAndElhubInternalID(context.Background(), "123456789012345678", "person-1")
	if err != nil {
		t.Fatalf("ByIDAndElhubInternalID: %v", err)
	}
	if got.MeterNumber != "42" {
		t.Fatalf("unexpected metering point: %+v", got)
	}
}

func TestIsNotFound(t *testing.T) {
	err := &ClientError{Kind: KindNotFound, Op: "x"}
	if !IsNotFound(err) {
		t.Fatal("expected IsNotFound to be true")
	}
	if IsNotFound(&ClientError{Kind: KindServerError}) {
		t.Fatal("expected IsNotFound to be false for server errors")
	}
}
