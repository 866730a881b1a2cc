package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/metrics": "/metrics",
		"/healthz": "/healthz",
		"/v1/authorization-requests":              "/v1/authorization-requests",
		"/v1/authorization-requests/abc":          "/v1/authorization-requests/:id",
		"/v1/authorization-documents/abc":         "/v1/authorization-documents/:id",
		"/v1/authorization-documents/abc/confirm": "/v1/authorization-documents/:id/confirm",
		"/v1/authorization-grants/abc/status":     "/v1/authorization-grants/:id/status",
		"/v1/authorization-grants?limit=10":       "/v1/authorization-grants",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
