package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// httpClient is the shared transport wrapper for all refdata clients.
type httpClient struct {
	base   string
	client *http.Client
}

func newHTTPClient(base string, client *http.Client) httpClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return httpClient{base: strings.TrimRight(base, "/"), client: client}
}

// doJSON performs a request and decodes a JSON body into out. Non-2xx
// responses and transport failures become ClientErrors.
func (c httpClient) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Kind: KindUnexpected, Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return &ClientError{Kind: KindUnexpected, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &ClientError{Kind: KindUnexpected, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if kind, ok := classifyStatus(resp.StatusCode); ok {
		return &ClientError{Kind: kind, Op: op, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Kind: KindUnexpected, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func classifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status >= 200 && status < 300:
		return "", false
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status == http.StatusBadRequest:
		return KindBadRequest, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized, true
	case status >= 500:
		return KindServerError, true
	default:
		return KindUnexpected, true
	}
}
