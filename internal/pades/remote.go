package pades

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

// Signer applies the system signature to a rendered document and returns the
// signed envelope bytes.
type Signer interface {
	Sign(ctx context.Context, content []byte) ([]byte, error)
}

// Generator renders the contract document for the given signer and metadata.
type Generator interface {
	Generate(ctx context.Context, signerNin string, properties map[string]string) ([]byte, error)
}

const remoteTimeout = 15 * time.Second

// RemoteSigner calls the custody signing service.
type RemoteSigner struct {
	base   string
	client *http.Client
}

var _ Signer = (*RemoteSigner)(nil)

func NewRemoteSigner(baseURL string, client *http.Client) *RemoteSigner {
	if client == nil {
		client = &http.Client{Timeout: remoteTimeout}
	}
	return &RemoteSigner{base: strings.TrimRight(baseURL, "/"), client: client}
}

// Sign submits the rendered content and returns the system-signed envelope.
func (s *RemoteSigner) Sign(ctx context.Context, content []byte) ([]byte, error) {
	payload, err := json.Marshal(map[string][]byte{"content": content})
	if err != nil {
		return nil, fmt.Errorf("pades: encode sign request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/sign", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pades: build sign request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pades: sign call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pades: sign call returned status %d", resp.StatusCode)
	}

	var out struct {
		SignedFile []byte `json:"signedFile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("pades: decode sign response: %w", err)
	}
	return out.SignedFile, nil
}

// RemoteGenerator calls the contract rendering service.
type RemoteGenerator struct {
	base   string
	client *http.Client
}

var _ Generator = (*RemoteGenerator)(nil)

func NewRemoteGenerator(baseURL string, client *http.Client) *RemoteGenerator {
	if client == nil {
		client = &http.Client{Timeout: remoteTimeout}
	}
	return &RemoteGenerator{base: strings.TrimRight(baseURL, "/"), client: client}
}

// Generate renders the contract document and returns its raw bytes.
func (g *RemoteGenerator) Generate(ctx context.Context, signerNin string, properties map[string]string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"signerNin":  signerNin,
		"properties": properties,
	})
	if err != nil {
		return nil, fmt.Errorf("pades: encode generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("pades: build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pades: generate call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pades: generate call returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
