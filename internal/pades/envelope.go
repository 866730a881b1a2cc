// Package pades implements the signing-envelope handling for authorization
// documents. The rendered contract travels inside a JSON envelope carrying the
// original content and up to two detached signatures: the system signature
// applied at creation time and the end user's BankID signature collected
// during confirmation. Raw signature application lives in an external custody
// service; this package only builds, parses and verifies envelopes.
package pades

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"time"
)

// SignerRole identifies which party produced a signature.
type SignerRole string

const (
	RoleSystem  SignerRole = "system"
	RoleEndUser SignerRole = "end-user"
)

// Signature is one detached signature over the envelope content.
type Signature struct {
	Role      SignerRole `json:"role"`
	CertChain []string   `json:"certChain"` // PEM, leaf first
	Value     []byte     `json:"value"`     // RSA-PKCS1v15 over SHA-256(content)
	SignedAt  time.Time  `json:"signedAt"`
}

// Envelope is the signed-document container.
type Envelope struct {
	Content    []byte      `json:"content"`
	Signatures []Signature `json:"signatures"`
}

// Parse decodes an envelope from its wire form.
func Parse(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if len(env.Content) == 0 {
		return nil, errors.New("envelope has no content")
	}
	return &env, nil
}

// Encode serializes the envelope to its wire form.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Signature returns the first signature with the given role.
func (e *Envelope) Signature(role SignerRole) (Signature, bool) {
	for _, sig := range e.Signatures {
		if sig.Role == role {
			return sig, true
		}
	}
	return Signature{}, false
}

// Attach appends a signature to the envelope.
func (e *Envelope) Attach(sig Signature) {
	e.Signatures = append(e.Signatures, sig)
}

// Sign produces a detached signature over content with the given key and
// certificate chain. Used by tests and tooling; production signatures come
// from the custody service and the BankID client.
func Sign(role SignerRole, key *rsa.PrivateKey, chain []*x509.Certificate, content []byte, at time.Time) (Signature, error) {
	sum := sha256.Sum256(content)
	value, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, sum[:])
	if err != nil {
		return Signature{}, err
	}
	pems := make([]string, 0, len(chain))
	for _, cert := range chain {
		pems = append(pems, string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})))
	}
	return Signature{Role: role, CertChain: pems, Value: value, SignedAt: at}, nil
}
