package pades

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"time"
)

// Validator verifies that a submitted envelope carries two independent valid
// signatures: the system signature applied at document creation and the end
// user's BankID signature. Trust anchors for the two signers are separate
// pools; a certificate trusted for one role is not trusted for the other.
type Validator struct {
	systemRoots *x509.CertPool
	bankIDRoots *x509.CertPool
	now         func() time.Time
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the time source used for chain verification.
func WithClock(fn func() time.Time) ValidatorOption {
	return func(v *Validator) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewValidator constructs a Validator with the given trust anchors.
func NewValidator(systemRoots, bankIDRoots *x509.CertPool, opts ...ValidatorOption) *Validator {
	v := &Validator{systemRoots: systemRoots, bankIDRoots: bankIDRoots, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks the submitted signed file against the originally generated
// document and the expected end-user national identity number. Checks run in
// a fixed order and stop at the first failure; every failure is a
// *ValidationError with a distinct code.
func (v *Validator) Validate(signedFile, original []byte, expectedNin string) error {
	env, err := Parse(signedFile)
	if err != nil {
		return failf(CodeMalformedFile, "parse envelope: %v", err)
	}
	if !bytes.Equal(env.Content, original) {
		return failf(CodeOriginalDocumentMismatch, "submitted content differs from the generated document")
	}

	if err := v.verifySigner(env, RoleSystem, v.systemRoots,
		CodeMissingSystemSignature, CodeInvalidSystemSignature, CodeUntrustedSystemCertificate); err != nil {
		return err
	}

	if err := v.verifySigner(env, RoleEndUser, v.bankIDRoots,
		CodeMissingEndUserSignature, CodeInvalidEndUserSignature, CodeUntrustedEndUserCertificate); err != nil {
		return err
	}

	endUser, _ := env.Signature(RoleEndUser)
	leaf, err := leafCertificate(endUser)
	if err != nil {
		// verifySigner already parsed the chain; this cannot normally happen.
		return failf(CodeInvalidEndUserSignature, "reparse leaf: %v", err)
	}
	nin := strings.TrimSpace(leaf.Subject.SerialNumber)
	if nin == "" {
		return failf(CodeMissingNationalID, "end-user certificate carries no national identity number")
	}
	if nin != expectedNin {
		return failf(CodeNationalIDMismatch, "certificate national id does not match the document holder")
	}
	return nil
}

func (v *Validator) verifySigner(env *Envelope, role SignerRole, roots *x509.CertPool, missing, invalid, untrusted Code) error {
	sig, ok := env.Signature(role)
	if !ok {
		return failf(missing, "no %s signature present", role)
	}
	leaf, err := leafCertificate(sig)
	if err != nil {
		return failf(invalid, "parse certificate: %v", err)
	}

	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return failf(invalid, "unsupported public key type")
	}
	sum := sha256.Sum256(env.Content)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, sum[:], sig.Value); err != nil {
		return failf(invalid, "signature does not verify against content")
	}

	intermediates := x509.NewCertPool()
	for _, raw := range sig.CertChain[1:] {
		block, _ := pem.Decode([]byte(raw))
		if block == nil {
			continue
		}
		if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
			intermediates.AddCert(cert)
		}
	}
	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   v.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return failf(untrusted, "certificate chain: %v", err)
	}
	return nil
}

func leafCertificate(sig Signature) (*x509.Certificate, error) {
	if len(sig.CertChain) == 0 {
		return nil, errors.New("empty certificate chain")
	}
	block, _ := pem.Decode([]byte(sig.CertChain[0]))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("leaf is not a PEM certificate")
	}
	return x509.ParseCertificate(block.Bytes)
}
