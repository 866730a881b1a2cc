// Command smoke-authz runs the whole consent lifecycle against an in-process
// API: create a document, confirm it with a locally generated dual signature,
// then consume the resulting grant. It exercises the same wiring the service
// uses in production, minus the external collaborators.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/elhub/auth-grant-manager-sub001/internal/authorization"
	"github.com/elhub/auth-grant-manager-sub001/internal/pades"
	"github.com/elhub/auth-grant-manager-sub001/internal/refdata"
)

const (
	smokeNin      = "01017012345"
	smokeGLN      = "7080000000001"
	smokeConsumer = "market-processing"
)

type localPersons struct{}

func (localPersons) FindOrCreateByNin(_ context.Context, nin string) (refdata.Person, error) {
	return refdata.Person{InternalID: "person-" + nin[:6]}, nil
}

type localGenerator struct{}

func (localGenerator) Generate(_ context.Context, signerNin string, props map[string]string) ([]byte, error) {
	return fmt.Appendf(nil, "consent contract for %s at %s", signerNin, props["meteringPointAddress"]), nil
}

type localSigner struct {
	key  *rsa.PrivateKey
	leaf *x509.Certificate
}

func (s localSigner) Sign(_ context.Context, content []byte) ([]byte, error) {
	env := &pades.Envelope{Content: content}
	sig, err := pades.Sign(pades.RoleSystem, s.key, []*x509.Certificate{s.leaf}, content, time.Now())
	if err != nil {
		return nil, err
	}
	env.Attach(sig)
	return env.Encode()
}

func main() {
	ctx := context.Background()

	sysKey, sysLeaf, sysRoots := newIdentity("Elhub Custody Root", "Elhub Custody", "")
	userKey, userLeaf, userRoots := newIdentity("BankID Root", "Ola Nordmann", smokeNin)

	store := authorization.NewInMemory()
	resolver := authorization.NewResolver(store, localPersons{})
	documents := authorization.NewDocumentService(store, resolver,
		localGenerator{}, localSigner{key: sysKey, leaf: sysLeaf},
		pades.NewValidator(sysRoots, userRoots))
	grants := authorization.NewGrantService(store, smokeConsumer)

	cmd := authorization.Command{
		Process:       authorization.ProcessChangeOfEnergySupplier,
		RequestedBy:   authorization.Identifier{IDType: authorization.IDTypeGLN, IDValue: smokeGLN},
		RequestedFrom: authorization.Identifier{IDType: authorization.IDTypeNationalID, IDValue: smokeNin},
		RequestedTo:   authorization.Identifier{IDType: authorization.IDTypeNationalID, IDValue: smokeNin},
		Scopes: []authorization.ScopeSpec{{
			ResourceType: authorization.ResourceMeteringPoint,
			ResourceID:   "707057500000000001",
			Permission:   authorization.PermissionChangeOfEnergySupplierForPerson,
		}},
		Properties: map[string]string{"meteringPointAddress": "Storgata 1, Oslo"},
	}

	doc, err := documents.CreateDocument(ctx, cmd)
	if err != nil {
		log.Fatalf("create document: %v", err)
	}

	// Counter-sign the envelope the way the end user's signing app would.
	env, err := pades.Parse(doc.File)
	if err != nil {
		log.Fatalf("parse envelope: %v", err)
	}
	if !bytes.Equal(env.Content, doc.OriginalFile) {
		log.Fatal("envelope content does not match the rendered document")
	}
	userSig, err := pades.Sign(pades.RoleEndUser, userKey, []*x509.Certificate{userLeaf}, env.Content, time.Now())
	if err != nil {
		log.Fatalf("end-user sign: %v", err)
	}
	env.Attach(userSig)
	signedFile, err := env.Encode()
	if err != nil {
		log.Fatalf("encode signed file: %v", err)
	}

	confirmed, err := documents.ConfirmDocument(ctx, doc.ID,
		authorization.Identifier{IDType: authorization.IDTypeGLN, IDValue: smokeGLN}, signedFile)
	if err != nil {
		log.Fatalf("confirm document: %v", err)
	}
	if confirmed.Status != authorization.DocumentStatusSigned || confirmed.GrantID == nil {
		log.Fatalf("unexpected document state: %s", confirmed.Status)
	}

	grant, err := grants.ConsumeGrant(ctx, *confirmed.GrantID, authorization.GrantStatusExhausted,
		authorization.Identifier{IDType: authorization.IDTypeSystem, IDValue: smokeConsumer})
	if err != nil {
		log.Fatalf("consume grant: %v", err)
	}
	if grant.Status != authorization.GrantStatusExhausted {
		log.Fatalf("unexpected grant status: %s", grant.Status)
	}

	fmt.Printf("✅ authorization smoke test passed: document=%s grant=%s\n", confirmed.ID, grant.ID)
}

func newIdentity(caName, commonName, serialNumber string) (*rsa.PrivateKey, *x509.Certificate, *x509.CertPool) {
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatalf("generate CA key: %v", err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: caName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		log.Fatalf("create CA cert: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		log.Fatalf("parse CA cert: %v", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatalf("generate leaf key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: commonName, SerialNumber: serialNumber},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, caCert, &key.PublicKey, caKey)
	if err != nil {
		log.Fatalf("create leaf cert: %v", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		log.Fatalf("parse leaf cert: %v", err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	return key, leaf, roots
}
