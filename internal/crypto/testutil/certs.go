// Package testutil creates throwaway pass signing credentials for tests.
//
// The certificates mimic the layout of Apple issued ones: a WWDR intermediate CA and a
// pass type certificate carrying the pass type identifier in the subject UID and the team
// identifier in the subject OU.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	DefaultPassTypeIdentifier = "pass.org.example.test"
	DefaultTeamIdentifier     = "TEAM123456"
)

var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// Options control the generated pass certificate
type Options struct {
	PassTypeIdentifier string
	TeamIdentifier     string
	NotBefore          time.Time
	NotAfter           time.Time
}

// Credentials are generated signing credentials together with the files they were written to
type Credentials struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
	WWDR        *x509.Certificate
	WWDRKey     *ecdsa.PrivateKey

	// Dir is the temporary directory holding the files below
	Dir string

	// CertificatePath is the PEM encoded pass certificate
	CertificatePath string

	// KeyPath is the PKCS#8 PEM encoded private key
	KeyPath string

	// WWDRPath is the PEM encoded WWDR certificate
	WWDRPath string

	// WWDRDERPath is the DER encoded WWDR certificate (the format Apple distributes)
	WWDRDERPath string
}

// NewCredentials generates a WWDR CA and a pass certificate signed by it and writes both,
// plus the pass private key, to t.TempDir().
func NewCredentials(t testing.TB, opts ...Options) *Credentials {
	t.Helper()

	o := Options{}
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.PassTypeIdentifier == "" {
		o.PassTypeIdentifier = DefaultPassTypeIdentifier
	}
	if o.TeamIdentifier == "" {
		o.TeamIdentifier = DefaultTeamIdentifier
	}
	now := time.Now()
	if o.NotBefore.IsZero() {
		o.NotBefore = now.Add(-time.Hour)
	}
	if o.NotAfter.IsZero() {
		o.NotAfter = now.Add(365 * 24 * time.Hour)
	}

	wwdrKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate WWDR key: %v", err)
	}
	wwdrTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:         "Test Worldwide Developer Relations Certification Authority",
			OrganizationalUnit: []string{"G4"},
			Organization:       []string{"Test Inc."},
		},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	wwdrDER, err := x509.CreateCertificate(rand.Reader, wwdrTemplate, wwdrTemplate, &wwdrKey.PublicKey, wwdrKey)
	if err != nil {
		t.Fatalf("failed to create WWDR certificate: %v", err)
	}
	wwdr, err := x509.ParseCertificate(wwdrDER)
	if err != nil {
		t.Fatalf("failed to parse WWDR certificate: %v", err)
	}

	passKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate pass key: %v", err)
	}
	passTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:         "Pass Type ID: " + o.PassTypeIdentifier,
			OrganizationalUnit: []string{o.TeamIdentifier},
			Organization:       []string{"Example Org"},
			ExtraNames: []pkix.AttributeTypeAndValue{
				{Type: oidUserID, Value: o.PassTypeIdentifier},
			},
		},
		NotBefore:   o.NotBefore,
		NotAfter:    o.NotAfter,
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	passDER, err := x509.CreateCertificate(rand.Reader, passTemplate, wwdr, &passKey.PublicKey, wwdrKey)
	if err != nil {
		t.Fatalf("failed to create pass certificate: %v", err)
	}
	passCert, err := x509.ParseCertificate(passDER)
	if err != nil {
		t.Fatalf("failed to parse pass certificate: %v", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(passKey)
	if err != nil {
		t.Fatalf("failed to marshal pass key: %v", err)
	}

	dir := t.TempDir()
	c := &Credentials{
		Certificate:     passCert,
		PrivateKey:      passKey,
		WWDR:            wwdr,
		WWDRKey:         wwdrKey,
		Dir:             dir,
		CertificatePath: filepath.Join(dir, "pass.pem"),
		KeyPath:         filepath.Join(dir, "pass.key"),
		WWDRPath:        filepath.Join(dir, "wwdr.pem"),
		WWDRDERPath:     filepath.Join(dir, "wwdr.cer"),
	}

	WriteFile(t, c.CertificatePath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: passDER}))
	WriteFile(t, c.KeyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	WriteFile(t, c.WWDRPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: wwdrDER}))
	WriteFile(t, c.WWDRDERPath, wwdrDER)

	return c
}

// WriteFile writes data to path or fails the test
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
