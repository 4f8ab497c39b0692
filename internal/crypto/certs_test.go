package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/pem"
	"os"
	"testing"
	"time"

	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
)

func TestParseCertificates(t *testing.T) {
	creds := testutil.NewCredentials(t)

	pemData, err := os.ReadFile(creds.CertificatePath)
	if err != nil {
		t.Fatal(err)
	}
	wwdrPEM, err := os.ReadFile(creds.WWDRPath)
	if err != nil {
		t.Fatal(err)
	}
	keyPEM, err := os.ReadFile(creds.KeyPath)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		data      []byte
		wantCount int
		wantErr   bool
	}{
		{"single PEM certificate", pemData, 1, false},
		{"DER certificate", creds.WWDR.Raw, 1, false},
		{"chain", append(append([]byte{}, pemData...), wwdrPEM...), 2, false},
		{"certificate with key block", append(append([]byte{}, keyPEM...), pemData...), 1, false},
		{"key only", keyPEM, 0, true},
		{"garbage DER", []byte{0x01, 0x02, 0x03}, 0, true},
		{"corrupt PEM certificate", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("junk")}), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certs, err := ParseCertificates(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(certs) != tt.wantCount {
				t.Errorf("got %d certificates, want %d", len(certs), tt.wantCount)
			}
		})
	}

	// order is preserved
	certs, err := ParseCertificates(append(append([]byte{}, pemData...), wwdrPEM...))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(certs[0].Raw, creds.Certificate.Raw) || !bytes.Equal(certs[1].Raw, creds.WWDR.Raw) {
		t.Error("certificates not returned in file order")
	}
}

func TestReadCertificateFile_DER(t *testing.T) {
	creds := testutil.NewCredentials(t)

	certs, err := ReadCertificateFile(creds.WWDRDERPath)
	if err != nil {
		t.Fatalf("ReadCertificateFile() error: %v", err)
	}
	if !certs[0].Equal(creds.WWDR) {
		t.Error("DER certificate does not match the generated WWDR certificate")
	}
}

func TestCertificateMatchesKey(t *testing.T) {
	creds := testutil.NewCredentials(t)
	other := testutil.NewCredentials(t)

	if err := CertificateMatchesKey(creds.Certificate, creds.PrivateKey); err != nil {
		t.Errorf("matching key rejected: %v", err)
	}
	if err := CertificateMatchesKey(creds.Certificate, other.PrivateKey); err == nil {
		t.Error("expected error for a key from a different certificate")
	}

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if err := CertificateMatchesKey(creds.Certificate, ecKey); err == nil {
		t.Error("expected error for mismatched key types")
	}
	if err := CertificateMatchesKey(creds.WWDR, creds.WWDRKey); err != nil {
		t.Errorf("matching EC key rejected: %v", err)
	}
	if err := CertificateMatchesKey(creds.Certificate, "not a key"); err == nil {
		t.Error("expected error for unsupported key type")
	}
}

func TestCheckValidity(t *testing.T) {
	now := time.Now()
	creds := testutil.NewCredentials(t, testutil.Options{
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	})

	if err := CheckValidity(creds.Certificate, now); err != nil {
		t.Errorf("certificate should be valid now: %v", err)
	}
	if err := CheckValidity(creds.Certificate, now.Add(-2*time.Hour)); err == nil {
		t.Error("expected error before NotBefore")
	}
	if err := CheckValidity(creds.Certificate, now.Add(2*time.Hour)); err == nil {
		t.Error("expected error after NotAfter")
	}
}

func TestPassAndTeamIdentifier(t *testing.T) {
	creds := testutil.NewCredentials(t, testutil.Options{
		PassTypeIdentifier: "pass.com.example.boarding",
		TeamIdentifier:     "ABCDE12345",
	})

	if got := PassTypeIdentifier(creds.Certificate); got != "pass.com.example.boarding" {
		t.Errorf("PassTypeIdentifier() = %q", got)
	}
	if got := TeamIdentifier(creds.Certificate); got != "ABCDE12345" {
		t.Errorf("TeamIdentifier() = %q", got)
	}
	if got := PassTypeIdentifier(creds.WWDR); got != "" {
		t.Errorf("PassTypeIdentifier() on the WWDR certificate = %q, want empty", got)
	}
}
