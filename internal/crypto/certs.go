package crypto

// certs.go - functions for loading and checking the X.509 certificates used to sign passes
// (the pass type certificate issued by Apple and the WWDR intermediate certificate)

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// oidUserID is the subject attribute Apple uses to carry the pass type identifier
var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// ParseCertificates parses one or more X.509 certificates from PEM or DER encoded data.
// The certificates are returned in the order they appear in the data.
//
// Non-certificate PEM blocks are skipped, so a file holding a certificate and its key can be passed directly.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	if !bytes.Contains(data, []byte("-----BEGIN")) {
		// DER (Apple distributes the WWDR certificate as a .cer file)
		certs, err := x509.ParseCertificates(data)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to parse DER certificate")
		}
		if len(certs) == 0 {
			return nil, NewValidationError("no certificates found in DER data")
		}
		return certs, nil
	}

	var certs []*x509.Certificate
	var block *pem.Block
	remaining := data

	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		// Skip non-certificate blocks
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to parse certificate")
		}

		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, NewValidationError("no certificates found in PEM data")
	}

	return certs, nil
}

// ReadCertificateFile loads the certificates in a PEM or DER file.
//
// Parameters:
//   - path: The file path (e.g., "./certs/wwdr.pem" or "/etc/passbook/AppleWWDRCAG4.cer")
func ReadCertificateFile(path string) ([]*x509.Certificate, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCertificates(data)
}

// readFile reads a file scoped to its directory
func readFile(path string) ([]byte, error) {
	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to open directory %s", dir))
	}
	defer root.Close()

	data, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapInternalError(err, fmt.Sprintf("failed to read %s", path))
	}
	return data, nil
}

// CertificateMatchesKey checks that the certificate's public key belongs to the private key.
//
// Returns error if:
//   - the key type is unsupported
//   - the key types differ
//   - the public keys don't match
func CertificateMatchesKey(cert *x509.Certificate, privateKey any) error {
	if cert == nil {
		return NewInternalError("nil certificate")
	}

	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		certKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return NewCertificateError(fmt.Sprintf("certificate contains %T key, but the private key is RSA", cert.PublicKey))
		}
		if !key.PublicKey.Equal(certKey) {
			return NewCertificateError("certificate public key does not match the RSA private key")
		}

	case *ecdsa.PrivateKey:
		certKey, ok := cert.PublicKey.(*ecdsa.PublicKey)
		if !ok {
			return NewCertificateError(fmt.Sprintf("certificate contains %T key, but the private key is ECDSA", cert.PublicKey))
		}
		if !key.PublicKey.Equal(certKey) {
			return NewCertificateError("certificate public key does not match the ECDSA private key")
		}

	default:
		return NewValidationError(fmt.Sprintf("unsupported private key type: %T (expected *rsa.PrivateKey or *ecdsa.PrivateKey)", privateKey))
	}

	return nil
}

// CheckValidity returns an error when the certificate is not valid at time t.
func CheckValidity(cert *x509.Certificate, t time.Time) error {
	if t.Before(cert.NotBefore) {
		return NewCertificateError(fmt.Sprintf("certificate %q is not valid before %s", cert.Subject.CommonName, cert.NotBefore.Format(time.RFC3339)))
	}
	if t.After(cert.NotAfter) {
		return NewCertificateError(fmt.Sprintf("certificate %q expired at %s", cert.Subject.CommonName, cert.NotAfter.Format(time.RFC3339)))
	}
	return nil
}

// PassTypeIdentifier returns the pass type identifier recorded in an Apple pass type certificate
// (the subject UID attribute), or "" if there is none.
func PassTypeIdentifier(cert *x509.Certificate) string {
	for _, name := range cert.Subject.Names {
		if name.Type.Equal(oidUserID) {
			if s, ok := name.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// TeamIdentifier returns the team identifier recorded in an Apple pass type certificate
// (the subject organizational unit), or "" if there is none.
func TeamIdentifier(cert *x509.Certificate) string {
	if len(cert.Subject.OrganizationalUnit) == 0 {
		return ""
	}
	return cert.Subject.OrganizationalUnit[0]
}
