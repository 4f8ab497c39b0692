package crypto

// credentials.go loads the material needed to sign passes: the pass type certificate, its private key
// and the Apple WWDR intermediate certificate.

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// SigningCredentials holds the parsed signing material
type SigningCredentials struct {
	// Certificate is the pass type certificate (leaf)
	Certificate *x509.Certificate

	// PrivateKey is the *rsa.PrivateKey or *ecdsa.PrivateKey belonging to Certificate
	PrivateKey any

	// WWDR is the Apple Worldwide Developer Relations intermediate certificate
	WWDR *x509.Certificate
}

// CredentialSource describes where the signing material is loaded from
type CredentialSource struct {
	// CertificatePath is a PEM/DER certificate or a PKCS#12 bundle (.p12 or .pfx) holding certificate and key
	CertificatePath string

	// KeyPath is the private key (PEM or JWK). Optional when the certificate file is a PKCS#12 bundle
	// or a PEM file that also contains the key.
	KeyPath string

	// WWDRPath is the WWDR intermediate certificate (PEM or DER)
	WWDRPath string

	// Passphrase decrypts the key or PKCS#12 bundle. Empty means the key is not encrypted.
	Passphrase string
}

// LoadSigningCredentials loads and cross-checks the signing material.
func LoadSigningCredentials(src CredentialSource) (*SigningCredentials, error) {
	if src.CertificatePath == "" {
		return nil, NewValidationError("certificate path is required")
	}
	if src.WWDRPath == "" {
		return nil, NewValidationError("WWDR certificate path is required")
	}

	var (
		creds = &SigningCredentials{}
		err   error
	)

	switch strings.ToLower(filepath.Ext(src.CertificatePath)) {
	case ".p12", ".pfx":
		creds.Certificate, creds.PrivateKey, err = readPKCS12File(src.CertificatePath, src.Passphrase)
		if err != nil {
			return nil, err
		}
	default:
		certs, err := ReadCertificateFile(src.CertificatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load pass certificate: %w", err)
		}
		creds.Certificate = certs[0]

		keyPath := src.KeyPath
		if keyPath == "" {
			keyPath = src.CertificatePath
		}
		creds.PrivateKey, err = ReadPrivateKeyFile(keyPath, src.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to load pass private key: %w", err)
		}
	}

	wwdr, err := ReadCertificateFile(src.WWDRPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load WWDR certificate: %w", err)
	}
	creds.WWDR = wwdr[0]

	if err := CertificateMatchesKey(creds.Certificate, creds.PrivateKey); err != nil {
		return nil, err
	}

	return creds, nil
}

// Check verifies that both certificates are valid at time t and that the pass certificate
// was issued by the WWDR certificate.
func (c *SigningCredentials) Check(t time.Time) error {
	if err := CheckValidity(c.Certificate, t); err != nil {
		return err
	}
	if err := CheckValidity(c.WWDR, t); err != nil {
		return err
	}
	if err := c.Certificate.CheckSignatureFrom(c.WWDR); err != nil {
		return WrapCertificateError(err, "pass certificate was not issued by the WWDR certificate")
	}
	return nil
}

// readPKCS12File extracts the certificate and key from a PKCS#12 bundle.
//
// Keychain exports often hold more than one certificate, so the bundle is converted to PEM blocks
// and the certificate matching the key is selected.
func readPKCS12File(path, passphrase string) (*x509.Certificate, any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}

	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return nil, nil, WrapKeyManagementError(err, "failed to decode PKCS#12 bundle (wrong passphrase?)")
	}

	var (
		certs []*x509.Certificate
		key   any
	)
	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, nil, WrapCertificateError(err, "failed to parse certificate in PKCS#12 bundle")
			}
			certs = append(certs, cert)
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			if key != nil {
				continue
			}
			key, err = parsePEMPrivateKey(&pem.Block{Type: block.Type, Bytes: block.Bytes}, "")
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if key == nil {
		return nil, nil, NewKeyManagementError("no private key found in PKCS#12 bundle")
	}
	for _, cert := range certs {
		if CertificateMatchesKey(cert, key) == nil {
			return cert, key, nil
		}
	}
	return nil, nil, NewCertificateError("no certificate in the PKCS#12 bundle matches its private key")
}
