// this file contains functions to load the private key used to sign passes
//
// The key can be supplied as:
//   - a PEM file (PKCS#1, PKCS#8, SEC 1 EC keys, legacy OpenSSL encrypted PEM, or encrypted PKCS#8)
//   - a JWK or JWK set file (the first key in the set is used)
//
// PKCS#12 bundles are handled in credentials.go since they carry the certificate as well as the key.

package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/youmark/pkcs8"
)

// ErrPassphraseRequired is returned when a key is encrypted and no passphrase was configured
var ErrPassphraseRequired = errors.New("private key is encrypted but no passphrase was provided")

// ReadPrivateKeyFile loads a private key from a PEM or JWK file.
// passphrase is only used for encrypted keys.
func ReadPrivateKeyFile(path string, passphrase string) (any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKey(data, passphrase)
}

// ParsePrivateKey parses an RSA or ECDSA private key from PEM or JWK data.
func ParsePrivateKey(data []byte, passphrase string) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseJWKPrivateKey(trimmed)
	}

	var block *pem.Block
	remaining := data
	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			return nil, NewKeyManagementError("no private key found in PEM data")
		}
		switch block.Type {
		case "RSA PRIVATE KEY", "EC PRIVATE KEY", "PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
			return parsePEMPrivateKey(block, passphrase)
		}
	}
}

func parsePEMPrivateKey(block *pem.Block, passphrase string) (any, error) {
	der := block.Bytes

	// legacy OpenSSL encryption (Proc-Type: 4,ENCRYPTED)
	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // openssl still writes these for pass certificates
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
		if err != nil {
			return nil, WrapKeyManagementError(err, "failed to decrypt private key (wrong passphrase?)")
		}
		der = decrypted
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(der)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(der)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(der)
	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		key, err = pkcs8.ParsePKCS8PrivateKey(der, []byte(passphrase))
	}
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to parse %s", block.Type))
	}

	return checkKeyType(key)
}

func parseJWKPrivateKey(data []byte) (any, error) {
	jwkSet, err := jwk.Parse(data)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse JWK")
	}

	if jwkSet.Len() == 0 {
		return nil, NewKeyManagementError("JWK set is empty")
	}

	jwkKey, ok := jwkSet.Key(0)
	if !ok {
		return nil, NewKeyManagementError("failed to get key from JWK set")
	}

	var raw any
	if err := jwk.Export(jwkKey, &raw); err != nil {
		return nil, WrapKeyManagementError(err, "failed to export key")
	}

	return checkKeyType(raw)
}

// checkKeyType ensures the key can be used for CMS signing
func checkKeyType(key any) (any, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return k, nil
	case *ecdsa.PrivateKey:
		return k, nil
	case rsa.PrivateKey:
		return &k, nil
	case ecdsa.PrivateKey:
		return &k, nil
	default:
		return nil, NewKeyManagementError(fmt.Sprintf("unsupported private key type %T (pass signing needs an RSA or ECDSA key)", key))
	}
}
