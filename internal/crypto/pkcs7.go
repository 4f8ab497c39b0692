package crypto

// pkcs7.go produces the detached CMS (PKCS#7) signature stored as the "signature" file of a pass archive.
// The signed content is manifest.json; the signer chain includes the WWDR intermediate certificate.

import (
	"context"
	"crypto/x509"

	"github.com/smallstep/pkcs7"
)

// Signer signs pass manifests with a fixed set of credentials.
// It is safe for concurrent use.
type Signer struct {
	creds *SigningCredentials
}

// NewSigner returns a signer for the credentials
func NewSigner(creds *SigningCredentials) *Signer {
	return &Signer{creds: creds}
}

// Credentials returns the signing credentials
func (s *Signer) Credentials() *SigningCredentials {
	return s.creds
}

// Sign returns a DER encoded detached PKCS#7 signature over manifest.
//
// Signing runs in its own goroutine so that a caller deadline is honoured even if the
// underlying operation stalls.
func (s *Signer) Sign(ctx context.Context, manifest []byte) ([]byte, error) {
	if s.creds == nil {
		return nil, NewInternalError("signer has no credentials")
	}

	type result struct {
		sig []byte
		err error
	}
	done := make(chan result, 1)

	go func() {
		sig, err := s.sign(manifest)
		done <- result{sig, err}
	}()

	select {
	case <-ctx.Done():
		return nil, WrapSignatureError(ctx.Err(), "signing did not complete")
	case r := <-done:
		return r.sig, r.err
	}
}

func (s *Signer) sign(manifest []byte) ([]byte, error) {
	signedData, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to initialise signed data")
	}
	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)

	if err := signedData.AddSignerChain(
		s.creds.Certificate,
		s.creds.PrivateKey,
		[]*x509.Certificate{s.creds.WWDR},
		pkcs7.SignerInfoConfig{},
	); err != nil {
		return nil, WrapSignatureError(err, "failed to add signer")
	}

	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, WrapSignatureError(err, "failed to finish signature")
	}
	return der, nil
}

// VerifyDetached checks a detached PKCS#7 signature over content and returns the signer certificate.
// The certificate chain is not checked against a trust store.
func VerifyDetached(signature, content []byte) (*x509.Certificate, error) {
	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to parse signature")
	}
	p7.Content = content

	if err := p7.Verify(); err != nil {
		return nil, WrapSignatureError(err, "signature verification failed")
	}

	signer := p7.GetOnlySigner()
	if signer == nil {
		return nil, NewSignatureError("signature does not have exactly one signer")
	}
	return signer, nil
}
