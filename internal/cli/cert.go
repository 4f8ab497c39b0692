package cli

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/passbook/internal/crypto"
)

func newCertCmd(cc *cliContext) *cobra.Command {
	certCmd := &cobra.Command{
		Use:   "cert",
		Short: "Check pass signing credentials",
	}
	certCmd.AddCommand(newCertInspectCmd(cc))
	return certCmd
}

func newCertInspectCmd(cc *cliContext) *cobra.Command {
	var src crypto.CredentialSource

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the signing certificates and check they can sign a pass",
		Long: `Load the pass type certificate, private key and WWDR certificate, print their details,
check their validity and sign and verify a test manifest.

The paths default to the server's PASS_CERTIFICATE_PATH, PASS_KEY_PATH, WWDR_CERTIFICATE_PATH and
PASS_KEY_PASSPHRASE variables.

Example:
  passbook-cli cert inspect --cert ./certs/pass.p12 --wwdr ./certs/AppleWWDRCAG4.cer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src.CertificatePath == "" {
				src.CertificatePath = cc.cfg.PassCertificatePath
			}
			if src.KeyPath == "" {
				src.KeyPath = cc.cfg.PassKeyPath
			}
			if src.WWDRPath == "" {
				src.WWDRPath = cc.cfg.WWDRCertificatePath
			}
			if src.Passphrase == "" {
				src.Passphrase = cc.cfg.PassKeyPassphrase
			}
			return inspectCredentials(cmd.Context(), cmd.OutOrStdout(), src, time.Now())
		},
	}

	cmd.Flags().StringVar(&src.CertificatePath, "cert", "", "pass type certificate (PEM, DER or PKCS#12)")
	cmd.Flags().StringVar(&src.KeyPath, "key", "", "private key (PEM or JWK)")
	cmd.Flags().StringVar(&src.WWDRPath, "wwdr", "", "Apple WWDR intermediate certificate")
	cmd.Flags().StringVar(&src.Passphrase, "passphrase", "", "key or PKCS#12 passphrase")
	return cmd
}

// inspectCredentials prints the credential details. The error is non nil when the credentials
// could not sign a pass at time now.
func inspectCredentials(ctx context.Context, out io.Writer, src crypto.CredentialSource, now time.Time) error {
	creds, err := crypto.LoadSigningCredentials(src)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	printCertificate(w, "pass certificate", creds.Certificate)
	fmt.Fprintf(w, "  pass type identifier\t%s\n", crypto.PassTypeIdentifier(creds.Certificate))
	fmt.Fprintf(w, "  team identifier\t%s\n", crypto.TeamIdentifier(creds.Certificate))
	fmt.Fprintf(w, "  key type\t%s\n", creds.Certificate.PublicKeyAlgorithm)
	printCertificate(w, "WWDR certificate", creds.WWDR)
	if err := w.Flush(); err != nil {
		return err
	}

	if err := creds.Check(now); err != nil {
		fmt.Fprintf(out, "check: FAILED: %v\n", err)
		return err
	}

	manifest := []byte(`{"pass.json":"da39a3ee5e6b4b0d3255bfef95601890afd80709"}`)
	sig, err := crypto.NewSigner(creds).Sign(ctx, manifest)
	if err != nil {
		fmt.Fprintf(out, "test signature: FAILED: %v\n", err)
		return err
	}
	if _, err := crypto.VerifyDetached(sig, manifest); err != nil {
		fmt.Fprintf(out, "test signature: FAILED: %v\n", err)
		return err
	}

	fmt.Fprintf(out, "check: OK (expires in %d days)\n", int(creds.Certificate.NotAfter.Sub(now).Hours()/24))
	fmt.Fprintln(out, "test signature: OK")
	return nil
}

func printCertificate(w io.Writer, label string, cert *x509.Certificate) {
	fmt.Fprintf(w, "%s\n", label)
	fmt.Fprintf(w, "  subject\t%s\n", cert.Subject)
	fmt.Fprintf(w, "  issuer\t%s\n", cert.Issuer)
	fmt.Fprintf(w, "  serial\t%s\n", cert.SerialNumber)
	fmt.Fprintf(w, "  not before\t%s\n", cert.NotBefore.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  not after\t%s\n", cert.NotAfter.UTC().Format(time.RFC3339))
}
