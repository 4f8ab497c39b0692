package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/passbook/internal/passbook"
)

func newPassCmd(cc *cliContext) *cobra.Command {
	passCmd := &cobra.Command{
		Use:   "pass",
		Short: "Create and manage passes",
	}

	passCmd.AddCommand(
		newPassCreateCmd(cc),
		newPassGetCmd(cc),
		newPassSetActiveCmd(cc, "activate", true),
		newPassSetActiveCmd(cc, "deactivate", false),
		newPassDeleteCmd(cc),
		newPassRegistrationsCmd(cc),
		newPassDownloadCmd(cc),
	)
	return passCmd
}

func newPassCreateCmd(cc *cliContext) *cobra.Command {
	var originType, originID string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a pass for an origin record",
		Long: `Create an active pass for an origin record.

Example:
  passbook-cli pass create --origin-type member --origin-id 1001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := cc.client.CreatePass(cmd.Context(), originType, originID)
			if err != nil {
				return err
			}
			cc.appLogger.Debug("pass created", slog.Int64("pass_id", pass.ID))
			return printJSON(cmd.OutOrStdout(), pass)
		},
	}

	cmd.Flags().StringVar(&originType, "origin-type", "", "origin type (one of the server's ORIGIN_TYPES) (required)")
	cmd.Flags().StringVar(&originID, "origin-id", "", "origin record ID (required)")
	_ = cmd.MarkFlagRequired("origin-type")
	_ = cmd.MarkFlagRequired("origin-id")
	return cmd
}

func newPassGetCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <pass-id>",
		Short: "Show a pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePassIDArg(args[0])
			if err != nil {
				return err
			}
			pass, err := cc.client.GetPass(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pass)
		},
	}
}

func newPassSetActiveCmd(cc *cliContext, use string, active bool) *cobra.Command {
	short := "Activate a pass"
	if !active {
		short = "Deactivate a pass (devices stop receiving updates for it)"
	}

	return &cobra.Command{
		Use:   use + " <pass-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePassIDArg(args[0])
			if err != nil {
				return err
			}
			pass, err := cc.client.SetActive(cmd.Context(), id, active)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pass)
		},
	}
}

func newPassDeleteCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pass-id>",
		Short: "Delete a pass and its device registrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePassIDArg(args[0])
			if err != nil {
				return err
			}
			if err := cc.client.DeletePass(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pass %d deleted\n", id)
			return nil
		},
	}
}

func newPassRegistrationsCmd(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "registrations <pass-id>",
		Short: "List the devices registered for a pass",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePassIDArg(args[0])
			if err != nil {
				return err
			}
			regs, err := cc.client.Registrations(cmd.Context(), id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DEVICE\tPUSH TOKEN\tREGISTERED")
			for _, reg := range regs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", reg.DeviceLibraryIdentifier, reg.PushToken, reg.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newPassDownloadCmd(cc *cliContext) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <pass-id>",
		Short: "Download the signed .pkpass archive",
		Long: `Download the signed pass archive, as a browser would.

Example:
  passbook-cli pass download 42 --out member-42.pkpass`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePassIDArg(args[0])
			if err != nil {
				return err
			}
			data, err := cc.client.Download(cmd.Context(), id)
			if err != nil {
				return err
			}

			if out == "" {
				out = fmt.Sprintf("pass-%d.pkpass", id)
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output file (default pass-<id>.pkpass)")
	return cmd
}

func parsePassIDArg(s string) (int64, error) {
	id, ok := passbook.ParsePassID(s)
	if !ok {
		return 0, fmt.Errorf("invalid pass id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
