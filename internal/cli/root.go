package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/version"
)

// state shared by the subcommands, set up before each command runs
type cliContext struct {
	cfg       *config.CLIEnvironment
	appLogger *slog.Logger
	client    *AdminClient
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{}

	rootCmd := &cobra.Command{
		Use:               "passbook-cli",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "passbook-server admin CLI",
		Long: `Admin CLI for passbook-server: create and manage passes and check signing credentials.

The server is addressed with PASSBOOK_SERVER_URL (default http://localhost:8080).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cc.cfg, err = config.NewCLIConfig()
			if err != nil {
				log.Printf("failed to load configuration: %v", err.Error())
				return err
			}

			cc.appLogger = logger.InitLogger(logger.ParseLogLevel(cc.cfg.LogLevel), cc.cfg.Environment)
			cc.client = NewAdminClient(cc.cfg.ServerURL, cc.cfg.HTTPTimeout, cc.cfg.HTTPRetries, cc.appLogger)
			return nil
		},
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.AddCommand(newPassCmd(cc))
	rootCmd.AddCommand(newCertCmd(cc))

	return rootCmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
