// Command bastion runs the admin console API and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile string
	envFile    string
}

func newRootCommand() *cobra.Command {
	var flags globalFlags
	cmd := &cobra.Command{
		Use:           "bastion",
		Short:         "Multi-tenant admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default ./bastion.yaml or ./configs/bastion.yaml)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	cmd.AddCommand(
		newServeCommand(&flags),
		newMigrateCommand(&flags),
		newSeedCommand(&flags),
		newSettingsCommand(&flags),
		newProvisionUserCommand(&flags),
		newTokenCommand(&flags),
	)
	return cmd
}
