package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/entropy-keeper/keeper/cmd/keeperd/daemon"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/version"
)

const BinaryName = "keeperd"

// NewRootCmd creates a new root command for keeperd. It is called once in the main function.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           BinaryName,
		Short:         fmt.Sprintf("%s - Entropy Keeper Daemon.", BinaryName),
		Long:          fmt.Sprintf(`%s reveals the hash chain values of a randomness provider for every request it receives.`, BinaryName),
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String(daemon.HomeFlag, config.DefaultKeeperdDir, "The application home directory")

	return rootCmd
}

func main() {
	cmd := NewRootCmd()

	// add daemon commands
	daemon.AddDaemonCommands(cmd, BinaryName)
	// add version command
	cmd.AddCommand(version.CommandVersion(BinaryName))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your keeperd CLI '%s'", err)
		os.Exit(1) //nolint:gocritic
	}
}
