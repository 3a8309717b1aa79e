package daemon

import (
	"fmt"
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/service"
	"github.com/babylonlabs-io/entropy-keeper/log"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

const observationBufferSize = 256

// CommandStart returns the start command of keeperd daemon.
func CommandStart(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "start",
		Short:   "Start the keeper daemon.",
		Long:    `Start the keeper. It serves every chain in the config until it receives SIGINT or SIGTERM.`,
		Example: fmt.Sprintf(`%s start --home /home/user/.keeperd`, binaryName),
		Args:    cobra.NoArgs,
		RunE:    runStartCmd,
	}
	cmd.Flags().String(logFormatFlag, "", "Overrides the log format of the config (json, console, logfmt)")
	cmd.Flags().String(metricsAddrFlag, "", "Overrides the host:port the metrics server listens to")

	return cmd
}

func runStartCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(homePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := applyStartFlags(cmd.Flags(), cfg); err != nil {
		return err
	}

	logger, err := log.NewRootLoggerWithFile(config.LogFile(homePath), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize the logger: %w", err)
	}

	dbBackend, err := cfg.DatabaseConfig.GetDBBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}

	observations := make(chan *types.SubmitTxResult, observationBufferSize)
	app, err := service.NewKeeperAppFromConfig(cfg, dbBackend, observations, logger)
	if err != nil {
		_ = dbBackend.Close()

		return fmt.Errorf("failed to create the keeper app: %w", err)
	}

	server := service.NewKeeperServer(cfg, app, dbBackend, prometheus.DefaultGatherer, observations, logger)

	if err := server.RunUntilShutdown(cmd.Context()); err != nil {
		return fmt.Errorf("failed to run the keeper server: %w", err)
	}

	return nil
}

// applyStartFlags lets flags take preference over the config file.
func applyStartFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed(logFormatFlag) {
		logFormat, err := flags.GetString(logFormatFlag)
		if err != nil {
			return fmt.Errorf("failed to read flag %s: %w", logFormatFlag, err)
		}
		cfg.LogFormat = logFormat
	}

	if flags.Changed(metricsAddrFlag) {
		metricsAddr, err := flags.GetString(metricsAddrFlag)
		if err != nil {
			return fmt.Errorf("failed to read flag %s: %w", metricsAddrFlag, err)
		}
		host, portStr, err := net.SplitHostPort(metricsAddr)
		if err != nil {
			return fmt.Errorf("invalid metrics address %s: %w", metricsAddr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid metrics port %s: %w", portStr, err)
		}
		cfg.Metrics.Host = host
		cfg.Metrics.Port = port
		if err := cfg.Metrics.Validate(); err != nil {
			return fmt.Errorf("invalid metrics address %s: %w", metricsAddr, err)
		}
	}

	return nil
}
