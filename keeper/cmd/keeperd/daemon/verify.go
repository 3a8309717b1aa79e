package daemon

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/service"
	"github.com/babylonlabs-io/entropy-keeper/log"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
)

type verifyCommitmentResp struct {
	ChainID            string `json:"chain_id"`
	Provider           string `json:"provider"`
	LastSequenceNumber uint64 `json:"last_sequence_number"`
	Verified           bool   `json:"verified"`
}

// CommandVerifyCommitment returns the verify-commitment command. It runs the
// startup check of a chain pipeline without serving any request.
func CommandVerifyCommitment(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "verify-commitment",
		Aliases: []string{"vc"},
		Short:   "Check that the local hash chain matches the on-chain commitment of the provider.",
		Example: fmt.Sprintf(`%s verify-commitment --chain-id ethereum --home /home/user/.keeperd`, binaryName),
		Args:    cobra.NoArgs,
		RunE:    runVerifyCommitmentCmd,
	}
	cmd.Flags().String(chainIDFlag, "", "The identifier of the chain in the config")

	if err := cmd.MarkFlagRequired(chainIDFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runVerifyCommitmentCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(homePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	chainID, err := cmd.Flags().GetString(chainIDFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", chainIDFlag, err)
	}
	chainCfg, ok := cfg.Chains[chainID]
	if !ok {
		return fmt.Errorf("%w: %s", service.ErrUnknownChain, chainID)
	}

	logger, err := log.NewRootLogger(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize the logger: %w", err)
	}

	secret, err := cfg.Provider.LoadSecret()
	if err != nil {
		return err
	}
	signerKey, err := cfg.Provider.LoadSignerKey()
	if err != nil {
		return err
	}
	provider := cfg.Provider.GetAddress()

	client, err := clientcontroller.NewChainClient(chainID, chainCfg, provider, signerKey, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn(fmt.Sprintf("failed to close the client: %v", err))
		}
	}()

	// nothing is revealed, so neither a store nor an observer is needed
	km := metrics.NewKeeperMetrics(prometheus.NewRegistry())
	pipeline := service.NewChainPipeline(chainID, chainCfg, provider, secret, client, nil, km, nil, logger)

	state, err := pipeline.LoadHashChainState(cmd.Context())
	if err != nil {
		return err
	}

	printRespJSON(cmd, &verifyCommitmentResp{
		ChainID:            chainID,
		Provider:           provider.Hex(),
		LastSequenceNumber: state.LastSequenceNumber(),
		Verified:           true,
	})

	return nil
}
