package clientcontroller

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/evm"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
)

// NewChainClient connects to the chain described by cfg.
func NewChainClient(
	chainID string,
	cfg *config.ChainConfig,
	provider common.Address,
	signerKey *ecdsa.PrivateKey,
	logger *zap.Logger,
) (api.ChainClient, error) {
	client, err := evm.NewClient(chainID, cfg, provider, signerKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create the evm client of chain %s: %w", chainID, err)
	}

	return client, nil
}
