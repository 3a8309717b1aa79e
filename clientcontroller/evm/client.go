package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller/api"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

var _ api.ChainClient = &Client{}

// DroppedTxPolls is the number of consecutive receipt polls during which the
// node must not know a transaction before it is considered dropped.
const DroppedTxPolls = 3

// Backend is the part of *ethclient.Client used by Client.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	Close()
}

// Client talks to an EVM chain hosting the entropy contract on behalf of
// one provider. Websocket endpoints subscribe to new heads, http endpoints
// poll for them.
type Client struct {
	chainID  string
	cfg      *config.ChainConfig
	backend  Backend
	contract *entropyContract

	contractAddr common.Address
	provider     common.Address
	signerKey    *ecdsa.PrivateKey
	from         common.Address
	signer       ethtypes.Signer
	evmChainID   *big.Int

	nonces *nonceCache
	logger *zap.Logger
}

// NewClient dials the rpc endpoint of cfg.
func NewClient(
	chainID string,
	cfg *config.ChainConfig,
	provider common.Address,
	signerKey *ecdsa.PrivateKey,
	logger *zap.Logger,
) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	defer cancel()

	ethClient, err := ethclient.DialContext(ctx, cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCAddr, err)
	}

	c, err := NewClientWithBackend(ctx, chainID, cfg, ethClient, provider, signerKey, logger)
	if err != nil {
		ethClient.Close()

		return nil, err
	}

	return c, nil
}

func NewClientWithBackend(
	ctx context.Context,
	chainID string,
	cfg *config.ChainConfig,
	backend Backend,
	provider common.Address,
	signerKey *ecdsa.PrivateKey,
	logger *zap.Logger,
) (*Client, error) {
	contract, err := newEntropyContract()
	if err != nil {
		return nil, err
	}

	evmChainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the chain id: %w", err)
	}

	return &Client{
		chainID:      chainID,
		cfg:          cfg,
		backend:      backend,
		contract:     contract,
		contractAddr: cfg.GetContractAddr(),
		provider:     provider,
		signerKey:    signerKey,
		from:         crypto.PubkeyToAddress(signerKey.PublicKey),
		signer:       ethtypes.LatestSignerForChainID(evmChainID),
		evmChainID:   evmChainID,
		nonces:       &nonceCache{},
		logger: logger.With(
			zap.String("module", "evm_client"),
			zap.String("chain_id", chainID),
			zap.Stringer("evm_chain_id", evmChainID),
		),
	}, nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.RPCTimeout)
}

// From returns the address paying for reveals.
func (c *Client) From() common.Address {
	return c.from
}

func (c *Client) GetBlockNumber(ctx context.Context, status types.BlockStatus) (uint64, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	var number *big.Int
	switch status {
	case types.BlockStatusLatest:
		return c.backend.BlockNumber(ctx)
	case types.BlockStatusSafe:
		number = big.NewInt(ethrpc.SafeBlockNumber.Int64())
	case types.BlockStatusFinalized:
		number = big.NewInt(ethrpc.FinalizedBlockNumber.Int64())
	default:
		return 0, fmt.Errorf("unsupported block status %s", status)
	}

	header, err := c.backend.HeaderByNumber(ctx, number)
	if err != nil {
		return 0, err
	}

	return header.Number.Uint64(), nil
}

func (c *Client) GetRequestEvents(ctx context.Context, from, to uint64) ([]*types.RequestEvent, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	logs, err := c.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contractAddr},
		Topics: [][]common.Hash{
			{c.contract.requestedWithCallbackID()},
			{common.BytesToHash(c.provider.Bytes())},
		},
	})
	if err != nil {
		return nil, err
	}

	events := make([]*types.RequestEvent, 0, len(logs))
	for i := range logs {
		if logs[i].Removed {
			continue
		}
		event, err := c.contract.unpackRequestEvent(&logs[i])
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, nil
}

func (c *Client) GetProviderCommitment(ctx context.Context) (*types.ProviderCommitment, error) {
	data, err := c.contract.packGetProviderInfo(c.provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contractAddr, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	return c.contract.unpackProviderCommitment(out)
}

func (c *Client) RevealCall(event *types.RequestEvent, revelation [32]byte) (*types.Call, error) {
	data, err := c.contract.packReveal(event.Provider, event.SequenceNumber, event.UserRandomNumber, revelation)
	if err != nil {
		return nil, fmt.Errorf("failed to pack the reveal of request %d: %w", event.SequenceNumber, err)
	}

	return &types.Call{To: c.contractAddr, Data: data}, nil
}

func (c *Client) EstimateGas(ctx context.Context, call *types.Call) (uint64, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	return c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.from,
		To:    &call.To,
		Value: call.Value,
		Data:  call.Data,
	})
}

// GetFeeEstimate returns the gas price as MaxFeePerGas on legacy chains.
// Otherwise the fee cap leaves room for the base fee to double.
func (c *Client) GetFeeEstimate(ctx context.Context) (*types.FeeEstimate, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	if c.cfg.LegacyTx {
		gasPrice, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get the gas price: %w", err)
		}

		return &types.FeeEstimate{MaxFeePerGas: gasPrice}, nil
	}

	tipCap, err := c.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get the gas tip cap: %w", err)
	}
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get the latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, fmt.Errorf("the chain does not support dynamic fees, set legacy_tx")
	}

	feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	return &types.FeeEstimate{MaxFeePerGas: feeCap, MaxPriorityFeePerGas: tipCap}, nil
}

func (c *Client) FillTransaction(ctx context.Context, tx *types.Transaction) error {
	nonce, err := c.nonces.get(ctx, func(ctx context.Context) (uint64, error) {
		ctx, cancel := c.rpcContext(ctx)
		defer cancel()

		return c.backend.PendingNonceAt(ctx, c.from)
	})
	if err != nil {
		return fmt.Errorf("failed to get the pending nonce of %s: %w", c.from.Hex(), err)
	}

	fees, err := c.GetFeeEstimate(ctx)
	if err != nil {
		return err
	}

	tx.Nonce = nonce
	tx.GasFeeCap = fees.MaxFeePerGas
	tx.GasTipCap = fees.MaxPriorityFeePerGas

	return nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signed, err := ethtypes.SignTx(c.toEthTx(tx), c.signer, c.signerKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign the transaction: %w", err)
	}

	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		if strings.Contains(err.Error(), "nonce too low") {
			c.nonces.reset()
		}

		return common.Hash{}, err
	}
	c.nonces.advance(tx.Nonce)

	return signed.Hash(), nil
}

func (c *Client) toEthTx(tx *types.Transaction) *ethtypes.Transaction {
	to := tx.To
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	if !tx.IsDynamicFee() {
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    tx.Nonce,
			GasPrice: tx.GasFeeCap,
			Gas:      tx.GasLimit,
			To:       &to,
			Value:    value,
			Data:     tx.Data,
		})
	}

	return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   c.evmChainID,
		Nonce:     tx.Nonce,
		GasTipCap: tx.GasTipCap,
		GasFeeCap: tx.GasFeeCap,
		Gas:       tx.GasLimit,
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	})
}

// WaitForReceipt polls for the receipt every poll interval. It returns
// nil, nil when the node has not known the transaction for
// DroppedTxPolls consecutive polls.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	unknownPolls := 0
	for {
		receipt, err := c.getReceipt(ctx, txHash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			known, err := c.isKnown(ctx, txHash)
			switch {
			case err != nil:
				c.logger.Debug("failed to look up the transaction", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
			case known:
				unknownPolls = 0
			default:
				// behind a load balancer the polled node may not have seen the broadcast yet
				unknownPolls++
				if unknownPolls >= DroppedTxPolls {
					return nil, nil
				}
			}
		default:
			c.logger.Debug("failed to query the receipt", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) getReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	receipt, err := c.backend.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	return &types.Receipt{
		TxHash:            receipt.TxHash,
		BlockNumber:       receipt.BlockNumber.Uint64(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
		Status:            receipt.Status,
	}, nil
}

func (c *Client) isKnown(ctx context.Context, txHash common.Hash) (bool, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	_, _, err := c.backend.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (c *Client) ResetNonce() {
	c.nonces.reset()
}

func (c *Client) Close() error {
	c.backend.Close()

	return nil
}
