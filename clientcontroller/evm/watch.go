package evm

import (
	"context"
	"fmt"
	"time"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
)

// WatchBlocks streams new head numbers. The channel is closed when ctx is
// done or the subscription fails.
func (c *Client) WatchBlocks(ctx context.Context) (<-chan uint64, error) {
	if config.IsWebsocketAddr(c.cfg.RPCAddr) {
		return c.subscribeHeads(ctx)
	}

	out := make(chan uint64)
	go c.pollHeads(ctx, out)

	return out, nil
}

func (c *Client) subscribeHeads(ctx context.Context) (<-chan uint64, error) {
	headers := make(chan *ethtypes.Header, 16)
	sub, err := c.backend.SubscribeNewHead(ctx, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to new heads: %w", err)
	}

	out := make(chan uint64)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				c.logger.Warn("the head subscription ended", zap.Error(err))

				return
			case header := <-headers:
				select {
				case out <- header.Number.Uint64():
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *Client) pollHeads(ctx context.Context, out chan<- uint64) {
	defer close(out)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	var last uint64
	for {
		head, err := c.latestBlockNumber(ctx)
		if err != nil {
			c.logger.Debug("failed to poll the block number", zap.Error(err))
		} else if head != last {
			last = head
			select {
			case out <- head:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) latestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	return c.backend.BlockNumber(ctx)
}
