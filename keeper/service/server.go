package service

import (
	"context"
	"fmt"

	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

// KeeperServer is the main daemon construct of keeperd. It runs the keeper
// app next to the metrics server and logs every submission result.
type KeeperServer struct {
	started *atomic.Bool

	cfg          *config.Config
	app          *KeeperApp
	db           kvdb.Backend
	gatherer     prometheus.Gatherer
	observations <-chan *types.SubmitTxResult
	logger       *zap.Logger
}

// NewKeeperServer creates a server. observations may be nil.
func NewKeeperServer(
	cfg *config.Config,
	app *KeeperApp,
	db kvdb.Backend,
	gatherer prometheus.Gatherer,
	observations <-chan *types.SubmitTxResult,
	logger *zap.Logger,
) *KeeperServer {
	return &KeeperServer{
		started:      atomic.NewBool(false),
		cfg:          cfg,
		app:          app,
		db:           db,
		gatherer:     gatherer,
		observations: observations,
		logger:       logger.With(zap.String("module", "server")),
	}
}

// RunUntilShutdown runs the keeper until ctx is done, then stops the app and
// closes the database.
func (s *KeeperServer) RunUntilShutdown(ctx context.Context) error {
	if s.started.Swap(true) {
		return fmt.Errorf("the keeper server is already running")
	}

	defer func() {
		s.logger.Info("Shutdown complete")
	}()

	defer func() {
		s.logger.Info("Closing database...")
		if err := s.db.Close(); err != nil {
			s.logger.Error("failed to close the database", zap.Error(err))
		} else {
			s.logger.Info("Database closed")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if s.cfg.Metrics.Enabled {
		promAddr, err := s.cfg.Metrics.Address()
		if err != nil {
			return fmt.Errorf("failed to get prometheus address: %w", err)
		}
		metricsServer := metrics.NewPullServer(promAddr, s.gatherer, s.logger)
		g.Go(func() error {
			return metricsServer.Run(gctx)
		})
	}

	if s.observations != nil {
		g.Go(func() error {
			s.observationLoop(gctx)

			return nil
		})
	}

	if err := s.app.Start(gctx); err != nil {
		return err
	}
	defer func() {
		if err := s.app.Stop(); err != nil {
			s.logger.Error("failed to stop the keeper", zap.Error(err))
		}
	}()

	s.logger.Info("Entropy keeper daemon is fully active!")

	// the group context is also cancelled by a failing metrics server
	<-gctx.Done()

	if err := g.Wait(); err != nil {
		return err
	}

	return nil
}

func (s *KeeperServer) observationLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-s.observations:
			if !ok {
				return
			}
			s.logObservation(res)
		}
	}
}

func (s *KeeperServer) logObservation(res *types.SubmitTxResult) {
	fields := []zap.Field{
		zap.String("chain_id", res.ChainID),
		zap.Uint64("sequence_number", res.SequenceNumber),
		zap.Uint64("num_retries", res.NumRetries),
		zap.Uint64("gas_multiplier_pct", res.GasMultiplierPct),
		zap.Uint64("fee_multiplier_pct", res.FeeMultiplierPct),
		zap.Uint64("nonce_resets", res.NonceResets),
		zap.Duration("duration", res.Duration),
	}
	if !res.Succeeded() {
		s.logger.Debug("submission result", append(fields, zap.Error(res.Err))...)

		return
	}

	s.logger.Debug("submission result", append(fields,
		zap.String("tx_hash", res.Receipt.TxHash.Hex()),
		zap.Stringer("fee_wei", res.Receipt.Fee()),
	)...)
}
