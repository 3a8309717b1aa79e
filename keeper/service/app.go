package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/kvdb"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/babylonlabs-io/entropy-keeper/clientcontroller"
	"github.com/babylonlabs-io/entropy-keeper/hashchain"
	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/store"
	"github.com/babylonlabs-io/entropy-keeper/metrics"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

var ErrUnknownChain = errors.New("the chain is not served by this keeper")

// PipelineState is the supervisor's view of a chain pipeline.
type PipelineState int32

const (
	PipelineStarting PipelineState = iota
	PipelineRunning
	PipelineRestarting
	PipelineHalted
	PipelineStopped
)

func (s PipelineState) String() string {
	switch s {
	case PipelineStarting:
		return "starting"
	case PipelineRunning:
		return "running"
	case PipelineRestarting:
		return "restarting"
	case PipelineHalted:
		return "halted"
	case PipelineStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// ChainStatus reports the health of one chain pipeline.
type ChainStatus struct {
	ChainID            string
	State              PipelineState
	SubmitterState     SubmitterState
	Restarts           uint64
	LastError          error
	LastSafeBlock      uint64
	LastProcessedBlock uint64
}

type supervisedPipeline struct {
	pipeline *ChainPipeline
	state    *atomic.Int32
	restarts *atomic.Uint64
	lastErr  *atomic.Error
}

func (sp *supervisedPipeline) setState(s PipelineState) {
	sp.state.Store(int32(s))
}

// KeeperApp supervises one pipeline per configured chain. All pipelines
// share the shutdown signal given to Start. A failed pipeline is restarted
// after a cooldown unless its hash chain does not match the on-chain
// commitment, in which case the chain stays halted.
type KeeperApp struct {
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
	cancel    context.CancelFunc

	config    *config.Config
	pipelines map[string]*supervisedPipeline
	metrics   *metrics.KeeperMetrics
	logger    *zap.Logger
}

// NewKeeperAppFromConfig connects to every configured chain and creates the
// app. Submission results are sent to observations when it is not nil.
func NewKeeperAppFromConfig(
	cfg *config.Config,
	db kvdb.Backend,
	observations chan<- *types.SubmitTxResult,
	logger *zap.Logger,
) (*KeeperApp, error) {
	secret, err := cfg.Provider.LoadSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to load the provider secret: %w", err)
	}
	signerKey, err := cfg.Provider.LoadSignerKey()
	if err != nil {
		return nil, fmt.Errorf("failed to load the signer key: %w", err)
	}
	revealStore, err := store.NewRevealStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initiate the reveal store: %w", err)
	}

	km := metrics.NewKeeperMetrics(prometheus.DefaultRegisterer)
	provider := cfg.Provider.GetAddress()

	pipelines := make([]*ChainPipeline, 0, len(cfg.Chains))
	for chainID, chainCfg := range cfg.Chains {
		client, err := clientcontroller.NewChainClient(chainID, chainCfg, provider, signerKey, logger)
		if err != nil {
			for _, p := range pipelines {
				_ = p.Close()
			}

			return nil, fmt.Errorf("failed to create the client of chain %s: %w", chainID, err)
		}
		pipelines = append(pipelines, NewChainPipeline(
			chainID, chainCfg, provider, secret, client, revealStore, km, observations, logger,
		))
	}

	return NewKeeperApp(cfg, pipelines, km, logger), nil
}

func NewKeeperApp(
	cfg *config.Config,
	pipelines []*ChainPipeline,
	km *metrics.KeeperMetrics,
	logger *zap.Logger,
) *KeeperApp {
	supervised := make(map[string]*supervisedPipeline, len(pipelines))
	for _, p := range pipelines {
		supervised[p.ChainID()] = &supervisedPipeline{
			pipeline: p,
			state:    atomic.NewInt32(int32(PipelineStarting)),
			restarts: atomic.NewUint64(0),
			lastErr:  atomic.NewError(nil),
		}
	}

	return &KeeperApp{
		config:    cfg,
		pipelines: supervised,
		metrics:   km,
		logger:    logger.With(zap.String("module", "keeper")),
	}
}

// Start runs every pipeline in the background until ctx is done or Stop
// is called.
func (app *KeeperApp) Start(ctx context.Context) error {
	started := false
	app.startOnce.Do(func() {
		app.logger.Info("starting the keeper", zap.Strings("chains", app.ChainIDs()))

		ctx, app.cancel = context.WithCancel(ctx)

		app.wg.Add(len(app.pipelines) + 1)
		for _, sp := range app.pipelines {
			go app.superviseLoop(ctx, sp)
		}
		go app.metricsUpdateLoop(ctx)
		started = true
	})
	if !started {
		return fmt.Errorf("the keeper is already started")
	}

	return nil
}

// Stop signals every pipeline to shut down, waits for in-flight reveals to
// finish and closes the chain clients.
func (app *KeeperApp) Stop() error {
	var stopErr error
	app.stopOnce.Do(func() {
		app.logger.Info("stopping the keeper")

		if app.cancel != nil {
			app.cancel()
		}
		app.wg.Wait()

		for chainID, sp := range app.pipelines {
			if err := sp.pipeline.Close(); err != nil {
				stopErr = errors.Join(stopErr, fmt.Errorf("failed to close the client of chain %s: %w", chainID, err))
			}
		}

		app.logger.Debug("the keeper is stopped")
	})

	return stopErr
}

func (app *KeeperApp) superviseLoop(ctx context.Context, sp *supervisedPipeline) {
	defer app.wg.Done()

	chainID := sp.pipeline.ChainID()
	logger := app.logger.With(zap.String("chain_id", chainID))

	for {
		sp.setState(PipelineRunning)
		err := sp.pipeline.Run(ctx)
		if ctx.Err() != nil {
			sp.setState(PipelineStopped)
			logger.Info("the pipeline is stopped")

			return
		}
		if err == nil {
			err = errors.New("the pipeline exited without an error")
		}
		sp.lastErr.Store(err)

		if haltsPipeline(err) {
			sp.setState(PipelineHalted)
			app.metrics.RecordPipelineHalted(chainID)
			logger.Error("halting the pipeline, the provider configuration must be fixed", zap.Error(err))

			return
		}

		sp.setState(PipelineRestarting)
		sp.restarts.Inc()
		app.metrics.IncPipelineRestarts(chainID)
		logger.Error("the pipeline failed, restarting it",
			zap.Duration("cooldown", app.config.RestartCooldown), zap.Error(err))

		select {
		case <-time.After(app.config.RestartCooldown):
		case <-ctx.Done():
			sp.setState(PipelineStopped)

			return
		}
	}
}

func (app *KeeperApp) metricsUpdateLoop(ctx context.Context) {
	defer app.wg.Done()

	interval := app.config.Metrics.UpdateInterval
	app.logger.Info("starting metrics update loop",
		zap.Float64("interval seconds", interval.Seconds()))

	updateTicker := time.NewTicker(interval)
	defer updateTicker.Stop()

	for {
		for chainID, sp := range app.pipelines {
			if safe := sp.pipeline.LastSafeBlock(); safe > 0 {
				app.metrics.RecordSafeBlock(chainID, safe)
			}
		}
		select {
		case <-updateTicker.C:
			continue
		case <-ctx.Done():
			app.logger.Info("exiting metrics update loop")

			return
		}
	}
}

// Reveal returns the revelation of a request on the given chain.
func (app *KeeperApp) Reveal(chainID string, seq uint64) (hashchain.Digest, error) {
	sp, ok := app.pipelines[chainID]
	if !ok {
		return hashchain.Digest{}, fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}

	return sp.pipeline.Reveal(seq)
}

// ChainIDs returns the served chains in lexical order.
func (app *KeeperApp) ChainIDs() []string {
	ids := make([]string, 0, len(app.pipelines))
	for chainID := range app.pipelines {
		ids = append(ids, chainID)
	}
	sort.Strings(ids)

	return ids
}

func (app *KeeperApp) ChainStatuses() []*ChainStatus {
	statuses := make([]*ChainStatus, 0, len(app.pipelines))
	for _, chainID := range app.ChainIDs() {
		sp := app.pipelines[chainID]
		statuses = append(statuses, &ChainStatus{
			ChainID:            chainID,
			State:              PipelineState(sp.state.Load()),
			SubmitterState:     sp.pipeline.SubmitterState(),
			Restarts:           sp.restarts.Load(),
			LastError:          sp.lastErr.Load(),
			LastSafeBlock:      sp.pipeline.LastSafeBlock(),
			LastProcessedBlock: sp.pipeline.LastProcessedBlock(),
		})
	}

	return statuses
}
