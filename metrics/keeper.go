package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/babylonlabs-io/entropy-keeper/types"
)

type KeeperMetrics struct {
	safeBlock            *prometheus.GaugeVec
	lastProcessedBlock   *prometheus.GaugeVec
	blockRangesProcessed *prometheus.CounterVec
	requestsProcessed    *prometheus.CounterVec
	requestsFailed       *prometheus.CounterVec
	requestsSkipped      *prometheus.CounterVec
	nonceResets          *prometheus.CounterVec
	pipelineRestarts     *prometheus.CounterVec
	pipelineHalted       *prometheus.GaugeVec
	submissionDuration   *prometheus.HistogramVec
	submissionRetries    *prometheus.HistogramVec
	gasMultiplierPct     *prometheus.GaugeVec
	feeMultiplierPct     *prometheus.GaugeVec
	revealGasUsed        *prometheus.CounterVec
}

// NewKeeperMetrics creates the keeper collectors and registers them with registry.
func NewKeeperMetrics(registry prometheus.Registerer) *KeeperMetrics {
	m := &KeeperMetrics{
		safeBlock: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keeper_safe_block",
				Help: "The highest block whose requests are safe to reveal",
			},
			[]string{"chain_id"},
		),
		lastProcessedBlock: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keeper_last_processed_block",
				Help: "The last block whose requests were processed",
			},
			[]string{"chain_id"},
		),
		blockRangesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_block_ranges_processed_total",
				Help: "The number of block ranges whose requests were processed",
			},
			[]string{"chain_id"},
		),
		requestsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_requests_processed_total",
				Help: "The number of requests whose reveal landed on chain",
			},
			[]string{"chain_id"},
		),
		requestsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_requests_failed_total",
				Help: "The number of requests whose reveal could not be submitted",
			},
			[]string{"chain_id"},
		),
		requestsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_requests_skipped_total",
				Help: "The number of requests skipped, partitioned by reason",
			},
			[]string{"chain_id", "reason"},
		),
		nonceResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_nonce_resets_total",
				Help: "The number of times the cached nonce was dropped after a stuck or dropped transaction",
			},
			[]string{"chain_id"},
		),
		pipelineRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_pipeline_restarts_total",
				Help: "The number of times a chain pipeline was restarted after a failure",
			},
			[]string{"chain_id"},
		),
		pipelineHalted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keeper_pipeline_halted",
				Help: "1 if the pipeline of the chain was stopped for good",
			},
			[]string{"chain_id"},
		),
		submissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keeper_submission_duration_seconds",
				Help:    "The time from the first attempt of a reveal submission to its outcome",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"chain_id", "success"},
		),
		submissionRetries: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keeper_submission_retries",
				Help:    "The number of retries a reveal submission needed",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"chain_id"},
		),
		gasMultiplierPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keeper_last_gas_multiplier_pct",
				Help: "The gas multiplier used by the last attempt of the last submission",
			},
			[]string{"chain_id"},
		),
		feeMultiplierPct: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "keeper_last_fee_multiplier_pct",
				Help: "The fee multiplier used by the last attempt of the last submission",
			},
			[]string{"chain_id"},
		),
		revealGasUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keeper_reveal_gas_used_total",
				Help: "The total gas used by reveal transactions",
			},
			[]string{"chain_id"},
		),
	}

	registry.MustRegister(
		m.safeBlock,
		m.lastProcessedBlock,
		m.blockRangesProcessed,
		m.requestsProcessed,
		m.requestsFailed,
		m.requestsSkipped,
		m.nonceResets,
		m.pipelineRestarts,
		m.pipelineHalted,
		m.submissionDuration,
		m.submissionRetries,
		m.gasMultiplierPct,
		m.feeMultiplierPct,
		m.revealGasUsed,
	)

	return m
}

func (m *KeeperMetrics) RecordSafeBlock(chainID string, block uint64) {
	m.safeBlock.WithLabelValues(chainID).Set(float64(block))
}

func (m *KeeperMetrics) RecordBlockRangeProcessed(chainID string, br types.BlockRange) {
	m.blockRangesProcessed.WithLabelValues(chainID).Inc()
	m.lastProcessedBlock.WithLabelValues(chainID).Set(float64(br.To))
}

func (m *KeeperMetrics) IncRequestsSkipped(chainID string, reason string) {
	m.requestsSkipped.WithLabelValues(chainID, reason).Inc()
}

func (m *KeeperMetrics) IncPipelineRestarts(chainID string) {
	m.pipelineRestarts.WithLabelValues(chainID).Inc()
}

func (m *KeeperMetrics) RecordPipelineHalted(chainID string) {
	m.pipelineHalted.WithLabelValues(chainID).Set(1)
}

// RecordSubmitTxResult records the outcome of one logical reveal submission.
func (m *KeeperMetrics) RecordSubmitTxResult(res *types.SubmitTxResult) {
	success := res.Succeeded()
	if success {
		m.requestsProcessed.WithLabelValues(res.ChainID).Inc()
		m.revealGasUsed.WithLabelValues(res.ChainID).Add(float64(res.Receipt.GasUsed))
	} else {
		m.requestsFailed.WithLabelValues(res.ChainID).Inc()
	}

	m.submissionDuration.WithLabelValues(res.ChainID, strconv.FormatBool(success)).Observe(res.Duration.Seconds())
	m.submissionRetries.WithLabelValues(res.ChainID).Observe(float64(res.NumRetries))
	m.nonceResets.WithLabelValues(res.ChainID).Add(float64(res.NonceResets))
	m.gasMultiplierPct.WithLabelValues(res.ChainID).Set(float64(res.GasMultiplierPct))
	m.feeMultiplierPct.WithLabelValues(res.ChainID).Set(float64(res.FeeMultiplierPct))
}
