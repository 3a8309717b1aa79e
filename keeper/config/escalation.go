package config

import (
	"fmt"
)

const (
	defaultGasLimitTolerancePct    = 110
	defaultInitialGasMultiplierPct = 125
	defaultGasMultiplierPct        = 110
	defaultGasMultiplierCapPct     = 600
	defaultFeeMultiplierPct        = 110
	defaultFeeMultiplierCapPct     = 200

	// a multiplier of 100 leaves the value unchanged
	noChangePct = 100
)

// EscalationPolicyConfig maps the retry count of a submission to the gas
// and fee multipliers of its next attempt. All values are percentages.
type EscalationPolicyConfig struct {
	// GasLimitTolerancePct bounds the padded gas limit relative to the hard gas limit
	GasLimitTolerancePct uint64 `koanf:"gas_limit_tolerance_pct" yaml:"gas_limit_tolerance_pct"`

	InitialGasMultiplierPct uint64 `koanf:"initial_gas_multiplier_pct" yaml:"initial_gas_multiplier_pct"`
	GasMultiplierPct        uint64 `koanf:"gas_multiplier_pct" yaml:"gas_multiplier_pct"`
	GasMultiplierCapPct     uint64 `koanf:"gas_multiplier_cap_pct" yaml:"gas_multiplier_cap_pct"`

	FeeMultiplierPct    uint64 `koanf:"fee_multiplier_pct" yaml:"fee_multiplier_pct"`
	FeeMultiplierCapPct uint64 `koanf:"fee_multiplier_cap_pct" yaml:"fee_multiplier_cap_pct"`
}

func DefaultEscalationPolicyConfig() EscalationPolicyConfig {
	return EscalationPolicyConfig{
		GasLimitTolerancePct:    defaultGasLimitTolerancePct,
		InitialGasMultiplierPct: defaultInitialGasMultiplierPct,
		GasMultiplierPct:        defaultGasMultiplierPct,
		GasMultiplierCapPct:     defaultGasMultiplierCapPct,
		FeeMultiplierPct:        defaultFeeMultiplierPct,
		FeeMultiplierCapPct:     defaultFeeMultiplierCapPct,
	}
}

// GetGasMultiplierPct returns the gas multiplier for the attempt following
// numRetries failed attempts
func (p EscalationPolicyConfig) GetGasMultiplierPct(numRetries uint64) uint64 {
	return applyMultiplier(numRetries, p.InitialGasMultiplierPct, p.GasMultiplierPct, p.GasMultiplierCapPct)
}

// GetFeeMultiplierPct returns the fee multiplier for the attempt following
// numRetries failed attempts
func (p EscalationPolicyConfig) GetFeeMultiplierPct(numRetries uint64) uint64 {
	return applyMultiplier(numRetries, noChangePct, p.FeeMultiplierPct, p.FeeMultiplierCapPct)
}

// GetMaxGasLimit returns the highest gas limit a padded transaction may carry
func (p EscalationPolicyConfig) GetMaxGasLimit(gasLimit uint64) uint64 {
	return gasLimit * p.GasLimitTolerancePct / 100
}

func applyMultiplier(numRetries, initialPct, multiplierPct, capPct uint64) uint64 {
	current := initialPct
	for i := uint64(0); i < numRetries; i++ {
		current = current * multiplierPct / 100
		// once capped, further retries cannot change the result
		if current >= capPct {
			return capPct
		}
	}

	if current > capPct {
		return capPct
	}

	return current
}

func (p EscalationPolicyConfig) Validate() error {
	if p.GasLimitTolerancePct < noChangePct {
		return fmt.Errorf("gas limit tolerance must be at least %d%%, got %d%%", noChangePct, p.GasLimitTolerancePct)
	}
	if p.InitialGasMultiplierPct < noChangePct {
		return fmt.Errorf("initial gas multiplier must be at least %d%%, got %d%%", noChangePct, p.InitialGasMultiplierPct)
	}
	if p.GasMultiplierPct < noChangePct {
		return fmt.Errorf("gas multiplier must be at least %d%%, got %d%%", noChangePct, p.GasMultiplierPct)
	}
	if p.GasMultiplierCapPct < p.InitialGasMultiplierPct {
		return fmt.Errorf("gas multiplier cap %d%% must not be less than the initial gas multiplier %d%%",
			p.GasMultiplierCapPct, p.InitialGasMultiplierPct)
	}
	if p.FeeMultiplierPct < noChangePct {
		return fmt.Errorf("fee multiplier must be at least %d%%, got %d%%", noChangePct, p.FeeMultiplierPct)
	}
	if p.FeeMultiplierCapPct < noChangePct {
		return fmt.Errorf("fee multiplier cap must be at least %d%%, got %d%%", noChangePct, p.FeeMultiplierCapPct)
	}

	return nil
}
