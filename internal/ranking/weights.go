// Package ranking converts phase reports into weighted failure
// signals and ranks them into a machine-readable diagnosis.
package ranking

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Signal IDs. Weights express how damning each finding is; the ranker
// sorts on them.
const (
	SigLookahead          = "lookahead"
	SigStructural         = "structural_integrity"
	SigNoTrades           = "no_trades"
	SigNegativeExpectancy = "negative_expectancy"
	SigNotSignificant     = "not_significant"
	SigLowTradeCount      = "low_trade_count"
	SigSteepDrawdown      = "steep_drawdown"
	SigDrawdownChurn      = "drawdown_churn"
	SigCostFragility      = "cost_fragility"
	SigStopPlacement      = "stop_placement"
	SigQuickLosers        = "quick_losers"
	SigLiquidityRisk      = "liquidity_risk"
	SigPayoffImbalance    = "payoff_imbalance"
	SigConcentrationPair  = "concentration_pair"
	SigConcentrationTop3  = "concentration_top3"
	SigRegimeDependence   = "regime_dependence"
	SigOverfitting        = "overfitting"
)

// WeightTable maps signal IDs to severities (0-100).
type WeightTable map[string]int

// DefaultWeights returns the built-in severity table.
func DefaultWeights() WeightTable {
	return WeightTable{
		SigLookahead:          100,
		SigStructural:         95,
		SigNoTrades:           90,
		SigNegativeExpectancy: 85,
		SigNotSignificant:     75,
		SigLowTradeCount:      70,
		SigSteepDrawdown:      80,
		SigDrawdownChurn:      65,
		SigCostFragility:      60,
		SigStopPlacement:      58,
		SigQuickLosers:        56,
		SigLiquidityRisk:      55,
		SigPayoffImbalance:    52,
		SigConcentrationPair:  50,
		SigConcentrationTop3:  45,
		SigRegimeDependence:   42,
		SigOverfitting:        40,
	}
}

// Severity looks up a signal weight, zero when unknown.
func (w WeightTable) Severity(id string) int {
	return w[id]
}

// LoadWeights reads severity overrides from a YAML file and merges
// them over the defaults. Unknown keys are rejected so typos in an
// override file do not silently rank nothing.
func LoadWeights(path string) (WeightTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	var overrides map[string]int
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}

	table := DefaultWeights()
	for id, sev := range overrides {
		if _, known := table[id]; !known {
			return nil, fmt.Errorf("unknown signal id %q in %s", id, path)
		}
		if sev < 0 || sev > 100 {
			return nil, fmt.Errorf("severity for %q out of range [0,100]: %d", id, sev)
		}
		table[id] = sev
	}
	return table, nil
}
