package domain

import "time"

// Verdict is the outcome of one analysis phase.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictWarn Verdict = "WARN"
	VerdictFail Verdict = "FAIL"
)

// StructuralReport is the data-integrity phase output.
type StructuralReport struct {
	Verdict Verdict `json:"verdict"`

	TimestampSequenceValid bool    `json:"timestamp_sequence_valid"`
	GapThresholdMin        float64 `json:"gap_threshold_min"`
	IrregularGapCount      int     `json:"irregular_gap_count"`

	// OHLCV continuity. Checked is false when no candle store or run
	// config was available; counts are then zero and unverified.
	OHLCVChecked       bool `json:"ohlcv_checked"`
	MissingCandleFiles int  `json:"missing_candle_files"`
	CandleGapCount     int  `json:"candle_gap_count"`

	LookaheadDetected bool     `json:"lookahead_detected"`
	LookaheadMatches  []string `json:"lookahead_matches,omitempty"`
	LogicIssues       []string `json:"logic_issues,omitempty"`

	RedFlags []string `json:"red_flags,omitempty"`
}

// TagStat aggregates trades sharing one entry tag.
type TagStat struct {
	Tag      string  `json:"tag"`
	Trades   int     `json:"trades"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// PerformanceReport is the trade-performance phase output.
type PerformanceReport struct {
	Verdict Verdict `json:"verdict"`

	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
	LossRate    float64 `json:"loss_rate"`

	AvgWinRatio  float64 `json:"avg_win_ratio"`
	AvgLossRatio float64 `json:"avg_loss_ratio"` // magnitude, positive
	AvgWinAbs    float64 `json:"avg_win_abs"`
	AvgLossAbs   float64 `json:"avg_loss_abs"` // magnitude, positive

	// Expectancy = winRate*avgWin - lossRate*avgLoss, in ratio terms.
	Expectancy float64 `json:"expectancy"`

	TradesPerDay       float64  `json:"trades_per_day"`
	LongTrades         int      `json:"long_trades"`
	ShortTrades        int      `json:"short_trades"`
	LongShortRatio     *float64 `json:"long_short_ratio,omitempty"` // nil when no shorts
	AvgCapitalDeployed float64  `json:"avg_capital_deployed"`       // stake / pre-trade equity

	AvgWinnerHoldMin float64 `json:"avg_winner_hold_min"`
	AvgLoserHoldMin  float64 `json:"avg_loser_hold_min"`

	Diagnosis string   `json:"diagnosis"`
	RedFlags  []string `json:"red_flags,omitempty"`
}

// DrawdownEpisode is a maximal interval from an equity peak to the
// point equity recovers to that peak.
type DrawdownEpisode struct {
	PeakEquity   float64    `json:"peak_equity"`
	TroughEquity float64    `json:"trough_equity"`
	PeakTime     time.Time  `json:"peak_time"`
	TroughTime   time.Time  `json:"trough_time"`
	RecoveredAt  *time.Time `json:"recovered_at,omitempty"` // nil = still open at series end
}

// DrawdownAbs is the episode depth in stake currency.
func (e DrawdownEpisode) DrawdownAbs() float64 {
	return e.PeakEquity - e.TroughEquity
}

// DrawdownReport is the risk-structure phase output.
type DrawdownReport struct {
	Verdict Verdict `json:"verdict"`

	Episodes       []DrawdownEpisode `json:"episodes,omitempty"`
	EpisodeCount   int               `json:"episode_count"`
	MaxDrawdownAbs float64           `json:"max_drawdown_abs"`

	AvgTimeToTroughHours float64  `json:"avg_time_to_trough_hours"`
	MaxTimeToTroughHours float64  `json:"max_time_to_trough_hours"`
	RecoveryHours        *float64 `json:"recovery_hours,omitempty"` // largest episode; nil = unrecovered

	// EquitySlopePerDay is the average daily return rate from start
	// equity to end equity.
	EquitySlopePerDay float64 `json:"equity_slope_per_day"`

	WorstLossPct        float64  `json:"worst_loss_pct"` // worst single loss vs pre-trade equity
	StoplossViolations  int      `json:"stoploss_violations"`
	AvgCapitalDeployed  float64  `json:"avg_capital_deployed"`
	EquityFromSnapshots bool     `json:"equity_from_snapshots"`
	FailurePatterns     []string `json:"failure_patterns,omitempty"`
	RedFlags            []string `json:"red_flags,omitempty"`
}

// EntryReport is the entry-quality phase output.
type EntryReport struct {
	Verdict Verdict `json:"verdict"`

	// TagStats is sorted ascending by total PnL: worst tag first.
	TagStats      []TagStat `json:"tag_stats,omitempty"`
	UntaggedShare float64   `json:"untagged_share"`

	QuickExitThresholdMin float64 `json:"quick_exit_threshold_min"` // p25 hold duration
	QuickLoserRatio       float64 `json:"quick_loser_ratio"`

	MedianWinnerHoldMin float64 `json:"median_winner_hold_min"`
	MedianLoserHoldMin  float64 `json:"median_loser_hold_min"`

	RedFlags []string `json:"red_flags,omitempty"`
}

// Exit categories produced by keyword classification.
const (
	ExitCatStoploss     = "stop_loss"
	ExitCatProfitTarget = "profit_target"
	ExitCatTrailing     = "trailing_stop"
	ExitCatForced       = "forced_exit"
	ExitCatTimeout      = "timeout"
	ExitCatSignal       = "signal_exit"
	ExitCatOther        = "other"
)

// ExitCategoryStat aggregates trades sharing one exit category.
type ExitCategoryStat struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	TotalPnL float64 `json:"total_pnl"`
	AvgPnL   float64 `json:"avg_pnl"`
}

// ExitReport is the exit-logic phase output.
type ExitReport struct {
	Verdict Verdict `json:"verdict"`

	Categories []ExitCategoryStat `json:"categories,omitempty"`

	AvgWinnerHoldMin float64  `json:"avg_winner_hold_min"`
	AvgLoserHoldMin  float64  `json:"avg_loser_hold_min"`
	HoldRatio        *float64 `json:"hold_ratio,omitempty"` // loser/winner; nil when undefined

	Conclusions []string `json:"conclusions,omitempty"`
	RedFlags    []string `json:"red_flags,omitempty"`
}

// RegimeStat aggregates trades opened inside one market regime.
type RegimeStat struct {
	Label    string  `json:"label"`
	Trades   int     `json:"trades"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
}

// PairStat aggregates trades on one pair.
type PairStat struct {
	Pair     string  `json:"pair"`
	Trades   int     `json:"trades"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
	PnLShare float64 `json:"pnl_share"` // share of total absolute PnL
}

// Regime segmentation sources.
const (
	RegimeSourceBenchmark = "benchmark_candles"
	RegimeSourceCalendar  = "calendar_weeks"
	RegimeSourceNone      = "none"
)

// RegimeAssetReport is the regime/asset segmentation phase output.
type RegimeAssetReport struct {
	Verdict Verdict `json:"verdict"`

	RegimeSource     string       `json:"regime_source"`
	RegimeStats      []RegimeStat `json:"regime_stats,omitempty"`
	RegimeDependence bool         `json:"regime_dependence"`

	PairStats    []PairStat `json:"pair_stats,omitempty"`
	TopPairShare float64    `json:"top_pair_share"`
	Top3Share    float64    `json:"top3_share"`

	RegimeRedFlags        []string `json:"regime_red_flags,omitempty"`
	ConcentrationRedFlags []string `json:"concentration_red_flags,omitempty"`
	RedFlags              []string `json:"red_flags,omitempty"`
}

// Liquidity risk levels for the cost phase.
const (
	LiquidityRiskHigh    = "high"
	LiquidityRiskMedium  = "medium"
	LiquidityRiskLow     = "low"
	LiquidityRiskUnknown = "unknown"
)

// CostReport is the transaction-cost robustness phase output.
type CostReport struct {
	Verdict Verdict `json:"verdict"`

	BaselineProfitAbs float64 `json:"baseline_profit_abs"`
	BaselineFeeCost   float64 `json:"baseline_fee_cost"`
	BaselineSlipCost  float64 `json:"baseline_slip_cost"`
	ProfitFeeStress   float64 `json:"profit_fee_stress"`      // +25% fees
	ProfitSlipStress  float64 `json:"profit_slip_stress"`     // +50% slippage
	ProfitCombined    float64 `json:"profit_combined_stress"` // both
	RetainedShare     float64 `json:"retained_share"`         // combined / baseline
	Conclusion        string  `json:"conclusion"`

	LiquidityRisk      string   `json:"liquidity_risk"`
	OrderToVolumeRatio *float64 `json:"order_to_volume_ratio,omitempty"`

	RedFlags []string `json:"red_flags,omitempty"`
}

// Overfitting risk levels for the logic phase.
const (
	OverfitRiskHigh   = "high"
	OverfitRiskMedium = "medium"
	OverfitRiskLow    = "low"
)

// LogicReport is the source-text complexity/overfitting phase output.
type LogicReport struct {
	Verdict Verdict `json:"verdict"`

	Indicators          []string `json:"indicators,omitempty"`
	LookaheadDetected   bool     `json:"lookahead_detected"`
	MagicParams         []string `json:"magic_params,omitempty"`
	RedundantIndicators []string `json:"redundant_indicators,omitempty"`
	StructureIssues     []string `json:"structure_issues,omitempty"`
	ConditionCount      int      `json:"condition_count"`

	ComplexityScore int    `json:"complexity_score"` // 0-100
	OverfitRisk     string `json:"overfit_risk"`

	RedFlags []string `json:"red_flags,omitempty"`
}

// StatsReport is the statistical-robustness phase output.
type StatsReport struct {
	Verdict Verdict `json:"verdict"`

	SampleSize int     `json:"sample_size"`
	MeanReturn float64 `json:"mean_return"`
	StdDev     float64 `json:"std_dev"`
	CI95Low    float64 `json:"ci95_low"`
	CI95High   float64 `json:"ci95_high"`

	RedFlags []string `json:"red_flags,omitempty"`
}

// Summary is the narrative aggregation over all phase reports.
type Summary struct {
	PrimaryDiagnosis  string   `json:"primary_diagnosis"`
	SecondaryIssue    string   `json:"secondary_issue,omitempty"`
	RegimeFlag        string   `json:"regime_flag,omitempty"`
	ConcentrationFlag string   `json:"concentration_flag"`
	SuggestedFixes    []string `json:"suggested_fixes,omitempty"`
}

// FailureSignal is one weighted root-cause candidate.
type FailureSignal struct {
	ID           string   `json:"id"`
	Severity     int      `json:"severity"` // 0-100
	KillerMetric string   `json:"killer_metric"`
	Description  string   `json:"description"`
	ChangeTypes  []string `json:"change_types,omitempty"`
}

// FailureDiagnosis is the machine-readable ranked aggregation.
type FailureDiagnosis struct {
	Signals                []FailureSignal `json:"signals,omitempty"`
	PrimaryFailureReason   string          `json:"primary_failure_reason"`
	KillerMetric           string          `json:"killer_metric,omitempty"`
	SecondaryIssues        []string        `json:"secondary_issues,omitempty"`
	RecommendedChangeTypes []string        `json:"recommended_change_types,omitempty"`
}

// ReportMetadata identifies one diagnostic run.
type ReportMetadata struct {
	ReportID     string    `json:"report_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	BacktestID   string    `json:"backtest_id,omitempty"`
	StrategyName string    `json:"strategy_name,omitempty"`
	Timeframe    string    `json:"timeframe,omitempty"`
	Timerange    string    `json:"timerange,omitempty"`
}

// DiagnosticReport is the single aggregate handed back to the caller.
// Phase fields are pointers: the aggregators tolerate an absent
// sub-report when one analyzer failed exceptionally.
type DiagnosticReport struct {
	Metadata ReportMetadata `json:"metadata"`

	Structural  *StructuralReport  `json:"structural,omitempty"`
	Performance *PerformanceReport `json:"performance,omitempty"`
	Drawdown    *DrawdownReport    `json:"drawdown,omitempty"`
	Entry       *EntryReport       `json:"entry,omitempty"`
	Exit        *ExitReport        `json:"exit,omitempty"`
	RegimeAsset *RegimeAssetReport `json:"regime_asset,omitempty"`
	Cost        *CostReport        `json:"cost,omitempty"`
	Logic       *LogicReport       `json:"logic,omitempty"`
	Stats       *StatsReport       `json:"stats,omitempty"`

	Summary   *Summary          `json:"summary,omitempty"`
	Diagnosis *FailureDiagnosis `json:"diagnosis,omitempty"`
}
