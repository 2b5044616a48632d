package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-doctor/internal/domain"
)

func sampleReport() *domain.DiagnosticReport {
	ratio := 1.8
	return &domain.DiagnosticReport{
		Metadata: domain.ReportMetadata{
			ReportID:     "diag_abc123def456",
			GeneratedAt:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			StrategyName: "SampleStrategy",
			Timeframe:    "5m",
			Timerange:    "2024-03-01..2024-03-02",
		},
		Structural: &domain.StructuralReport{
			Verdict:                domain.VerdictPass,
			TimestampSequenceValid: true,
		},
		Performance: &domain.PerformanceReport{
			Verdict:      domain.VerdictFail,
			TotalTrades:  40,
			WinRate:      0.6,
			AvgWinRatio:  0.01,
			AvgLossRatio: 0.02,
			Expectancy:   -0.002,
			Diagnosis:    "loss magnitude dominates wins",
		},
		Exit: &domain.ExitReport{
			Verdict: domain.VerdictWarn,
			Categories: []domain.ExitCategoryStat{
				{Category: domain.ExitCatProfitTarget, Count: 24, TotalPnL: 24, AvgPnL: 1},
				{Category: domain.ExitCatStoploss, Count: 16, TotalPnL: -32, AvgPnL: -2},
			},
			HoldRatio:   &ratio,
			Conclusions: []string{"stop placement problem: stop-loss exits absorb 57% of gross PnL"},
		},
		Summary: &domain.Summary{
			PrimaryDiagnosis:  "loss magnitude dominates wins",
			ConcentrationFlag: "no concentration issue detected",
			SuggestedFixes:    []string{"tighten the stop"},
		},
		Diagnosis: &domain.FailureDiagnosis{
			Signals: []domain.FailureSignal{
				{ID: "negative_expectancy", Severity: 85, KillerMetric: "expectancy=-0.0020", Description: "loss magnitude dominates wins"},
			},
			PrimaryFailureReason:   "loss magnitude dominates wins",
			KillerMetric:           "expectancy=-0.0020",
			RecommendedChangeTypes: []string{"exit_logic"},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(sampleReport())

	assert.True(t, strings.HasPrefix(md, "# Backtest Diagnostic Report"))
	assert.Contains(t, md, "diag_abc123def456")
	assert.Contains(t, md, "**Primary diagnosis:** loss magnitude dominates wins")
	assert.Contains(t, md, "| negative_expectancy | 85 |")
	assert.Contains(t, md, "| Performance | FAIL |")
	assert.Contains(t, md, "| Structural integrity | PASS |")
	// Phases without a report render as skipped rows, not omitted ones.
	assert.Contains(t, md, "| Drawdown & risk | SKIPPED |")
	assert.Contains(t, md, "| stop_loss | 16 | -32.00 | -2.00 |")
	assert.Contains(t, md, "1. tighten the stop")
}

func TestRenderMarkdown_EmptyReport(t *testing.T) {
	md := RenderMarkdown(&domain.DiagnosticReport{})
	assert.Contains(t, md, "| Performance | SKIPPED |")
	assert.NotContains(t, md, "## Summary")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	mdPath, jsonPath, err := WriteFiles(sampleReport(), filepath.Join(dir, "out"))
	require.NoError(t, err)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Backtest Diagnostic Report")

	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded domain.DiagnosticReport
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "diag_abc123def456", decoded.Metadata.ReportID)
	assert.Equal(t, domain.VerdictFail, decoded.Performance.Verdict)
}
