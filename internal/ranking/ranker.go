package ranking

import (
	"sort"

	"backtest-doctor/internal/domain"
)

// maxSecondary caps the secondary-issue list in the diagnosis.
const maxSecondary = 3

// Rank orders signals by severity (descending, ID as tiebreak) and
// folds them into a FailureDiagnosis.
func Rank(signals []domain.FailureSignal) *domain.FailureDiagnosis {
	ordered := make([]domain.FailureSignal, len(signals))
	copy(ordered, signals)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Severity != ordered[j].Severity {
			return ordered[i].Severity > ordered[j].Severity
		}
		return ordered[i].ID < ordered[j].ID
	})

	diag := &domain.FailureDiagnosis{Signals: ordered}
	if len(ordered) == 0 {
		diag.PrimaryFailureReason = "no failure signals detected"
		return diag
	}

	primary := ordered[0]
	diag.PrimaryFailureReason = primary.Description
	diag.KillerMetric = primary.KillerMetric

	for _, s := range ordered[1:] {
		if len(diag.SecondaryIssues) == maxSecondary {
			break
		}
		diag.SecondaryIssues = append(diag.SecondaryIssues, s.Description)
	}

	seen := make(map[string]struct{})
	for _, s := range ordered {
		for _, c := range s.ChangeTypes {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			diag.RecommendedChangeTypes = append(diag.RecommendedChangeTypes, c)
		}
	}
	return diag
}

// Diagnose is the one-call wrapper: extract, weight and rank.
func Diagnose(rep *domain.DiagnosticReport, weights WeightTable) *domain.FailureDiagnosis {
	if weights == nil {
		weights = DefaultWeights()
	}
	return Rank(ExtractSignals(rep, weights))
}
