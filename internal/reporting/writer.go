package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"backtest-doctor/internal/domain"
)

// WriteFiles writes the report to outputDir as both
// DIAGNOSTIC_REPORT.md and diagnostic_report.json, creating the
// directory if needed. Returns the two paths written.
func WriteFiles(rep *domain.DiagnosticReport, outputDir string) (mdPath, jsonPath string, err error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	mdPath = filepath.Join(outputDir, "DIAGNOSTIC_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(rep)), 0o644); err != nil {
		return "", "", fmt.Errorf("write markdown report: %w", err)
	}

	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	jsonPath = filepath.Join(outputDir, "diagnostic_report.json")
	if err := os.WriteFile(jsonPath, append(raw, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}

	return mdPath, jsonPath, nil
}
