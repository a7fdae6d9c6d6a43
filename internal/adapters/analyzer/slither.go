// Package analyzer drives the external static analyzer over a temporary
// source workspace. The workspace is removed on every exit path and the tool
// is bounded by a hard timeout.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/config"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Slither runs the slither static analyzer as a subprocess
type Slither struct {
	binary  string
	timeout time.Duration
}

// NewSlither creates new analyzer runner
func NewSlither(cfg *config.AnalyzerConfig) *Slither {
	return &Slither{
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
	}
}

type slitherOutput struct {
	Success bool `json:"success"`
	Results struct {
		Detectors []struct {
			Description string `json:"description"`
		} `json:"detectors"`
	} `json:"results"`
}

// Analyze writes the source bundle to a temp workspace, runs the analyzer
// and returns detected issue descriptions. Crashes and timeouts are wrapped
// with models.ErrExternalTool.
func (s *Slither) Analyze(ctx context.Context, src *models.VerifiedSource) ([]string, error) {
	workDir, err := os.MkdirTemp("", "advisor-analyzer-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := writeSourceFiles(workDir, src); err != nil {
		return nil, err
	}

	resultPath := filepath.Join(workDir, "analyzer_results.json")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary, workDir, "--json", resultPath)
	output, runErr := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("analyzer timed out after %s: %w", s.timeout, models.ErrExternalTool)
	}

	// Slither exits non-zero when it finds issues; the JSON file decides
	// whether the run actually failed.
	data, readErr := os.ReadFile(resultPath)
	if readErr != nil {
		if runErr != nil {
			logger.Warn("analyzer execution failed",
				zap.Error(runErr),
				zap.String("output", truncate(string(output), 300)),
			)
		}
		return nil, fmt.Errorf("analyzer produced no result file: %w", models.ErrExternalTool)
	}

	var result slitherOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer output: %w: %v", models.ErrExternalTool, err)
	}

	if !result.Success {
		return nil, fmt.Errorf("analyzer reported failure: %w", models.ErrExternalTool)
	}

	issues := make([]string, 0, len(result.Results.Detectors))
	for _, d := range result.Results.Detectors {
		issues = append(issues, d.Description)
	}

	logger.Debug("static analysis complete",
		zap.String("contract", src.ContractName),
		zap.Int("issues", len(issues)),
	)

	return issues, nil
}

// writeSourceFiles materializes the bundle under dir, confining paths that
// try to escape the workspace.
func writeSourceFiles(dir string, src *models.VerifiedSource) error {
	for name, content := range src.Files {
		clean := filepath.Clean(name)
		if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
			clean = filepath.Base(clean)
		}

		path := filepath.Join(dir, clean)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create source directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write source file %s: %w", clean, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
