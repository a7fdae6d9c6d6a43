// Package risk implements the contract dependency-risk pillar: static
// analysis of the target's verified source fused with a call-graph scan for
// unverified dependents.
package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// issuePenalty is the internal-score deduction per detected issue.
const issuePenalty = 0.05

// LedgerSource provides observed outbound calls for a contract
type LedgerSource interface {
	OutboundCalls(ctx context.Context, address string, windowDays, limit int) ([]string, error)
}

// SourceRegistry provides verified contract source lookups
type SourceRegistry interface {
	VerifiedSource(ctx context.Context, address string) (*models.VerifiedSource, error)
}

// StaticAnalyzer runs static analysis over a source bundle
type StaticAnalyzer interface {
	Analyze(ctx context.Context, src *models.VerifiedSource) ([]string, error)
}

// Config bounds the dependency scan
type Config struct {
	CallWindowDays int
	MaxDependents  int
}

// Engine is the Pillar 1 risk engine
type Engine struct {
	ledger   LedgerSource
	registry SourceRegistry
	analyzer StaticAnalyzer
	audited  map[string]bool
	cfg      Config
}

// NewEngine creates new risk engine. The audited set holds lowercase
// addresses of contracts with known audits.
func NewEngine(ledger LedgerSource, registry SourceRegistry, analyzer StaticAnalyzer, audited map[string]bool, cfg Config) *Engine {
	if cfg.CallWindowDays <= 0 {
		cfg.CallWindowDays = 90
	}
	if cfg.MaxDependents <= 0 {
		cfg.MaxDependents = 30
	}
	return &Engine{
		ledger:   ledger,
		registry: registry,
		analyzer: analyzer,
		audited:  audited,
		cfg:      cfg,
	}
}

// AssessRisk evaluates a contract and always returns a well-formed
// assessment: every sub-step failure degrades to its documented default.
// The error is non-nil only for a cost-limit abort of the dependency scan.
func (e *Engine) AssessRisk(ctx context.Context, address string) (*models.RiskAssessment, error) {
	address = strings.ToLower(address)

	assessment := &models.RiskAssessment{
		ContractAddress: address,
	}

	internal, issues, degraded := e.internalScore(ctx, address)
	assessment.InternalScore = internal
	assessment.Issues = issues
	assessment.Degraded = degraded

	graph, err := e.buildGraph(ctx, address)
	if err != nil {
		if errors.Is(err, models.ErrCostLimit) {
			return nil, err
		}
		logger.Warn("dependency graph query failed, scoring with root only",
			zap.String("contract", address),
			zap.Error(err),
		)
		assessment.Degraded = append(assessment.Degraded, "dependency graph unavailable: "+err.Error())
		graph = NewGraph(address, e.audited[address])
	}
	assessment.DependencyNodes = graph.Addresses()

	assessment.FlaggedDependencies = e.scanHiddenRisks(ctx, graph)
	assessment.DependencyScore = DependencyScore(len(assessment.FlaggedDependencies))

	assessment.FinalScore = FinalScore(assessment.InternalScore, assessment.DependencyScore)

	logger.Info("risk assessment complete",
		zap.String("contract", address),
		zap.Float64("internal", assessment.InternalScore),
		zap.Float64("dependency", assessment.DependencyScore),
		zap.Float64("final", assessment.FinalScore),
		zap.Int("flagged", len(assessment.FlaggedDependencies)),
	)

	return assessment, nil
}

// internalScore runs registry lookup plus static analysis. Missing source and
// analyzer failures both yield the neutral score: indeterminate, not safe.
func (e *Engine) internalScore(ctx context.Context, address string) (score float64, issues, degraded []string) {
	src, err := e.registry.VerifiedSource(ctx, address)
	if err != nil {
		logger.Warn("source registry lookup failed",
			zap.String("contract", address),
			zap.Error(err),
		)
		return models.NeutralInternalScore,
			[]string{"source registry unavailable"},
			[]string{"source registry unavailable: " + err.Error()}
	}
	if src == nil {
		logger.Info("no verified source found, using neutral internal score",
			zap.String("contract", address),
		)
		return models.NeutralInternalScore,
			[]string{"no verified source code"},
			[]string{"no verified source found"}
	}

	found, err := e.analyzer.Analyze(ctx, src)
	if err != nil {
		logger.Warn("static analyzer failed, using neutral internal score",
			zap.String("contract", address),
			zap.Error(err),
		)
		return models.NeutralInternalScore,
			[]string{"static analysis failed"},
			[]string{"static analyzer failure: " + err.Error()}
	}

	return InternalScore(len(found)), found, nil
}

// buildGraph queries outbound calls and marks audited nodes.
func (e *Engine) buildGraph(ctx context.Context, address string) (*Graph, error) {
	graph := NewGraph(address, e.audited[address])

	callees, err := e.ledger.OutboundCalls(ctx, address, e.cfg.CallWindowDays, e.cfg.MaxDependents)
	if err != nil {
		return nil, fmt.Errorf("outbound call scan: %w", err)
	}

	for _, callee := range callees {
		callee = strings.ToLower(callee)
		graph.AddNode(callee, e.audited[callee])
		graph.AddEdge(address, callee)
	}

	logger.Debug("dependency graph built",
		zap.String("contract", address),
		zap.Int("dependents", graph.Size()-1),
	)

	return graph, nil
}

// scanHiddenRisks flags non-audited dependents that lack verified source.
// Lookup failures are flagged too: an uncheckable dependency is a risk.
func (e *Engine) scanHiddenRisks(ctx context.Context, graph *Graph) []string {
	var flagged []string
	for _, dep := range graph.Dependents() {
		if dep.Audited {
			continue
		}

		src, err := e.registry.VerifiedSource(ctx, dep.Address)
		if err != nil {
			flagged = append(flagged, fmt.Sprintf("dependency check failed for %s", dep.Address))
			continue
		}
		if src == nil {
			flagged = append(flagged, fmt.Sprintf("unverified dependency %s", dep.Address))
		}
	}
	return flagged
}

// InternalScore maps a static-analysis issue count to [0,1].
func InternalScore(issueCount int) float64 {
	score := 1.0 - issuePenalty*float64(issueCount)
	if score < 0 {
		return 0
	}
	return score
}

// DependencyScore maps a flagged-dependency count to [0,1], saturating at
// models.MaxFlaggedDependencies.
func DependencyScore(flaggedCount int) float64 {
	if flaggedCount > models.MaxFlaggedDependencies {
		flaggedCount = models.MaxFlaggedDependencies
	}
	return float64(flaggedCount) / float64(models.MaxFlaggedDependencies)
}

// FinalScore fuses the two pillar scores with fixed weights, clamping both
// inputs to [0,1] first.
func FinalScore(internal, dependency float64) float64 {
	return models.InternalRiskWeight*clamp01(internal) +
		models.DependencyRiskWeight*clamp01(dependency)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
