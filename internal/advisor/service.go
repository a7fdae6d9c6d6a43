// Package advisor reconciles the three analysis pillars into a single ranked
// set of campaign recommendations.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/cache"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Stage is the reconciliation state machine position
type Stage string

// Run stages, in execution order.
const (
	StageIdle        Stage = "idle"
	StageRunningRisk Stage = "running_risk"
	StageRunningGas  Stage = "running_gas"
	StageRunningUser Stage = "running_user"
	StageReconciling Stage = "reconciling"
	StageDone        Stage = "done"
)

// RiskEngine is the dependency-risk pillar
type RiskEngine interface {
	AssessRisk(ctx context.Context, address string) (*models.RiskAssessment, error)
}

// GasEngine is the gas-forecast pillar
type GasEngine interface {
	Forecast(ctx context.Context, horizonDays int) (*models.ForecastResult, error)
}

// BehaviorEngine is the wallet-behavior pillar
type BehaviorEngine interface {
	Analyze(ctx context.Context, contract string, wallets []string, startDate time.Time) (*models.BehaviorResult, error)
}

// Service orchestrates the pillars sequentially. Pillars are independent;
// ordering does not affect correctness.
type Service struct {
	risk     RiskEngine
	gas      GasEngine
	behavior BehaviorEngine
	store    ResultCache

	stage Stage
}

// RunParams describes one analysis run
type RunParams struct {
	Contract    string
	Wallets     []string
	StartDate   time.Time
	HorizonDays int
	UseCache    bool
	SaveCache   bool
}

// NewService creates the reconciliation service. All three engines are
// required; the cache store may be nil.
func NewService(risk RiskEngine, gas GasEngine, behavior BehaviorEngine, store ResultCache) (*Service, error) {
	if risk == nil || gas == nil || behavior == nil {
		return nil, fmt.Errorf("all three pillar engines are required")
	}
	return &Service{
		risk:     risk,
		gas:      gas,
		behavior: behavior,
		store:    store,
		stage:    StageIdle,
	}, nil
}

// Stage returns the current run stage
func (s *Service) Stage() Stage {
	return s.stage
}

// RunFullAnalysis executes all pillars and returns whatever they produced.
// A pillar failure leaves its slot nil and the run continues; the
// recommendation layer names degraded pillars.
func (s *Service) RunFullAnalysis(ctx context.Context, p RunParams) *models.AnalysisResults {
	results := &models.AnalysisResults{}

	s.transition(StageRunningRisk)
	riskResult, err := withCache(ctx, s.store, cache.PillarRisk, strings.ToLower(p.Contract),
		p.UseCache, p.SaveCache, func() (*models.RiskAssessment, error) {
			return s.risk.AssessRisk(ctx, p.Contract)
		})
	if err != nil {
		logger.Warn("risk pillar aborted", zap.Error(err))
	} else {
		results.Risk = riskResult
	}

	s.transition(StageRunningGas)
	gasResult, err := withCache(ctx, s.store, cache.PillarGas, fmt.Sprintf("%dd", p.HorizonDays),
		p.UseCache, p.SaveCache, func() (*models.ForecastResult, error) {
			return s.gas.Forecast(ctx, p.HorizonDays)
		})
	if err != nil {
		logger.Warn("gas pillar aborted", zap.Error(err))
	} else {
		results.Gas = gasResult
	}

	s.transition(StageRunningUser)
	behaviorResult, err := withCache(ctx, s.store, cache.PillarBehavior, p.StartDate.UTC().Format("2006-01-02"),
		p.UseCache, p.SaveCache, func() (*models.BehaviorResult, error) {
			return s.behavior.Analyze(ctx, p.Contract, p.Wallets, p.StartDate)
		})
	if err != nil {
		logger.Warn("behavior pillar aborted", zap.Error(err))
	} else {
		results.Behavior = behaviorResult
	}

	s.transition(StageReconciling)
	return results
}

// Reconcile derives the ordered recommendations and finishes the run
func (s *Service) Reconcile(results *models.AnalysisResults) []models.Recommendation {
	recs := GenerateRecommendations(results)
	s.transition(StageDone)

	logger.Info("analysis run complete",
		zap.Int("recommendations", len(recs)),
	)
	return recs
}

func (s *Service) transition(next Stage) {
	logger.Debug("stage transition",
		zap.String("from", string(s.stage)),
		zap.String("to", string(next)),
	)
	s.stage = next
}
