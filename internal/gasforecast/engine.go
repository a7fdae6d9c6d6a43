// Package gasforecast implements the gas-price pillar: a seasonal ARIMA
// forecast over hourly base-fee history, out-of-sample accuracy scoring and
// cheapest-window selection for campaign scheduling.
package gasforecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cinar/indicator"
	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/internal/adapters/cache"
	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

const (
	// seasonalPeriod is the daily cycle of hourly gas prices
	seasonalPeriod = 24

	// bestWindowHours is the campaign execution window length
	bestWindowHours = 4
)

// HistorySource provides hourly gas aggregates from the ledger
type HistorySource interface {
	HourlyGas(ctx context.Context, windowDays int) ([]models.GasHourRow, error)
}

// HistoryCache persists raw gas history between runs. Optional; a nil cache
// disables history reuse.
type HistoryCache interface {
	Save(ctx context.Context, pillar, key string, result any) error
	Load(ctx context.Context, pillar, key string, out any) (bool, error)
}

// Config bounds the history window and cache behavior
type Config struct {
	HistoryDays      int
	UseCachedHistory bool
	SaveHistory      bool
}

// Engine is the Pillar 2 forecast engine
type Engine struct {
	ledger    HistorySource
	histCache HistoryCache
	cfg       Config
}

// NewEngine creates new forecast engine. histCache may be nil.
func NewEngine(ledger HistorySource, histCache HistoryCache, cfg Config) *Engine {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 30
	}
	return &Engine{ledger: ledger, histCache: histCache, cfg: cfg}
}

// Forecast projects hourly gas prices horizonDays ahead and selects the
// cheapest execution window. Every failure except a cost-limit abort degrades
// to a result without a forecast; the caller decides how to proceed.
func (e *Engine) Forecast(ctx context.Context, horizonDays int) (*models.ForecastResult, error) {
	rows, err := e.loadHistory(ctx)
	if err != nil {
		if errors.Is(err, models.ErrCostLimit) {
			return nil, err
		}
		logger.Warn("gas history unavailable", zap.Error(err))
		return &models.ForecastResult{
			Degraded: []string{"gas history unavailable: " + err.Error()},
		}, nil
	}

	s := BuildSeries(rows)
	if s.Len() < 2*seasonalPeriod {
		logger.Warn("gas history too short to model",
			zap.Int("samples", s.Len()),
		)
		return &models.ForecastResult{
			Degraded: []string{fmt.Sprintf("insufficient gas history: %d hourly samples", s.Len())},
		}, nil
	}

	accuracy := Evaluate(s, e.fitPredict)

	model, usedFallback, usedExog, err := e.fitModel(s)
	if err != nil {
		logger.Warn("gas model fit failed", zap.Error(err))
		return &models.ForecastResult{
			Accuracy: accuracy,
			Degraded: []string{"model fit failed: " + err.Error()},
		}, nil
	}

	horizon := horizonDays * seasonalPeriod
	if usedExog {
		logger.Info("synthesizing future covariates from calendar and historical means",
			zap.Int("horizon_hours", horizon),
		)
	}

	pred, lower, upper := model.Forecast(horizon, s.FutureExog(horizon))

	lastHour := s.Hours[s.Len()-1]
	points := make([]models.ForecastPoint, horizon)
	for k := 0; k < horizon; k++ {
		points[k] = models.ForecastPoint{
			Hour:      lastHour.Add(time.Duration(k+1) * time.Hour),
			Predicted: pred[k],
			Lower:     lower[k],
			Upper:     upper[k],
		}
	}

	windowStart, windowAvg := bestWindow(points)

	result := &models.ForecastResult{
		Forecast:        points,
		BestWindowStart: windowStart,
		BestWindowAvg:   windowAvg,
		Accuracy:        accuracy,
		UsedFallback:    usedFallback,
		UsedExogenous:   usedExog,
	}

	logger.Info("gas forecast complete",
		zap.Int("horizon_hours", horizon),
		zap.Bool("fallback", usedFallback),
		zap.Time("best_window_start", windowStart),
		zap.Float64("best_window_avg_gwei", windowAvg),
	)

	return result, nil
}

// loadHistory fetches hourly gas history, reusing the cached raw series when
// permitted. Cache write failures are logged and ignored.
func (e *Engine) loadHistory(ctx context.Context) ([]models.GasHourRow, error) {
	key := fmt.Sprintf("%dd", e.cfg.HistoryDays)

	if e.histCache != nil && e.cfg.UseCachedHistory {
		var rows []models.GasHourRow
		hit, err := e.histCache.Load(ctx, cache.PillarGasHistory, key, &rows)
		if err != nil {
			logger.Warn("gas history cache read failed", zap.Error(err))
		} else if hit && len(rows) > 0 {
			logger.Info("using cached gas history",
				zap.String("key", key),
				zap.Int("rows", len(rows)),
			)
			return rows, nil
		}
	}

	rows, err := e.ledger.HourlyGas(ctx, e.cfg.HistoryDays)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ledger returned no gas history: %w", models.ErrDataUnavailable)
	}

	if e.histCache != nil && e.cfg.SaveHistory {
		if err := e.histCache.Save(ctx, cache.PillarGasHistory, key, rows); err != nil {
			logger.Warn("gas history cache write failed", zap.Error(err))
		}
	}

	return rows, nil
}

// fitModel tries the seasonal model first and falls back to ARIMA(1,1,1).
func (e *Engine) fitModel(s *Series) (model *Model, usedFallback, usedExog bool, err error) {
	exog := s.Exog()
	m, err := FitSARIMA(s.Gwei, exog, seasonalPeriod)
	if err == nil {
		return m, false, exog != nil, nil
	}

	logger.Warn("seasonal fit failed, falling back to ARIMA(1,1,1)", zap.Error(err))
	m, err = FitARIMA(s.Gwei)
	if err != nil {
		return nil, true, false, err
	}
	return m, true, false, nil
}

// fitPredict is the accuracy-evaluation hook: fit on the training slice,
// predict h steps.
func (e *Engine) fitPredict(train *Series, h int) ([]float64, error) {
	model, _, _, err := e.fitModel(train)
	if err != nil {
		return nil, err
	}
	pred, _, _ := model.Forecast(h, train.FutureExog(h))
	return pred, nil
}

// bestWindow finds the cheapest rolling window of bestWindowHours by minimum
// moving average of predicted prices. Horizons shorter than the window fall
// back to the single cheapest hour.
func bestWindow(points []models.ForecastPoint) (time.Time, float64) {
	if len(points) == 0 {
		return time.Time{}, 0
	}

	pred := make([]float64, len(points))
	for i, p := range points {
		pred[i] = p.Predicted
	}

	if len(pred) < bestWindowHours {
		minIdx := 0
		for i, v := range pred {
			if v < pred[minIdx] {
				minIdx = i
			}
		}
		return points[minIdx].Hour, pred[minIdx]
	}

	sma := indicator.Sma(bestWindowHours, pred)
	minIdx := bestWindowHours - 1
	for i := bestWindowHours; i < len(sma); i++ {
		if sma[i] < sma[minIdx] {
			minIdx = i
		}
	}
	return points[minIdx-bestWindowHours+1].Hour, sma[minIdx]
}
