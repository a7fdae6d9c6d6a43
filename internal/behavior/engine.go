// Package behavior implements the wallet-behavior pillar: funding-pattern
// clustering for Sybil detection, acquisition-cohort retention and peak
// activity hour of the target contract.
package behavior

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

// WalletSource provides the ledger queries this pillar needs
type WalletSource interface {
	WalletFirstTouch(ctx context.Context, wallets []string, windowDays int) ([]models.WalletRecord, error)
	CohortRows(ctx context.Context, contract string, startDate time.Time) ([]models.CohortRow, error)
	HourlyVolume(ctx context.Context, contract string, windowDays int) ([]models.HourlyVolumeRow, error)
}

// Config bounds the ledger scans
type Config struct {
	WalletWindowDays   int
	ActivityWindowDays int
}

// Engine is the Pillar 3 behavior engine
type Engine struct {
	ledger WalletSource
	cfg    Config
}

// NewEngine creates new behavior engine
func NewEngine(ledger WalletSource, cfg Config) *Engine {
	if cfg.WalletWindowDays <= 0 {
		cfg.WalletWindowDays = 365
	}
	if cfg.ActivityWindowDays <= 0 {
		cfg.ActivityWindowDays = 90
	}
	return &Engine{ledger: ledger, cfg: cfg}
}

// Analyze runs all three behavior analyses for the target contract. Each
// sub-analysis degrades independently; only a cost-limit abort surfaces as an
// error.
func (e *Engine) Analyze(ctx context.Context, contract string, wallets []string, startDate time.Time) (*models.BehaviorResult, error) {
	result := &models.BehaviorResult{
		Clusters: make(map[int][]string),
		PeakHour: models.DefaultPeakHour,
	}

	if err := e.clusterWallets(ctx, wallets, result); err != nil {
		return nil, err
	}
	if err := e.cohortRetention(ctx, contract, startDate, result); err != nil {
		return nil, err
	}
	if err := e.peakHour(ctx, contract, result); err != nil {
		return nil, err
	}

	logger.Info("behavior analysis complete",
		zap.Int("clusters", result.ClusterCount),
		zap.Int("cohorts", len(result.Cohort)),
		zap.Int("peak_hour", result.PeakHour),
	)

	return result, nil
}

// clusterWallets groups wallets sharing a funding source and creation time.
// Dense groups are likely Sybil farms; isolated wallets are left unclustered.
func (e *Engine) clusterWallets(ctx context.Context, wallets []string, result *models.BehaviorResult) error {
	if len(wallets) == 0 {
		logger.Info("no wallet list provided, skipping sybil clustering")
		result.Degraded = append(result.Degraded, "no wallet list provided")
		return nil
	}

	records, err := e.ledger.WalletFirstTouch(ctx, wallets, e.cfg.WalletWindowDays)
	if err != nil {
		if errors.Is(err, models.ErrCostLimit) {
			return err
		}
		logger.Warn("wallet first-touch query failed", zap.Error(err))
		result.Degraded = append(result.Degraded, "wallet funding history unavailable: "+err.Error())
		return nil
	}
	if len(records) == 0 {
		logger.Info("no funding history found for provided wallets")
		result.Degraded = append(result.Degraded, "no funding history for provided wallets")
		return nil
	}

	codes := standardize(fundingCodes(records))
	times := make([]float64, len(records))
	for i, r := range records {
		times[i] = float64(r.FirstSeen.Unix())
	}
	times = standardize(times)

	points := make([][2]float64, len(records))
	for i := range records {
		points[i] = [2]float64{codes[i], times[i]}
	}

	minPts := clusterMinPts
	if len(records) < clusterMinPts {
		minPts = 2
	}

	labels := dbscan(points, clusterEps, minPts)
	for i, label := range labels {
		if label == labelNoise {
			continue
		}
		result.Clusters[label] = append(result.Clusters[label], records[i].Address)
	}
	result.ClusterCount = len(result.Clusters)

	logger.Info("sybil clustering complete",
		zap.Int("wallets", len(records)),
		zap.Int("clusters", result.ClusterCount),
	)

	return nil
}

// cohortRetention loads day 1/7/30 retention per acquisition cohort. Retained
// counts exceeding the cohort size indicate ledger duplicates and are clamped.
func (e *Engine) cohortRetention(ctx context.Context, contract string, startDate time.Time, result *models.BehaviorResult) error {
	rows, err := e.ledger.CohortRows(ctx, contract, startDate)
	if err != nil {
		if errors.Is(err, models.ErrCostLimit) {
			return err
		}
		logger.Warn("cohort query failed", zap.Error(err))
		result.Degraded = append(result.Degraded, "cohort retention unavailable: "+err.Error())
		return nil
	}

	for i := range rows {
		r := &rows[i]
		if r.Day1Retained > r.CohortSize || r.Day7Retained > r.CohortSize || r.Day30Retained > r.CohortSize {
			logger.Warn("clamping retained counts to cohort size",
				zap.Time("cohort", r.AcquisitionDate),
				zap.Int64("size", r.CohortSize),
			)
			r.Day1Retained = minInt64(r.Day1Retained, r.CohortSize)
			r.Day7Retained = minInt64(r.Day7Retained, r.CohortSize)
			r.Day30Retained = minInt64(r.Day30Retained, r.CohortSize)
		}
	}
	result.Cohort = rows

	return nil
}

// peakHour picks the hour of day with the most inbound transactions. A quiet
// contract gets the mid-afternoon default.
func (e *Engine) peakHour(ctx context.Context, contract string, result *models.BehaviorResult) error {
	rows, err := e.ledger.HourlyVolume(ctx, contract, e.cfg.ActivityWindowDays)
	if err != nil {
		if errors.Is(err, models.ErrCostLimit) {
			return err
		}
		logger.Warn("hourly volume query failed", zap.Error(err))
		result.Degraded = append(result.Degraded, "activity history unavailable: "+err.Error())
		return nil
	}
	if len(rows) == 0 {
		logger.Info("no recent activity, using default peak hour",
			zap.Int("default", models.DefaultPeakHour),
		)
		return nil
	}

	result.PeakHour = rows[0].HourOfDay
	return nil
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
