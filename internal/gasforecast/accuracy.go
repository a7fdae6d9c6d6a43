package gasforecast

import (
	"math"

	"go.uber.org/zap"

	"github.com/selivandex/campaign-advisor/pkg/logger"
	"github.com/selivandex/campaign-advisor/pkg/models"
)

const (
	cvFolds        = 5
	cvMinSamples   = 120
	evalMinSamples = 30
)

// forecastFunc fits a model on the training slice and predicts h steps ahead
type forecastFunc func(train *Series, h int) ([]float64, error)

// Evaluate measures out-of-sample error with forward-chaining cross
// validation (5 folds, expanding training window) when the series has at
// least 120 samples, or an 80/20 chronological holdout otherwise. Returns nil
// when the series is too short or every fold fails to fit.
func Evaluate(s *Series, forecast forecastFunc) *models.AccuracyMetrics {
	n := s.Len()
	if n < evalMinSamples {
		return nil
	}

	if n >= cvMinSamples {
		return crossValidate(s, forecast)
	}
	return holdout(s, forecast)
}

func crossValidate(s *Series, forecast forecastFunc) *models.AccuracyMetrics {
	n := s.Len()
	foldSize := n / (cvFolds + 1)

	var maes, rmses, mapes, r2s []float64
	for fold := 1; fold <= cvFolds; fold++ {
		trainEnd := foldSize * fold
		testEnd := trainEnd + foldSize
		if testEnd > n {
			testEnd = n
		}

		pred, err := forecast(s.Slice(0, trainEnd), testEnd-trainEnd)
		if err != nil {
			logger.Warn("cross-validation fold failed",
				zap.Int("fold", fold),
				zap.Error(err),
			)
			continue
		}

		mae, rmse, mape, r2 := errorStats(s.Gwei[trainEnd:testEnd], pred)
		maes = append(maes, mae)
		rmses = append(rmses, rmse)
		if !math.IsNaN(mape) {
			mapes = append(mapes, mape)
		}
		r2s = append(r2s, r2)
	}

	if len(maes) == 0 {
		return nil
	}

	m := &models.AccuracyMetrics{
		MAE:        mean(maes),
		RMSE:       mean(rmses),
		RSquared:   mean(r2s),
		Method:     models.AccuracyMethodCrossValidation,
		Folds:      len(maes),
		MAEStdDev:  stddev(maes),
		RMSEStdDev: stddev(rmses),
	}
	if len(mapes) > 0 {
		m.MAPE = mean(mapes)
	} else {
		m.MAPE = math.NaN()
	}
	finalize(m)
	return m
}

func holdout(s *Series, forecast forecastFunc) *models.AccuracyMetrics {
	n := s.Len()
	split := n * 4 / 5

	pred, err := forecast(s.Slice(0, split), n-split)
	if err != nil {
		logger.Warn("holdout evaluation failed", zap.Error(err))
		return nil
	}

	mae, rmse, mape, r2 := errorStats(s.Gwei[split:], pred)
	m := &models.AccuracyMetrics{
		MAE:      mae,
		RMSE:     rmse,
		MAPE:     mape,
		RSquared: r2,
		Method:   models.AccuracyMethodHoldout,
		Folds:    1,
	}
	finalize(m)
	return m
}

func finalize(m *models.AccuracyMetrics) {
	m.Reliability = ReliabilityLabel(m.MAPE)
	m.CriticalWarning = m.RSquared < 0 || m.MAPE > 100
}

// ReliabilityLabel maps a MAPE percentage onto the reliability scale. NaN
// (all actuals zero) counts as unreliable.
func ReliabilityLabel(mape float64) string {
	switch {
	case mape < 5:
		return models.ReliabilityVeryHigh
	case mape < 10:
		return models.ReliabilityHigh
	case mape < 20:
		return models.ReliabilityMedium
	case mape < 50:
		return models.ReliabilityLow
	default:
		return models.ReliabilityUnreliable
	}
}

// errorStats computes MAE, RMSE, MAPE and R-squared over aligned actual and
// predicted values. Zero actuals are excluded from MAPE; when all actuals are
// zero MAPE is NaN.
func errorStats(actual, pred []float64) (mae, rmse, mape, r2 float64) {
	n := len(actual)
	if len(pred) < n {
		n = len(pred)
	}
	if n == 0 {
		return 0, 0, math.NaN(), 0
	}

	var absSum, sqSum, pctSum float64
	pctCount := 0
	for i := 0; i < n; i++ {
		diff := actual[i] - pred[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
		if actual[i] != 0 {
			pctSum += math.Abs(diff/actual[i]) * 100
			pctCount++
		}
	}
	mae = absSum / float64(n)
	rmse = math.Sqrt(sqSum / float64(n))
	if pctCount > 0 {
		mape = pctSum / float64(pctCount)
	} else {
		mape = math.NaN()
	}

	mu := mean(actual[:n])
	var ssTot float64
	for i := 0; i < n; i++ {
		ssTot += (actual[i] - mu) * (actual[i] - mu)
	}
	if ssTot == 0 {
		if sqSum == 0 {
			r2 = 1
		} else {
			r2 = math.Inf(-1)
		}
	} else {
		r2 = 1 - sqSum/ssTot
	}
	return mae, rmse, mape, r2
}

func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	var sum float64
	for _, x := range xs {
		sum += (x - mu) * (x - mu)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
