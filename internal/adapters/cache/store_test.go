package cache

import (
	"testing"
	"time"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Run("risk assessment", func(t *testing.T) {
		in := &models.RiskAssessment{
			ContractAddress:     "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
			InternalScore:       0.5,
			DependencyScore:     0.4,
			FinalScore:          0.44,
			Issues:              []string{"no verified source code"},
			FlaggedDependencies: []string{"0xaaa", "0xbbb"},
			DependencyNodes:     []string{"0x1f9840a85d5af5bf1d1762f925bdaddc4201f984", "0xaaa", "0xbbb"},
			Degraded:            []string{"no verified source found"},
		}

		payload, err := Encode(in)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var out models.RiskAssessment
		if err := Decode(payload, &out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if out.FinalScore != in.FinalScore {
			t.Errorf("final score changed: %v != %v", out.FinalScore, in.FinalScore)
		}
		if len(out.FlaggedDependencies) != 2 || out.FlaggedDependencies[1] != "0xbbb" {
			t.Errorf("flagged dependencies not preserved: %v", out.FlaggedDependencies)
		}
		if len(out.Issues) != 1 || out.Issues[0] != in.Issues[0] {
			t.Errorf("issues not preserved: %v", out.Issues)
		}
	})

	t.Run("forecast result", func(t *testing.T) {
		start := time.Date(2025, 6, 23, 2, 0, 0, 0, time.UTC)
		in := &models.ForecastResult{
			Forecast: []models.ForecastPoint{
				{Hour: start, Predicted: 12.5, Lower: 10.0, Upper: 15.0},
				{Hour: start.Add(time.Hour), Predicted: 11.0, Lower: 9.0, Upper: 13.0},
			},
			BestWindowStart: start,
			BestWindowAvg:   11.75,
			Accuracy: &models.AccuracyMetrics{
				MAE:         1.2,
				RMSE:        1.8,
				MAPE:        9.4,
				RSquared:    0.77,
				Method:      models.AccuracyMethodCrossValidation,
				Folds:       5,
				Reliability: models.ReliabilityHigh,
			},
			UsedExogenous: true,
		}

		payload, err := Encode(in)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var out models.ForecastResult
		if err := Decode(payload, &out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if len(out.Forecast) != 2 {
			t.Fatalf("expected 2 forecast points, got %d", len(out.Forecast))
		}
		if !out.Forecast[1].Hour.Equal(start.Add(time.Hour)) {
			t.Errorf("forecast timestamp changed: %v", out.Forecast[1].Hour)
		}
		if out.Forecast[0].Lower != 10.0 || out.Forecast[0].Upper != 15.0 {
			t.Errorf("bounds not preserved: %+v", out.Forecast[0])
		}
		if out.Accuracy == nil || out.Accuracy.Method != models.AccuracyMethodCrossValidation {
			t.Errorf("accuracy not preserved: %+v", out.Accuracy)
		}
		if !out.BestWindowStart.Equal(start) {
			t.Errorf("best window start changed: %v", out.BestWindowStart)
		}
	})

	t.Run("behavior result", func(t *testing.T) {
		in := &models.BehaviorResult{
			Clusters: map[int][]string{
				0: {"0xa1", "0xa2", "0xa3"},
				1: {"0xb1", "0xb2"},
			},
			ClusterCount: 2,
			Cohort: []models.CohortRow{
				{
					AcquisitionDate: time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC),
					CohortSize:      100,
					Day1Retained:    40,
					Day7Retained:    25,
					Day30Retained:   10,
				},
			},
			PeakHour: 14,
		}

		payload, err := Encode(in)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var out models.BehaviorResult
		if err := Decode(payload, &out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if len(out.Clusters) != 2 {
			t.Fatalf("expected 2 clusters, got %d", len(out.Clusters))
		}
		if len(out.Clusters[0]) != 3 || out.Clusters[0][2] != "0xa3" {
			t.Errorf("cluster members not preserved: %v", out.Clusters[0])
		}
		if len(out.Cohort) != 1 || out.Cohort[0].Day7Retained != 25 {
			t.Errorf("cohort rows not preserved: %+v", out.Cohort)
		}
		if out.PeakHour != 14 {
			t.Errorf("peak hour changed: %d", out.PeakHour)
		}
	})

	t.Run("gas history rows", func(t *testing.T) {
		in := []models.GasHourRow{
			{
				Hour:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				AvgGwei:     models.NewDecimal(14.25),
				Utilization: 0.61,
				TxCount:     5200,
			},
		}

		payload, err := Encode(in)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		var out []models.GasHourRow
		if err := Decode(payload, &out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if len(out) != 1 {
			t.Fatalf("expected 1 row, got %d", len(out))
		}
		if !out[0].AvgGwei.Equal(in[0].AvgGwei) {
			t.Errorf("gwei value changed: %v != %v", out[0].AvgGwei, in[0].AvgGwei)
		}
		if out[0].TxCount != 5200 || out[0].Utilization != 0.61 {
			t.Errorf("covariates not preserved: %+v", out[0])
		}
	})
}
