package advisor

import (
	"fmt"
	"strings"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Risk thresholds for the go/no-go recommendation. Fixed policy values.
const (
	riskCritical = 0.75
	riskCaution  = 0.4
)

// maxHourGap is the largest tolerated distance between the cheapest gas hour
// and the peak user-activity hour before engagement wins over cost.
const maxHourGap = 4

// GenerateRecommendations derives the ordered strategic report from whatever
// the pillars produced. Missing or degraded pillars are named explicitly so
// the reader never mistakes a default for a measurement.
func GenerateRecommendations(results *models.AnalysisResults) []models.Recommendation {
	var recs []models.Recommendation

	recs = append(recs, riskRecommendations(results.Risk)...)
	recs = append(recs, gasRecommendations(results.Gas)...)
	recs = append(recs, behaviorRecommendations(results.Behavior)...)
	recs = append(recs, tradeoffRecommendation(results.Gas, results.Behavior)...)

	return recs
}

func riskRecommendations(risk *models.RiskAssessment) []models.Recommendation {
	if risk == nil {
		return []models.Recommendation{{
			Category: models.CategoryRisk,
			Severity: models.SeverityWarning,
			Message:  "risk pillar unavailable; no dependency-risk signal for this run",
		}}
	}

	var recs []models.Recommendation
	switch {
	case risk.FinalScore > riskCritical:
		recs = append(recs, models.Recommendation{
			Category: models.CategoryRisk,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("final risk score %.2f: cancel the campaign or commission an audit of %s before distributing",
				risk.FinalScore, risk.ContractAddress),
		})
	case risk.FinalScore > riskCaution:
		recs = append(recs, models.Recommendation{
			Category: models.CategoryRisk,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("final risk score %.2f: proceed carefully, %d flagged dependencies",
				risk.FinalScore, len(risk.FlaggedDependencies)),
		})
	default:
		recs = append(recs, models.Recommendation{
			Category: models.CategoryRisk,
			Severity: models.SeverityInfo,
			Message:  fmt.Sprintf("final risk score %.2f: proceed", risk.FinalScore),
		})
	}

	if len(risk.Degraded) > 0 {
		recs = append(recs, degradedNote(models.CategoryRisk, "risk", risk.Degraded))
	}
	return recs
}

func gasRecommendations(gas *models.ForecastResult) []models.Recommendation {
	if !gas.HasForecast() {
		rec := models.Recommendation{
			Category: models.CategoryGas,
			Severity: models.SeverityWarning,
			Message:  "gas pillar unavailable; schedule without a cost forecast",
		}
		if gas != nil && len(gas.Degraded) > 0 {
			return []models.Recommendation{rec, degradedNote(models.CategoryGas, "gas", gas.Degraded)}
		}
		return []models.Recommendation{rec}
	}

	reliability := "unknown"
	if gas.Accuracy != nil {
		reliability = gas.Accuracy.Reliability
	}

	recs := []models.Recommendation{{
		Category: models.CategoryGas,
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("cheapest 4-hour window starts %s at %.1f gwei average (forecast reliability: %s)",
			gas.BestWindowStart.UTC().Format("2006-01-02 15:04 MST"), gas.BestWindowAvg, reliability),
	}}

	if gas.Accuracy != nil && gas.Accuracy.CriticalWarning {
		recs = append(recs, models.Recommendation{
			Category: models.CategoryReliability,
			Severity: models.SeverityCritical,
			Message: fmt.Sprintf("forecast accuracy is critically low (MAPE %.0f%%, R² %.2f); discount the gas window",
				gas.Accuracy.MAPE, gas.Accuracy.RSquared),
		})
	}
	if gas.UsedFallback {
		recs = append(recs, models.Recommendation{
			Category: models.CategoryReliability,
			Severity: models.SeverityWarning,
			Message:  "seasonal model did not converge; forecast uses the non-seasonal fallback",
		})
	}
	if len(gas.Degraded) > 0 {
		recs = append(recs, degradedNote(models.CategoryGas, "gas", gas.Degraded))
	}
	return recs
}

func behaviorRecommendations(behavior *models.BehaviorResult) []models.Recommendation {
	if behavior == nil {
		return []models.Recommendation{{
			Category: models.CategoryUser,
			Severity: models.SeverityWarning,
			Message:  "behavior pillar unavailable; no sybil or retention signal for this run",
		}}
	}

	var recs []models.Recommendation
	if behavior.ClusterCount > 0 {
		total := 0
		for _, members := range behavior.Clusters {
			total += len(members)
		}
		recs = append(recs, models.Recommendation{
			Category: models.CategoryUser,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("%d coordinated wallet cluster(s) covering %d wallets; filter them out before distribution",
				behavior.ClusterCount, total),
		})
	}

	if len(behavior.Cohort) > 0 {
		var retained, size int64
		for _, row := range behavior.Cohort {
			retained += row.Day7Retained
			size += row.CohortSize
		}
		if size > 0 {
			recs = append(recs, models.Recommendation{
				Category: models.CategoryUser,
				Severity: models.SeverityInfo,
				Message: fmt.Sprintf("aggregate day-7 retention is %.1f%% across %d acquired users",
					float64(retained)/float64(size)*100, size),
			})
		}
	}

	if len(behavior.Degraded) > 0 {
		recs = append(recs, degradedNote(models.CategoryUser, "behavior", behavior.Degraded))
	}
	return recs
}

// tradeoffRecommendation compares the cost-optimal hour against the
// engagement-optimal hour. Requires both signals.
func tradeoffRecommendation(gas *models.ForecastResult, behavior *models.BehaviorResult) []models.Recommendation {
	if !gas.HasForecast() || behavior == nil {
		return nil
	}

	gasHour := gas.BestWindowStart.UTC().Hour()
	userHour := behavior.PeakHour
	gap := gasHour - userHour
	if gap < 0 {
		gap = -gap
	}

	if gap > maxHourGap {
		return []models.Recommendation{{
			Category: models.CategoryTradeoff,
			Severity: models.SeverityWarning,
			Message: fmt.Sprintf("cheapest gas hour (%02d:00) and peak user hour (%02d:00) are %d hours apart; favor %02d:00 for engagement over cost",
				gasHour, userHour, gap, userHour),
		}}
	}
	return []models.Recommendation{{
		Category: models.CategoryTradeoff,
		Severity: models.SeverityInfo,
		Message: fmt.Sprintf("cheapest gas hour (%02d:00) aligns with peak user hour (%02d:00); schedule inside the window",
			gasHour, userHour),
	}}
}

func degradedNote(category, pillar string, reasons []string) models.Recommendation {
	return models.Recommendation{
		Category: category,
		Severity: models.SeverityWarning,
		Message:  fmt.Sprintf("%s pillar ran degraded: %s", pillar, strings.Join(reasons, "; ")),
	}
}
