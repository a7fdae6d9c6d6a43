package advisor

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

const reportRule = "════════════════════════════════════════════════════════════"
const reportLine = "────────────────────────────────────────────────────────────"

// PrintReport writes the severity-colored analysis summary to stdout
func PrintReport(results *models.AnalysisResults, recs []models.Recommendation) {
	fmt.Println(reportRule)
	color.New(color.FgCyan, color.Bold).Println("CAMPAIGN ANALYSIS")
	fmt.Println(reportRule)

	printRiskSection(results.Risk)
	printGasSection(results.Gas)
	printBehaviorSection(results.Behavior)

	fmt.Println(reportLine)
	color.New(color.FgCyan, color.Bold).Println("RECOMMENDATIONS")
	for i, rec := range recs {
		c := severityColor(rec.Severity)
		c.Printf("%d. [%s/%s] ", i+1, rec.Category, rec.Severity)
		fmt.Println(rec.Message)
	}
	fmt.Println(reportRule)
}

func printRiskSection(risk *models.RiskAssessment) {
	fmt.Println("Dependency risk:")
	if risk == nil {
		color.New(color.FgYellow).Println("  unavailable")
		return
	}
	fmt.Printf("  contract:   %s\n", risk.ContractAddress)
	fmt.Printf("  internal:   %.2f  dependency: %.2f  final: %.2f\n",
		risk.InternalScore, risk.DependencyScore, risk.FinalScore)
	fmt.Printf("  issues:     %d  flagged deps: %d  graph nodes: %d\n",
		len(risk.Issues), len(risk.FlaggedDependencies), len(risk.DependencyNodes))
}

func printGasSection(gas *models.ForecastResult) {
	fmt.Println("Gas forecast:")
	if !gas.HasForecast() {
		color.New(color.FgYellow).Println("  unavailable")
		return
	}
	fmt.Printf("  horizon:    %d hours  model: %s\n", len(gas.Forecast), modelName(gas))
	fmt.Printf("  best window: %s at %.1f gwei average\n",
		gas.BestWindowStart.UTC().Format("2006-01-02 15:04 MST"), gas.BestWindowAvg)
	if gas.Accuracy != nil {
		fmt.Printf("  accuracy:   MAE %.2f  RMSE %.2f  MAPE %.1f%%  R² %.2f (%s, %d fold(s))\n",
			gas.Accuracy.MAE, gas.Accuracy.RMSE, gas.Accuracy.MAPE,
			gas.Accuracy.RSquared, gas.Accuracy.Method, gas.Accuracy.Folds)
		fmt.Printf("  reliability: %s\n", gas.Accuracy.Reliability)
	}
}

func printBehaviorSection(behavior *models.BehaviorResult) {
	fmt.Println("Wallet behavior:")
	if behavior == nil {
		color.New(color.FgYellow).Println("  unavailable")
		return
	}
	fmt.Printf("  sybil clusters: %d  cohorts: %d  peak hour: %02d:00 UTC\n",
		behavior.ClusterCount, len(behavior.Cohort), behavior.PeakHour)
}

func modelName(gas *models.ForecastResult) string {
	if gas.UsedFallback {
		return "ARIMA(1,1,1) fallback"
	}
	if gas.UsedExogenous {
		return "SARIMA(1,1,1)x(0,1,1)24 with covariates"
	}
	return "SARIMA(1,1,1)x(0,1,1)24"
}

func severityColor(severity string) *color.Color {
	switch severity {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// RenderText builds the plain-text report used for Telegram delivery
func RenderText(results *models.AnalysisResults, recs []models.Recommendation) string {
	var b strings.Builder

	b.WriteString("Campaign analysis\n")
	if results.Risk != nil {
		fmt.Fprintf(&b, "Risk: final %.2f (internal %.2f, dependency %.2f)\n",
			results.Risk.FinalScore, results.Risk.InternalScore, results.Risk.DependencyScore)
	}
	if results.Gas.HasForecast() {
		fmt.Fprintf(&b, "Gas: best window %s at %.1f gwei\n",
			results.Gas.BestWindowStart.UTC().Format("2006-01-02 15:04 MST"),
			results.Gas.BestWindowAvg)
	}
	if results.Behavior != nil {
		fmt.Fprintf(&b, "Behavior: %d sybil cluster(s), peak hour %02d:00 UTC\n",
			results.Behavior.ClusterCount, results.Behavior.PeakHour)
	}

	b.WriteString("\nRecommendations:\n")
	for i, rec := range recs {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, rec.Severity, rec.Message)
	}

	return b.String()
}
