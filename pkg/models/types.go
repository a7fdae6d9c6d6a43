package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Risk score fusion weights. Cross-contract exposure historically dominates
// single-contract bugs, so dependency risk carries the larger weight. Do not
// re-derive these from data.
const (
	InternalRiskWeight   = 0.4
	DependencyRiskWeight = 0.6

	// NeutralInternalScore is returned when no verified source exists or the
	// analyzer fails: indeterminate, not "low risk".
	NeutralInternalScore = 0.5

	// MaxFlaggedDependencies caps the dependency score denominator.
	MaxFlaggedDependencies = 5
)

// RiskAssessment is the Pillar 1 result. All scores live in [0,1].
type RiskAssessment struct {
	ContractAddress     string   `json:"contract_address"`
	InternalScore       float64  `json:"internal_score"`
	DependencyScore     float64  `json:"dependency_score"`
	FinalScore          float64  `json:"final_score"`
	Issues              []string `json:"issues"`
	FlaggedDependencies []string `json:"flagged_dependencies"`
	DependencyNodes     []string `json:"dependency_nodes"`
	Degraded            []string `json:"degraded,omitempty"`
}

// GasHourRow is one hourly ledger aggregate of base fee plus covariates.
type GasHourRow struct {
	Hour        time.Time       `json:"hour" db:"hour"`
	AvgGwei     decimal.Decimal `json:"avg_gwei" db:"avg_gwei"`
	Utilization float64         `json:"utilization" db:"utilization"`
	TxCount     int64           `json:"tx_count" db:"tx_count"`
}

// ForecastPoint is one hour of the projected gas price with 95% bounds.
// Invariant: Lower <= Predicted <= Upper.
type ForecastPoint struct {
	Hour      time.Time `json:"hour"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// Accuracy evaluation methods.
const (
	AccuracyMethodCrossValidation = "cross_validation"
	AccuracyMethodHoldout         = "holdout"
)

// Forecast reliability labels derived from MAPE.
const (
	ReliabilityVeryHigh   = "very_high"
	ReliabilityHigh       = "high"
	ReliabilityMedium     = "medium"
	ReliabilityLow        = "low"
	ReliabilityUnreliable = "unreliable"
)

// AccuracyMetrics summarizes out-of-sample forecast error. Produced once per
// run, never mutated.
type AccuracyMetrics struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	MAPE     float64 `json:"mape"`
	RSquared float64 `json:"r_squared"`
	Method   string  `json:"method"`
	Folds    int     `json:"n_folds"`

	// Fold dispersion, populated only for cross-validation
	MAEStdDev  float64 `json:"mae_std_dev,omitempty"`
	RMSEStdDev float64 `json:"rmse_std_dev,omitempty"`

	Reliability string `json:"reliability"`
	// CriticalWarning is raised when the model performs worse than
	// predicting the historical mean (R² < 0 or MAPE > 100%).
	CriticalWarning bool `json:"critical_warning"`
}

// ForecastResult is the Pillar 2 result.
type ForecastResult struct {
	Forecast        []ForecastPoint  `json:"forecast"`
	BestWindowStart time.Time        `json:"best_window_start"`
	BestWindowAvg   float64          `json:"best_window_avg"`
	Accuracy        *AccuracyMetrics `json:"accuracy,omitempty"`
	UsedFallback    bool             `json:"used_fallback"`
	UsedExogenous   bool             `json:"used_exogenous"`
	Degraded        []string         `json:"degraded,omitempty"`
}

// HasForecast reports whether the pillar produced a usable projection.
func (r *ForecastResult) HasForecast() bool {
	return r != nil && len(r.Forecast) > 0
}

// WalletRecord is the first-touch funding observation for one wallet.
type WalletRecord struct {
	Address       string    `json:"address" db:"address"`
	FundingSource string    `json:"funding_source" db:"funding_source"`
	FirstSeen     time.Time `json:"first_seen" db:"first_seen"`
}

// CohortRow is one acquisition-date cohort with retained counts.
// Invariant: every retained count <= CohortSize.
type CohortRow struct {
	AcquisitionDate time.Time `json:"acquisition_date" db:"acquisition_date"`
	CohortSize      int64     `json:"cohort_size" db:"cohort_size"`
	Day1Retained    int64     `json:"day1_retained" db:"day1_retained"`
	Day7Retained    int64     `json:"day7_retained" db:"day7_retained"`
	Day30Retained   int64     `json:"day30_retained" db:"day30_retained"`
}

// HourlyVolumeRow is one hour-of-day transaction volume bucket.
type HourlyVolumeRow struct {
	HourOfDay int   `json:"hour_of_day" db:"hour_of_day"`
	TxCount   int64 `json:"tx_count" db:"tx_count"`
}

// DefaultPeakHour is used when the target contract has no recent activity.
const DefaultPeakHour = 14

// BehaviorResult is the Pillar 3 result. Clusters partition a subset of the
// analyzed wallets; noise wallets appear in no cluster.
type BehaviorResult struct {
	Clusters     map[int][]string `json:"clusters"`
	ClusterCount int              `json:"cluster_count"`
	Cohort       []CohortRow      `json:"cohort"`
	PeakHour     int              `json:"peak_hour"`
	Degraded     []string         `json:"degraded,omitempty"`
}

// VerifiedSource is a contract's registry-published source bundle.
type VerifiedSource struct {
	ContractName string            `json:"contract_name"`
	Files        map[string]string `json:"files"`
}

// Recommendation categories.
const (
	CategoryRisk        = "risk"
	CategoryGas         = "gas"
	CategoryReliability = "reliability"
	CategoryUser        = "user"
	CategoryTradeoff    = "tradeoff"
)

// Recommendation severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Recommendation is one entry of the ordered strategic report.
type Recommendation struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// AnalysisResults accumulates pillar outputs for reconciliation. Owned
// exclusively by the advisor service, written once per pillar.
type AnalysisResults struct {
	Risk     *RiskAssessment `json:"risk,omitempty"`
	Gas      *ForecastResult `json:"gas,omitempty"`
	Behavior *BehaviorResult `json:"behavior,omitempty"`
}

// NewDecimal converts a float into a decimal value
func NewDecimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
