package gasforecast

import (
	"sort"
	"time"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// Series is a strictly hourly, gap-free UTC gas-price sequence with optional
// network covariates. Owned by the forecast engine for one run.
type Series struct {
	Hours []time.Time
	Gwei  []float64
	Util  []float64
	Tx    []float64

	HasCovariates bool
}

// BuildSeries sorts ledger rows, resamples them to strict hourly cadence and
// forward-fills any gaps. Rows before the first observation cannot be filled
// and the series starts at the first observed hour.
func BuildSeries(rows []models.GasHourRow) *Series {
	if len(rows) == 0 {
		return &Series{}
	}

	sorted := make([]models.GasHourRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Hour.Before(sorted[j].Hour)
	})

	byHour := make(map[time.Time]models.GasHourRow, len(sorted))
	for _, r := range sorted {
		byHour[r.Hour.UTC().Truncate(time.Hour)] = r
	}

	start := sorted[0].Hour.UTC().Truncate(time.Hour)
	end := sorted[len(sorted)-1].Hour.UTC().Truncate(time.Hour)

	s := &Series{}
	last := sorted[0]
	for hour := start; !hour.After(end); hour = hour.Add(time.Hour) {
		if r, ok := byHour[hour]; ok {
			last = r
		}
		gwei, _ := last.AvgGwei.Float64()
		s.Hours = append(s.Hours, hour)
		s.Gwei = append(s.Gwei, gwei)
		s.Util = append(s.Util, last.Utilization)
		s.Tx = append(s.Tx, float64(last.TxCount))

		if last.Utilization > 0 || last.TxCount > 0 {
			s.HasCovariates = true
		}
	}

	return s
}

// Len returns the number of hourly samples
func (s *Series) Len() int {
	return len(s.Gwei)
}

// Slice returns a view of samples [i, j)
func (s *Series) Slice(i, j int) *Series {
	return &Series{
		Hours:         s.Hours[i:j],
		Gwei:          s.Gwei[i:j],
		Util:          s.Util[i:j],
		Tx:            s.Tx[i:j],
		HasCovariates: s.HasCovariates,
	}
}

// Exogenous covariate column order: utilization, tx count, day-of-week
// (1..7, Monday=1), hour-of-day (0..23).
const numExogCols = 4

// Exog returns the covariate matrix (one row per sample), or nil when the
// ledger supplied no covariates.
func (s *Series) Exog() [][]float64 {
	if !s.HasCovariates {
		return nil
	}
	rows := make([][]float64, s.Len())
	for i := range rows {
		rows[i] = []float64{
			s.Util[i],
			s.Tx[i],
			dayOfWeek(s.Hours[i]),
			float64(s.Hours[i].Hour()),
		}
	}
	return rows
}

// FutureExog synthesizes covariate rows for h hours past the series end:
// day-of-week and hour-of-day come from calendar arithmetic, utilization and
// tx count are held at their historical means. The means are a stated
// assumption, not a prediction.
func (s *Series) FutureExog(h int) [][]float64 {
	if !s.HasCovariates || s.Len() == 0 {
		return nil
	}

	utilMean := mean(s.Util)
	txMean := mean(s.Tx)
	lastHour := s.Hours[s.Len()-1]

	rows := make([][]float64, h)
	for k := 0; k < h; k++ {
		hour := lastHour.Add(time.Duration(k+1) * time.Hour)
		rows[k] = []float64{
			utilMean,
			txMean,
			dayOfWeek(hour),
			float64(hour.Hour()),
		}
	}
	return rows
}

// dayOfWeek maps to 1..7 with Monday=1
func dayOfWeek(t time.Time) float64 {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return float64(wd)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
