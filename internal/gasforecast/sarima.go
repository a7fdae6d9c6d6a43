package gasforecast

import (
	"fmt"
	"math"

	"github.com/selivandex/campaign-advisor/pkg/models"
)

// coefBound rejects fits on or outside the unit circle
const coefBound = 0.999

// Model is a fitted seasonal ARIMA. The seasonal form is
// (1,1,1)x(0,1,1) with the given period; the fallback form is a plain
// ARIMA(1,1,1) without seasonal terms or covariates.
type Model struct {
	seasonal bool
	period   int

	phi    float64 // AR(1) on the differenced series
	theta  float64 // MA(1)
	thetaS float64 // seasonal MA at lag period
	beta   []float64
	sigma2 float64

	y        []float64
	w        []float64 // fully differenced series
	resid    []float64 // residuals aligned with w
	origExog [][]float64
	keptCols []int
}

// FitSARIMA fits the seasonal model with Hannan-Rissanen two-step
// conditional least squares. Covariates enter as exogenous regressors in the
// differenced space; columns that become constant after differencing are
// dropped. Returns models.ErrModelFit when the series is too short, the
// normal equations are singular, or a coefficient lands outside the unit
// circle.
func FitSARIMA(y []float64, exog [][]float64, period int) (*Model, error) {
	if len(y) < 3*period {
		return nil, fmt.Errorf("need at least %d samples for seasonal fit, have %d: %w",
			3*period, len(y), models.ErrModelFit)
	}
	if exog != nil && len(exog) != len(y) {
		return nil, fmt.Errorf("covariate rows %d != samples %d: %w",
			len(exog), len(y), models.ErrModelFit)
	}

	w := diff(diff(y, 1), period)
	dExog := diffMatrix(diffMatrix(exog, 1), period)

	m := &Model{
		seasonal: true,
		period:   period,
		y:        y,
		w:        w,
		origExog: exog,
	}
	if err := m.fit(dExog); err != nil {
		return nil, err
	}
	return m, nil
}

// FitARIMA fits the non-seasonal fallback ARIMA(1,1,1).
func FitARIMA(y []float64) (*Model, error) {
	if len(y) < 10 {
		return nil, fmt.Errorf("need at least 10 samples, have %d: %w",
			len(y), models.ErrModelFit)
	}

	m := &Model{
		y: y,
		w: diff(y, 1),
	}
	if err := m.fit(nil); err != nil {
		return nil, err
	}
	return m, nil
}

// fit estimates phi, theta, thetaS and beta on the differenced series.
func (m *Model) fit(dExog [][]float64) error {
	w := m.w

	// Step 1: long autoregression to estimate innovations.
	p0 := len(w) / 4
	if p0 > 14 {
		p0 = 14
	}
	if p0 < 1 {
		return fmt.Errorf("differenced series too short: %w", models.ErrModelFit)
	}

	arX := make([][]float64, 0, len(w)-p0)
	arY := make([]float64, 0, len(w)-p0)
	for t := p0; t < len(w); t++ {
		row := make([]float64, p0)
		for i := 0; i < p0; i++ {
			row[i] = w[t-1-i]
		}
		arX = append(arX, row)
		arY = append(arY, w[t])
	}
	arCoef, err := solveOLS(arX, arY)
	if err != nil {
		return err
	}

	e := make([]float64, len(w))
	for t := p0; t < len(w); t++ {
		pred := 0.0
		for i := 0; i < p0; i++ {
			pred += arCoef[i] * w[t-1-i]
		}
		e[t] = w[t] - pred
	}

	// Step 2: regress w on its own lag, the estimated innovations and the
	// differenced covariates.
	m.keptCols = keepVaryingCols(dExog)

	start := p0 + 1
	if m.seasonal && start < m.period {
		start = m.period
	}
	ncols := 2 + len(m.keptCols)
	if m.seasonal {
		ncols++
	}
	if len(w)-start < ncols+5 {
		return fmt.Errorf("too few observations for regression: %w", models.ErrModelFit)
	}

	X := make([][]float64, 0, len(w)-start)
	Y := make([]float64, 0, len(w)-start)
	for t := start; t < len(w); t++ {
		row := []float64{w[t-1], e[t-1]}
		if m.seasonal {
			row = append(row, e[t-m.period])
		}
		for _, j := range m.keptCols {
			row = append(row, dExog[t][j])
		}
		X = append(X, row)
		Y = append(Y, w[t])
	}

	coef, err := solveOLS(X, Y)
	if err != nil {
		return err
	}

	m.phi = coef[0]
	m.theta = coef[1]
	idx := 2
	if m.seasonal {
		m.thetaS = coef[idx]
		idx++
	}
	m.beta = coef[idx:]

	if math.Abs(m.phi) >= coefBound || math.Abs(m.theta) >= coefBound ||
		math.Abs(m.thetaS) >= coefBound {
		return fmt.Errorf("coefficients outside unit circle (phi=%.3f theta=%.3f thetaS=%.3f): %w",
			m.phi, m.theta, m.thetaS, models.ErrModelFit)
	}

	// Final residual pass with the fitted coefficients.
	m.resid = make([]float64, len(w))
	sse, count := 0.0, 0
	for t := 1; t < len(w); t++ {
		pred := m.phi*w[t-1] + m.theta*m.resid[t-1]
		if m.seasonal && t >= m.period {
			pred += m.thetaS * m.resid[t-m.period]
		}
		for k, j := range m.keptCols {
			pred += m.beta[k] * dExog[t][j]
		}
		m.resid[t] = w[t] - pred
		if t >= start {
			sse += m.resid[t] * m.resid[t]
			count++
		}
	}
	if count == 0 {
		return fmt.Errorf("no residuals to estimate variance: %w", models.ErrModelFit)
	}
	m.sigma2 = sse / float64(count)
	if math.IsNaN(m.sigma2) || math.IsInf(m.sigma2, 0) {
		return fmt.Errorf("degenerate residual variance: %w", models.ErrModelFit)
	}

	return nil
}

// Forecast produces h steps ahead with 95% intervals. The interval half-width
// grows with the cumulative psi weights of the integrated process, so
// lower <= predicted <= upper holds at every step. futureExog is ignored by
// the fallback model.
func (m *Model) Forecast(h int, futureExog [][]float64) (pred, lower, upper []float64) {
	dFuture := m.futureDiffExog(h, futureExog)

	// Forecast in the differenced space.
	nw := len(m.w)
	wf := make([]float64, h)
	for k := 0; k < h; k++ {
		var wPrev, ePrev, eSeason float64
		if k == 0 {
			wPrev = m.w[nw-1]
			ePrev = m.resid[nw-1]
		} else {
			wPrev = wf[k-1]
		}
		if m.seasonal {
			if idx := nw + k - m.period; idx >= 0 && idx < nw {
				eSeason = m.resid[idx]
			}
		}
		wf[k] = m.phi*wPrev + m.theta*ePrev + m.thetaS*eSeason
		if dFuture != nil {
			for j, b := range m.beta {
				wf[k] += b * dFuture[k][j]
			}
		}
	}

	pred = m.integrate(wf)

	// Psi weights of the ARMA core, accumulated through each level of
	// integration.
	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		psi[j] = math.Pow(m.phi, float64(j-1)) * (m.phi + m.theta)
	}
	cum := make([]float64, h)
	acc := 0.0
	for j := 0; j < h; j++ {
		acc += psi[j]
		cum[j] = acc
	}
	if m.seasonal {
		for j := m.period; j < h; j++ {
			cum[j] += cum[j-m.period]
		}
	}

	lower = make([]float64, h)
	upper = make([]float64, h)
	varAcc := 0.0
	for k := 0; k < h; k++ {
		varAcc += cum[k] * cum[k]
		half := 1.96 * math.Sqrt(m.sigma2*varAcc)
		lower[k] = pred[k] - half
		upper[k] = pred[k] + half
	}

	return pred, lower, upper
}

// integrate undoes the differencing chain to return forecasts on the
// original scale.
func (m *Model) integrate(wf []float64) []float64 {
	h := len(wf)

	d1 := diff(m.y, 1)
	w1f := make([]float64, h)
	if m.seasonal {
		for k := 0; k < h; k++ {
			if k < m.period {
				w1f[k] = wf[k] + d1[len(d1)-m.period+k]
			} else {
				w1f[k] = wf[k] + w1f[k-m.period]
			}
		}
	} else {
		copy(w1f, wf)
	}

	out := make([]float64, h)
	prev := m.y[len(m.y)-1]
	for k := 0; k < h; k++ {
		out[k] = prev + w1f[k]
		prev = out[k]
	}
	return out
}

// futureDiffExog differences the synthesized future covariates with the same
// chain as the training covariates, using the trailing historical rows as
// context, and selects the retained columns.
func (m *Model) futureDiffExog(h int, futureExog [][]float64) [][]float64 {
	if len(m.beta) == 0 || futureExog == nil || len(futureExog) < h {
		if len(m.beta) > 0 {
			return zeroRows(h, len(m.beta))
		}
		return nil
	}

	extended := make([][]float64, 0, len(m.origExog)+h)
	extended = append(extended, m.origExog...)
	extended = append(extended, futureExog[:h]...)

	dAll := diffMatrix(extended, 1)
	if m.seasonal {
		dAll = diffMatrix(dAll, m.period)
	}

	out := make([][]float64, h)
	for k := 0; k < h; k++ {
		src := dAll[len(dAll)-h+k]
		row := make([]float64, len(m.keptCols))
		for i, j := range m.keptCols {
			row[i] = src[j]
		}
		out[k] = row
	}
	return out
}

func zeroRows(n, cols int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

// diff returns x differenced at the given lag
func diff(x []float64, lag int) []float64 {
	if len(x) <= lag {
		return nil
	}
	out := make([]float64, len(x)-lag)
	for i := range out {
		out[i] = x[i+lag] - x[i]
	}
	return out
}

// diffMatrix differences each column of a row-major matrix at the given lag
func diffMatrix(x [][]float64, lag int) [][]float64 {
	if x == nil || len(x) <= lag {
		return nil
	}
	out := make([][]float64, len(x)-lag)
	for i := range out {
		row := make([]float64, len(x[i]))
		for j := range row {
			row[j] = x[i+lag][j] - x[i][j]
		}
		out[i] = row
	}
	return out
}

// keepVaryingCols drops covariate columns that are constant after
// differencing (the calendar columns under seasonal differencing), which
// would make the normal equations singular.
func keepVaryingCols(dExog [][]float64) []int {
	if len(dExog) == 0 {
		return nil
	}
	var kept []int
	for j := range dExog[0] {
		col := make([]float64, len(dExog))
		for i := range dExog {
			col[i] = dExog[i][j]
		}
		mu := mean(col)
		variance := 0.0
		for _, v := range col {
			variance += (v - mu) * (v - mu)
		}
		if variance/float64(len(col)) > 1e-12 {
			kept = append(kept, j)
		}
	}
	return kept
}

// solveOLS solves min ||Xb - y|| via the normal equations with partial
// pivoting. A near-zero pivot means collinear regressors and is reported as
// a fit failure.
func solveOLS(X [][]float64, y []float64) ([]float64, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, fmt.Errorf("empty design matrix: %w", models.ErrModelFit)
	}
	n := len(X)
	p := len(X[0])

	a := make([][]float64, p)
	b := make([]float64, p)
	for i := 0; i < p; i++ {
		a[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			sum := 0.0
			for t := 0; t < n; t++ {
				sum += X[t][i] * X[t][j]
			}
			a[i][j] = sum
		}
		sum := 0.0
		for t := 0; t < n; t++ {
			sum += X[t][i] * y[t]
		}
		b[i] = sum
	}

	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-10 {
			return nil, fmt.Errorf("singular normal equations at column %d: %w",
				col, models.ErrModelFit)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < p; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < p; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	coef := make([]float64, p)
	for i := p - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < p; j++ {
			sum -= a[i][j] * coef[j]
		}
		coef[i] = sum / a[i][i]
	}
	return coef, nil
}
