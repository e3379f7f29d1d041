package forecast

import (
	"math"
	"time"

	"github.com/leakwatch/leakwatch/internal/common"
)

const (
	// monthlyPeriod is the average synodic month length in days.
	monthlyPeriod = 30.5
	// monthlyFourierOrder controls how many harmonic pairs model the
	// monthly cycle.
	monthlyFourierOrder = 3
	// ridgeLambda stabilizes the normal equations when the design
	// matrix is near-singular (short series, constant amounts).
	ridgeLambda = 1e-4
	// intervalZ is the normal quantile for a 95% confidence interval.
	intervalZ = 1.96
)

// fittedModel is a seasonal-trend regression fitted to one category's
// daily series.
type fittedModel struct {
	origin time.Time
	coef   []float64
	spec   ModelSpec
	sigma  float64
}

// fit estimates a linear trend plus seasonal terms by least squares.
// Multiplicative mode fits on log1p of the amounts and inverts on
// prediction.
func fit(series []DailyPoint, spec ModelSpec) (*fittedModel, error) {
	if len(series) < 2 {
		return nil, common.ErrInsufficientData
	}

	origin := series[0].Date
	rows := make([][]float64, len(series))
	targets := make([]float64, len(series))
	for i, pt := range series {
		rows[i] = features(pt.Date, origin, spec)
		y := pt.Amount
		if spec.Mode == Multiplicative {
			if y < 0 {
				y = 0
			}
			y = math.Log1p(y)
		}
		targets[i] = y
	}

	coef, err := solveRidge(rows, targets, ridgeLambda)
	if err != nil {
		return nil, err
	}

	// Residual standard deviation on the training scale.
	var ssr float64
	for i, row := range rows {
		pred := dot(row, coef)
		diff := targets[i] - pred
		ssr += diff * diff
	}
	dof := len(series) - len(coef)
	var sigma float64
	if dof > 0 {
		sigma = math.Sqrt(ssr / float64(dof))
	}

	return &fittedModel{
		origin: origin,
		coef:   coef,
		spec:   spec,
		sigma:  sigma,
	}, nil
}

// predict returns the point estimate and confidence bounds for one day.
func (m *fittedModel) predict(day time.Time) (yhat, lower, upper float64) {
	row := features(day, m.origin, m.spec)
	raw := dot(row, m.coef)
	lo := raw - intervalZ*m.sigma
	hi := raw + intervalZ*m.sigma

	if m.spec.Mode == Multiplicative {
		return math.Expm1(raw), math.Expm1(lo), math.Expm1(hi)
	}
	return raw, lo, hi
}

// features builds the regression row for a calendar day: intercept,
// linear trend, optional day-of-week dummies and optional monthly
// Fourier harmonics.
func features(day, origin time.Time, spec ModelSpec) []float64 {
	t := day.Sub(origin).Hours() / 24

	row := []float64{1, t}
	if spec.WeeklySeasonality {
		dow := int(day.Weekday())
		// Sunday is the reference level.
		for j := 1; j <= 6; j++ {
			if dow == j {
				row = append(row, 1)
			} else {
				row = append(row, 0)
			}
		}
	}
	if spec.MonthlySeasonality {
		for k := 1; k <= monthlyFourierOrder; k++ {
			angle := 2 * math.Pi * float64(k) * t / monthlyPeriod
			row = append(row, math.Sin(angle), math.Cos(angle))
		}
	}
	return row
}

// solveRidge solves (XᵀX + λI)β = Xᵀy by Gaussian elimination with
// partial pivoting. The intercept column is not penalized.
func solveRidge(rows [][]float64, targets []float64, lambda float64) ([]float64, error) {
	p := len(rows[0])

	// Normal equations.
	a := make([][]float64, p)
	b := make([]float64, p)
	for i := range a {
		a[i] = make([]float64, p)
	}
	for r, row := range rows {
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				a[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * targets[r]
		}
	}
	for i := 1; i < p; i++ {
		a[i][i] += lambda
	}

	// Elimination with partial pivoting.
	for col := 0; col < p; col++ {
		pivot := col
		for r := col + 1; r < p; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, common.ErrModelFit
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < p; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < p; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
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

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
