package bdrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"vqa/internal/services"
)

// Point is one rate-distortion sample: the stream's bitrate and the quality
// metric measured at that rate.
type Point struct {
	Bitrate float64 `json:"bitrate"`
	Quality float64 `json:"quality"`
}

// Curve is an ordered set of rate-distortion points for one configuration.
type Curve struct {
	Name   string  `json:"name,omitempty"`
	Points []Point `json:"points"`
}

// Delta is the Bjontegaard comparison of a test curve against a baseline.
// RatePercent is negative when the test configuration needs less bitrate for
// equal quality; MetricDelta is positive when it scores higher at equal rate.
type Delta struct {
	RatePercent float64 `json:"bd_rate_percent"`
	MetricDelta float64 `json:"bd_metric_delta"`
}

// minPoints is the floor for a stable cubic fit.
const minPoints = 4

// Compute runs the standard dual-fit Bjontegaard Delta procedure: cubic
// least-squares fits of log-bitrate as a function of quality (for BD-Rate) and
// quality as a function of log-bitrate (for BD-Metric), integrated over the
// interval both curves cover. Extrapolation beyond the sampled ranges is
// refused.
func Compute(baseline, test Curve) (*Delta, error) {
	if err := validateCurve(baseline, "baseline"); err != nil {
		return nil, err
	}
	if err := validateCurve(test, "test"); err != nil {
		return nil, err
	}

	baseLogRate, baseQuality := transform(baseline)
	testLogRate, testQuality := transform(test)

	rate, err := averageFitDiff(baseQuality, baseLogRate, testQuality, testLogRate)
	if err != nil {
		return nil, err
	}
	metric, err := averageFitDiff(baseLogRate, baseQuality, testLogRate, testQuality)
	if err != nil {
		return nil, err
	}

	return &Delta{
		RatePercent: (math.Exp(rate) - 1) * 100,
		MetricDelta: metric,
	}, nil
}

func validateCurve(curve Curve, role string) error {
	if len(curve.Points) < minPoints {
		return services.Wrap(services.ErrInsufficientData, "bdrate", role,
			fmt.Sprintf("need at least %d rate-distortion points, have %d", minPoints, len(curve.Points)), nil)
	}
	seenRate := make(map[float64]struct{}, len(curve.Points))
	seenQuality := make(map[float64]struct{}, len(curve.Points))
	for _, p := range curve.Points {
		if p.Bitrate <= 0 {
			return services.Wrap(services.ErrInsufficientData, "bdrate", role,
				fmt.Sprintf("bitrate must be positive, got %g", p.Bitrate), nil)
		}
		if _, dup := seenRate[p.Bitrate]; dup {
			return services.Wrap(services.ErrInsufficientData, "bdrate", role,
				fmt.Sprintf("duplicate bitrate %g makes the fit ill-defined", p.Bitrate), nil)
		}
		if _, dup := seenQuality[p.Quality]; dup {
			return services.Wrap(services.ErrInsufficientData, "bdrate", role,
				fmt.Sprintf("duplicate quality value %g makes the fit ill-defined", p.Quality), nil)
		}
		seenRate[p.Bitrate] = struct{}{}
		seenQuality[p.Quality] = struct{}{}
	}
	return nil
}

func transform(curve Curve) (logRate, quality []float64) {
	logRate = make([]float64, len(curve.Points))
	quality = make([]float64, len(curve.Points))
	for i, p := range curve.Points {
		logRate[i] = math.Log(p.Bitrate)
		quality[i] = p.Quality
	}
	return logRate, quality
}

// averageFitDiff fits both curves as cubics y(x), integrates each over the
// shared x interval, and returns the average difference (test minus baseline).
func averageFitDiff(baseX, baseY, testX, testY []float64) (float64, error) {
	lo := math.Max(minOf(baseX), minOf(testX))
	hi := math.Min(maxOf(baseX), maxOf(testX))
	if hi <= lo {
		return 0, services.Wrap(services.ErrInsufficientData, "bdrate", "overlap",
			"curves share no common interval; cannot compare without extrapolating", nil)
	}

	baseCoeffs, err := polyfit(baseX, baseY, 3)
	if err != nil {
		return 0, err
	}
	testCoeffs, err := polyfit(testX, testY, 3)
	if err != nil {
		return 0, err
	}

	baseInt := integrate(baseCoeffs, lo, hi)
	testInt := integrate(testCoeffs, lo, hi)
	return (testInt - baseInt) / (hi - lo), nil
}

// polyfit solves the least-squares polynomial of the given degree, returning
// coefficients in ascending order of power.
func polyfit(x, y []float64, degree int) ([]float64, error) {
	rows := len(x)
	cols := degree + 1
	a := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		v := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, v)
			v *= x[i]
		}
	}
	b := mat.NewVecDense(rows, y)

	var qr mat.QR
	qr.Factorize(a)
	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, b); err != nil {
		return nil, services.Wrap(services.ErrInsufficientData, "bdrate", "fit",
			"polynomial fit is singular", err)
	}

	coeffs := make([]float64, cols)
	for j := 0; j < cols; j++ {
		coeffs[j] = solution.AtVec(j)
	}
	return coeffs, nil
}

// integrate evaluates the definite integral of a polynomial (ascending
// coefficients) over [lo, hi] via its antiderivative.
func integrate(coeffs []float64, lo, hi float64) float64 {
	eval := func(x float64) float64 {
		total := 0.0
		pow := x
		for i, c := range coeffs {
			total += c * pow / float64(i+1)
			pow *= x
		}
		return total
	}
	return eval(hi) - eval(lo)
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
