package decoding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"godecode/domain/analysis"
	"godecode/domain/decoding"
	"godecode/ports"
)

// NewEstimator returns the model family for a target kind. The mapping is
// exhaustive on the closed ModelKind set.
func NewEstimator(kind analysis.ModelKind) ports.Estimator {
	switch kind {
	case analysis.KindCategorical:
		return newLogistic()
	case analysis.KindContinuous:
		return newRidge()
	case analysis.KindCircular:
		return newCircularRidge()
	default:
		panic(fmt.Sprintf("unknown model kind %d", int(kind)))
	}
}

// scaler standardizes features to zero mean and unit variance. Constant
// features get scale 1 so they standardize to zero instead of NaN.
type scaler struct {
	means  []float64
	scales []float64
}

func fitScaler(x [][]float64) *scaler {
	p := len(x[0])
	s := &scaler{means: make([]float64, p), scales: make([]float64, p)}
	col := make([]float64, len(x))
	for j := 0; j < p; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		s.means[j] = m
		s.scales[j] = sd
	}
	return s
}

func (s *scaler) transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		tr := make([]float64, len(row))
		for j, v := range row {
			tr[j] = (v - s.means[j]) / s.scales[j]
		}
		out[i] = tr
	}
	return out
}

// ridgeSolve solves (X'X + lambda*I) w = X'y on standardized features.
func ridgeSolve(x [][]float64, y []float64, lambda float64) ([]float64, error) {
	n, p := len(x), len(x[0])
	flat := make([]float64, 0, n*p)
	for _, row := range x {
		flat = append(flat, row...)
	}
	xm := mat.NewDense(n, p, flat)
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var a mat.Dense
	a.Mul(xm.T(), xm)
	for i := 0; i < p; i++ {
		a.Set(i, i, a.At(i, i)+lambda)
	}
	b := mat.NewVecDense(p, nil)
	b.MulVec(xm.T(), yv)

	var w mat.VecDense
	if err := w.SolveVec(&a, b); err != nil {
		return nil, fmt.Errorf("ridge solve: %w", err)
	}
	return append([]float64(nil), w.RawVector().Data...), nil
}

// ridge is an L2-regularized linear regressor on standardized features.
type ridge struct {
	lambda  float64
	scaler  *scaler
	weights []float64
	mean    float64
}

func newRidge() *ridge { return &ridge{lambda: 1.0} }

func (r *ridge) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("ridge: no training samples")
	}
	r.scaler = fitScaler(x)
	xs := r.scaler.transform(x)
	r.mean = stat.Mean(y, nil)
	yc := make([]float64, len(y))
	for i, v := range y {
		yc[i] = v - r.mean
	}
	w, err := ridgeSolve(xs, yc, r.lambda)
	if err != nil {
		return err
	}
	r.weights = w
	return nil
}

func (r *ridge) Predict(x [][]float64) [][]float64 {
	xs := r.scaler.transform(x)
	out := make([][]float64, len(xs))
	for i, row := range xs {
		pred := r.mean
		for j, v := range row {
			pred += v * r.weights[j]
		}
		out[i] = []float64{pred}
	}
	return out
}

func (r *ridge) OutputDim() int { return 1 }

func (r *ridge) State() decoding.EstimatorState {
	return decoding.EstimatorState{
		Kind:      "ridge",
		Means:     r.scaler.means,
		Scales:    r.scaler.scales,
		Weights:   [][]float64{r.weights},
		Intercept: []float64{r.mean},
	}
}

// logistic is a binary L2-regularized logistic regression trained by
// gradient descent on standardized features. Predictions are the positive
// class probability, which is what a ranking scorer needs.
type logistic struct {
	lambda    float64
	rate      float64
	iters     int
	scaler    *scaler
	weights   []float64
	intercept float64
	classes   [2]float64
}

func newLogistic() *logistic {
	return &logistic{lambda: 1e-2, rate: 0.1, iters: 200}
}

func (l *logistic) Fit(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("logistic: no training samples")
	}
	classes := distinct(y)
	if len(classes) != 2 {
		return fmt.Errorf("logistic: expected 2 classes, got %d", len(classes))
	}
	l.classes = [2]float64{classes[0], classes[1]}

	l.scaler = fitScaler(x)
	xs := l.scaler.transform(x)
	n, p := len(xs), len(xs[0])

	// 0/1 encoding against the higher class.
	t := make([]float64, n)
	for i, v := range y {
		if v == l.classes[1] {
			t[i] = 1
		}
	}

	l.weights = make([]float64, p)
	l.intercept = 0
	grad := make([]float64, p)
	for iter := 0; iter < l.iters; iter++ {
		for j := range grad {
			grad[j] = l.lambda * l.weights[j]
		}
		gradB := 0.0
		for i, row := range xs {
			z := l.intercept
			for j, v := range row {
				z += v * l.weights[j]
			}
			err := sigmoid(z) - t[i]
			for j, v := range row {
				grad[j] += err * v / float64(n)
			}
			gradB += err / float64(n)
		}
		for j := range l.weights {
			l.weights[j] -= l.rate * grad[j]
		}
		l.intercept -= l.rate * gradB
	}
	return nil
}

func (l *logistic) Predict(x [][]float64) [][]float64 {
	xs := l.scaler.transform(x)
	out := make([][]float64, len(xs))
	for i, row := range xs {
		z := l.intercept
		for j, v := range row {
			z += v * l.weights[j]
		}
		out[i] = []float64{sigmoid(z)}
	}
	return out
}

func (l *logistic) OutputDim() int { return 1 }

func (l *logistic) State() decoding.EstimatorState {
	return decoding.EstimatorState{
		Kind:      "logistic",
		Means:     l.scaler.means,
		Scales:    l.scaler.scales,
		Weights:   [][]float64{l.weights},
		Intercept: []float64{l.intercept},
	}
}

// circularRidge regresses the cosine and sine of an angular target with two
// ridge models. Predictions are (angle, radius): atan2 of the two components
// and their norm, the radius acting as a per-trial confidence weight.
type circularRidge struct {
	cos *ridge
	sin *ridge
}

func newCircularRidge() *circularRidge {
	return &circularRidge{cos: newRidge(), sin: newRidge()}
}

func (c *circularRidge) Fit(x [][]float64, y []float64) error {
	yc := make([]float64, len(y))
	ys := make([]float64, len(y))
	for i, v := range y {
		yc[i] = math.Cos(v)
		ys[i] = math.Sin(v)
	}
	if err := c.cos.Fit(x, yc); err != nil {
		return err
	}
	return c.sin.Fit(x, ys)
}

func (c *circularRidge) Predict(x [][]float64) [][]float64 {
	pc := c.cos.Predict(x)
	ps := c.sin.Predict(x)
	out := make([][]float64, len(x))
	for i := range out {
		cosv, sinv := pc[i][0], ps[i][0]
		out[i] = []float64{math.Atan2(sinv, cosv), math.Hypot(cosv, sinv)}
	}
	return out
}

func (c *circularRidge) OutputDim() int { return 2 }

func (c *circularRidge) State() decoding.EstimatorState {
	return decoding.EstimatorState{
		Kind:      "circular-ridge",
		Means:     c.cos.scaler.means,
		Scales:    c.cos.scaler.scales,
		Weights:   [][]float64{c.cos.weights, c.sin.weights},
		Intercept: []float64{c.cos.mean, c.sin.mean},
	}
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func distinct(vals []float64) []float64 {
	seen := make(map[float64]struct{}, 2)
	var out []float64
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	// Keep a stable class order independent of trial order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
