// Package testkit generates deterministic synthetic recordings with known
// ground truth, so engine tests can assert on decodability rather than on
// fixture files.
package testkit

import (
	"math"
	"math/rand"

	"godecode/domain/core"
	"godecode/domain/trial"
)

// Factor column names shared by the synthetic datasets and the tests.
const (
	ColPresent  core.FactorName = "target_present"
	ColVis      core.FactorName = "detect_button"
	ColContrast core.FactorName = "target_contrast"
	ColAngle    core.FactorName = "target_circAngle"
)

// Config controls the synthetic dataset shape and signal strength.
type Config struct {
	Trials   int
	Channels int
	Times    int
	Seed     int64
	// SNR scales the label-dependent signal added on top of unit noise.
	SNR float64
	// SignalStart/SignalEnd bound the time bins carrying signal.
	SignalStart int
	SignalEnd   int
	// PresentRatio is the fraction of trials with a target.
	PresentRatio float64
}

// DefaultConfig returns a small but decodable dataset.
func DefaultConfig() Config {
	return Config{
		Trials:       40,
		Channels:     8,
		Times:        10,
		Seed:         42,
		SNR:          3.0,
		SignalStart:  3,
		SignalEnd:    7,
		PresentRatio: 0.75,
	}
}

// Dataset bundles the synthetic array with its aligned metadata.
type Dataset struct {
	Array *trial.Array
	Meta  *trial.Table
}

// Generate builds one subject's recording. Present trials carry a
// channel-specific signal inside the signal window: a fixed additive pattern
// for presence decoding and a cos/sin pattern of the target angle for
// orientation decoding. Absent trials have NaN visibility, contrast and
// angle.
func Generate(cfg Config) (*Dataset, error) {
	rng := rand.New(rand.NewSource(cfg.Seed))

	present := make([]float64, cfg.Trials)
	vis := make([]float64, cfg.Trials)
	contrast := make([]float64, cfg.Trials)
	angle := make([]float64, cfg.Trials)
	contrasts := []float64{0.5, 0.75, 1.0}

	data := make([][][]float64, cfg.Trials)
	for i := 0; i < cfg.Trials; i++ {
		isPresent := rng.Float64() < cfg.PresentRatio
		if isPresent {
			present[i] = 1
			vis[i] = float64(rng.Intn(4))
			contrast[i] = contrasts[rng.Intn(len(contrasts))]
			angle[i] = 2 * math.Pi * rng.Float64()
		} else {
			present[i] = 0
			vis[i] = math.NaN()
			contrast[i] = math.NaN()
			angle[i] = math.NaN()
		}

		channels := make([][]float64, cfg.Channels)
		for c := range channels {
			row := make([]float64, cfg.Times)
			for t := range row {
				row[t] = rng.NormFloat64()
				if isPresent && t >= cfg.SignalStart && t < cfg.SignalEnd {
					// Stronger signal for higher contrast and visibility.
					gain := cfg.SNR * contrast[i] * (1 + vis[i]/3)
					switch c % 3 {
					case 0:
						row[t] += gain
					case 1:
						row[t] += gain * math.Cos(angle[i])
					default:
						row[t] += gain * math.Sin(angle[i])
					}
				}
			}
			channels[c] = row
		}
		data[i] = channels
	}

	times := make([]float64, cfg.Times)
	for t := range times {
		times[t] = -0.1 + 0.1*float64(t)
	}
	arr, err := trial.NewArray(data, times)
	if err != nil {
		return nil, err
	}

	meta := trial.NewTable(cfg.Trials)
	for _, col := range []struct {
		name core.FactorName
		vals []float64
	}{
		{ColPresent, present},
		{ColVis, vis},
		{ColContrast, contrast},
		{ColAngle, angle},
	} {
		if err := meta.AddColumn(col.name, col.vals); err != nil {
			return nil, err
		}
	}
	return &Dataset{Array: arr, Meta: meta}, nil
}
