package performance

import (
	"fmt"

	"github.com/prototypedave/hybridTool/internal/model"
)

// Threshold maps a raw measurement onto the 0..100 score range.
// Values at or below Min score EqMin, values at or above Max score EqMax.
type Threshold struct {
	Min   float64
	Max   float64
	EqMin float64
	EqMax float64
}

// Thresholds holds the curve of every scored metric for one form factor.
type Thresholds struct {
	FCP Threshold
	SI  Threshold
	LCP Threshold
	TBT Threshold
	CLS Threshold
}

// Metric weights in the total performance score.
const (
	WeightFCP = 0.1
	WeightSI  = 0.1
	WeightLCP = 0.25
	WeightTBT = 0.3
	WeightCLS = 0.25
)

var (
	mobileThresholds = Thresholds{
		FCP: Threshold{Min: 1000, Max: 6000, EqMin: 100, EqMax: 4},
		SI:  Threshold{Min: 1000, Max: 12000, EqMin: 100, EqMax: 4},
		LCP: Threshold{Min: 1000, Max: 8000, EqMin: 100, EqMax: 3},
		TBT: Threshold{Min: 0, Max: 3000, EqMin: 100, EqMax: 3},
		CLS: Threshold{Min: 0, Max: 0.82, EqMin: 100, EqMax: 5},
	}
	desktopThresholds = Thresholds{
		FCP: Threshold{Min: 0, Max: 4000, EqMin: 100, EqMax: 1},
		SI:  Threshold{Min: 0, Max: 5000, EqMin: 100, EqMax: 4},
		LCP: Threshold{Min: 0, Max: 6000, EqMin: 100, EqMax: 5},
		TBT: Threshold{Min: 0, Max: 2000, EqMin: 100, EqMax: 0},
		CLS: Threshold{Min: 0, Max: 0.82, EqMin: 100, EqMax: 5},
	}
)

// ThresholdsFor returns the curves for a form factor.
func ThresholdsFor(ff model.FormFactor) (Thresholds, error) {
	switch ff {
	case model.FormFactorMobile:
		return mobileThresholds, nil
	case model.FormFactorDesktop:
		return desktopThresholds, nil
	default:
		return Thresholds{}, fmt.Errorf("%w: unknown form factor %q", model.ErrInvalidOptions, ff)
	}
}

// CalculateMetricValue interpolates value linearly between the bounds.
func CalculateMetricValue(value, minValue, maxValue, eqMin, eqMax float64) float64 {
	if value <= minValue {
		return eqMin
	}
	if value >= maxValue {
		return eqMax
	}
	return 100 - ((value-minValue)/(maxValue-minValue))*(100-eqMax)
}

func (t Threshold) score(value float64) model.MetricScore {
	return model.MetricScore{
		Value: CalculateMetricValue(value, t.Min, t.Max, t.EqMin, t.EqMax),
		Time:  value,
	}
}

// RawMetrics are the Lighthouse numeric values of the scored audits.
type RawMetrics struct {
	FCP float64
	SI  float64
	LCP float64
	TBT float64
	CLS float64
}

// Score applies the form factor's curves and weights to raw.
func Score(ff model.FormFactor, raw RawMetrics) (*model.PerformanceMetrics, error) {
	th, err := ThresholdsFor(ff)
	if err != nil {
		return nil, err
	}

	m := &model.PerformanceMetrics{
		FCP: th.FCP.score(raw.FCP),
		SI:  th.SI.score(raw.SI),
		LCP: th.LCP.score(raw.LCP),
		TBT: th.TBT.score(raw.TBT),
		CLS: th.CLS.score(raw.CLS),
	}
	m.TotalPerformance = m.FCP.Value*WeightFCP +
		m.SI.Value*WeightSI +
		m.LCP.Value*WeightLCP +
		m.TBT.Value*WeightTBT +
		m.CLS.Value*WeightCLS
	return m, nil
}
