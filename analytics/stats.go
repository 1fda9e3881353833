package analytics

import (
	"errors"
	"math"

	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/montanaflynn/stats"
)

// GMI regression coefficients. These are the standard clinical constants and
// are not tunable.
const (
	gmiIntercept = 3.31
	gmiSlope     = 0.02392
)

var (
	ErrNoReadings  = errors.New("no readings supplied")
	ErrZeroAverage = errors.New("average is not positive, coefficient of variation undefined")
)

// CalculateStats reduces a reading window to scalar summary metrics. Readings
// are classified against rng rather than their precomputed high/low tags, so
// the result stays self-consistent under custom ranges. The deviation is the
// population standard deviation.
func CalculateStats(readings []defs.Reading, rng defs.TargetRange) (defs.GlucoseStats, error) {
	if len(readings) == 0 {
		return defs.GlucoseStats{}, ErrNoReadings
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}

	avg, _ := stats.Mean(values)
	dev, _ := stats.StandardDeviationPopulation(values)
	if avg <= 0 {
		return defs.GlucoseStats{}, ErrZeroAverage
	}

	var below, above float64
	for _, v := range values {
		switch {
		case v < rng.Low:
			below++
		case v > rng.High:
			above++
		}
	}
	total := float64(len(values))
	in := total - below - above

	return defs.GlucoseStats{
		Average:                   round2(avg),
		GMI:                       round2(gmiIntercept + gmiSlope*avg),
		TimeInRangePct:            round2(100 * in / total),
		TimeBelowRangePct:         round2(100 * below / total),
		TimeAboveRangePct:         round2(100 * above / total),
		StandardDeviation:         round2(dev),
		CoefficientOfVariationPct: round2(100 * dev / avg),
	}, nil
}

// round2 rounds half away from zero to two decimals, applied only at the
// output boundary.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
