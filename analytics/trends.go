package analytics

import (
	"errors"
	"fmt"

	"github.com/amansk/librelink-mcp-server/defs"
	"github.com/montanaflynn/stats"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var ErrInvalidPeriod = errors.New("period must be daily, weekly or monthly")

// Detection thresholds, mg/dL unless noted. Empirical constants; they do not
// scale with the sampling interval or the target range.
const (
	dawnEarlyRise     = 20 // hour 8 over hour 4
	dawnMidRise       = 15 // hour 6 over hour 4
	spikeRise         = 30 // curr over prev
	spikeDrop         = 15 // curr over next
	highMealResponse  = 50
	goodMealResponse  = 20
	stableOvernight   = 10
	unstableOvernight = 30
	hypoRecoveryBand  = 10 // hysteresis above target low
	hyperRunLength    = 6  // readings, roughly an hour at 10-minute sampling
)

// AnalyzeTrends scans a reading window for recurring temporal patterns. The
// period argument is validated but does not change the detection thresholds.
func AnalyzeTrends(readings []defs.Reading, period Period, rng defs.TargetRange) (defs.TrendReport, error) {
	if len(readings) == 0 {
		return defs.TrendReport{}, ErrNoReadings
	}
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	default:
		return defs.TrendReport{}, ErrInvalidPeriod
	}

	dawn := dawnPhenomenon(readings)
	mealRise := mealResponse(readings)
	overnight := overnightStability(readings)
	hypos := hypoEpisodes(readings, rng.Low)
	hypers := hyperPeriods(readings, rng.High)

	patterns := make([]string, 0)
	if dawn {
		patterns = append(patterns, "Dawn phenomenon detected: glucose rises in the early morning hours")
	}
	switch {
	case mealRise > highMealResponse:
		patterns = append(patterns, fmt.Sprintf("High postprandial response: average rise of %.2f mg/dL after meals", mealRise))
	case mealRise < goodMealResponse:
		patterns = append(patterns, "Good postprandial control")
	}
	switch {
	case overnight < stableOvernight:
		patterns = append(patterns, "Excellent overnight stability")
	case overnight > unstableOvernight:
		patterns = append(patterns, "High overnight variability")
	}
	if hypos > 0 {
		patterns = append(patterns, fmt.Sprintf("%d hypoglycemic episodes detected", hypos))
	}
	if hypers > 0 {
		patterns = append(patterns, fmt.Sprintf("%d extended hyperglycemic periods detected", hypers))
	}

	return defs.TrendReport{
		Patterns:                 patterns,
		DawnPhenomenonDetected:   dawn,
		MealResponseAvgRise:      round2(mealRise),
		OvernightStabilityStdDev: round2(overnight),
		HypoglycemicEpisodes:     hypos,
		HyperglycemicPeriods:     hypers,
	}, nil
}

// dawnPhenomenon compares per-hour glucose means around the early morning.
// A missing hour contributes a mean of zero.
func dawnPhenomenon(readings []defs.Reading) bool {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, r := range readings {
		h := r.Time.Hour()
		sums[h] += r.Value
		counts[h]++
	}

	mean := func(h int) float64 {
		if counts[h] == 0 {
			return 0
		}
		return sums[h] / float64(counts[h])
	}

	a4, a6, a8 := mean(4), mean(6), mean(8)
	return a8-a4 > dawnEarlyRise || a6-a4 > dawnMidRise
}

// mealResponse walks a three-reading window looking for local spikes and
// returns the mean spike magnitude. No spikes is a valid flat signal, not an
// error.
func mealResponse(readings []defs.Reading) float64 {
	var total float64
	var spikes int
	for i := 1; i < len(readings)-1; i++ {
		prev, curr, next := readings[i-1].Value, readings[i].Value, readings[i+1].Value
		if curr > prev+spikeRise && curr > next+spikeDrop {
			total += curr - prev
			spikes++
		}
	}
	if spikes == 0 {
		return 0
	}
	return total / float64(spikes)
}

// overnightStability is the population deviation of readings between 23:00
// and 06:59. Fewer than two overnight readings degrade to zero.
func overnightStability(readings []defs.Reading) float64 {
	overnight := make([]float64, 0)
	for _, r := range readings {
		if h := r.Time.Hour(); h == 23 || h <= 6 {
			overnight = append(overnight, r.Value)
		}
	}
	if len(overnight) < 2 {
		return 0
	}
	dev, _ := stats.StandardDeviationPopulation(overnight)
	return dev
}

// hypoEpisodes counts entries into low territory. The episode flag only
// clears once the value recovers past the hysteresis band, so noisy
// recoveries are not double-counted.
func hypoEpisodes(readings []defs.Reading, targetLow float64) int {
	episodes := 0
	inEpisode := false
	for _, r := range readings {
		switch {
		case r.Value < targetLow && !inEpisode:
			episodes++
			inEpisode = true
		case inEpisode && r.Value > targetLow+hypoRecoveryBand:
			inEpisode = false
		}
	}
	return episodes
}

// hyperPeriods counts consecutive above-range runs of at least
// hyperRunLength readings. A run still open at the end of the window counts
// if it has reached the length.
func hyperPeriods(readings []defs.Reading, targetHigh float64) int {
	periods, run := 0, 0
	for _, r := range readings {
		if r.Value > targetHigh {
			run++
			continue
		}
		if run >= hyperRunLength {
			periods++
		}
		run = 0
	}
	if run >= hyperRunLength {
		periods++
	}
	return periods
}
