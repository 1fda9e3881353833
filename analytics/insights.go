package analytics

import (
	"fmt"

	"github.com/amansk/librelink-mcp-server/defs"
)

// GenerateInsights composes one sentence per summary metric, in fixed order:
// time in range, variability, GMI.
func GenerateInsights(readings []defs.Reading, rng defs.TargetRange) ([]string, error) {
	gs, err := CalculateStats(readings, rng)
	if err != nil {
		return nil, err
	}

	insights := make([]string, 0, 3)

	switch {
	case gs.TimeInRangePct >= 70:
		insights = append(insights, fmt.Sprintf("Excellent glucose control: %.2f%% time in range", gs.TimeInRangePct))
	case gs.TimeInRangePct >= 50:
		insights = append(insights, fmt.Sprintf("Good glucose control: %.2f%% time in range", gs.TimeInRangePct))
	default:
		insights = append(insights, fmt.Sprintf("Time in range needs improvement: %.2f%%", gs.TimeInRangePct))
	}

	switch {
	case gs.CoefficientOfVariationPct <= 33:
		insights = append(insights, fmt.Sprintf("Low glucose variability (CV %.2f%%)", gs.CoefficientOfVariationPct))
	case gs.CoefficientOfVariationPct <= 36:
		insights = append(insights, fmt.Sprintf("Moderate glucose variability (CV %.2f%%)", gs.CoefficientOfVariationPct))
	default:
		insights = append(insights, fmt.Sprintf("High glucose variability (CV %.2f%%), consider reviewing meal timing and dosing", gs.CoefficientOfVariationPct))
	}

	switch {
	case gs.GMI < 7.0:
		insights = append(insights, fmt.Sprintf("Excellent estimated A1C: GMI %.2f%%", gs.GMI))
	case gs.GMI < 8.0:
		insights = append(insights, fmt.Sprintf("Good estimated A1C: GMI %.2f%%", gs.GMI))
	default:
		insights = append(insights, fmt.Sprintf("Estimated A1C needs improvement: GMI %.2f%%", gs.GMI))
	}

	return insights, nil
}
