package analytics

import (
	"math/rand"
	"time"

	"github.com/amansk/librelink-mcp-server/defs"
)

var testRange = defs.TargetRange{Low: 70, High: 180}

// readingsFromValues spaces values ten minutes apart starting at start.
func readingsFromValues(start time.Time, values ...float64) []defs.Reading {
	trs := make([]defs.Reading, len(values))
	for i, v := range values {
		trs[i] = defs.Reading{
			Time:  start.Add(time.Duration(i*10) * time.Minute),
			Value: v,
			Trend: defs.TrendFlat,
		}
	}
	return trs
}

func atHour(day time.Time, hour int, value float64) defs.Reading {
	return defs.Reading{
		Time:  day.Add(time.Duration(hour) * time.Hour),
		Value: value,
		Trend: defs.TrendFlat,
	}
}

type metaReadings struct {
	size int
	min  float64
	max  float64
}

func genReadings(start time.Time, mrs ...metaReadings) []defs.Reading {
	trs := make([]defs.Reading, 0)

	count := 0
	for _, mr := range mrs {
		for i := 0; i < mr.size; i++ {
			v := mr.min + rand.Float64()*(mr.max-mr.min)
			trs = append(trs, defs.Reading{
				Time:  start.Add(time.Duration(count*10) * time.Minute),
				Value: v,
				Trend: defs.TrendFlat,
			})
			count++
		}
	}

	return trs
}
