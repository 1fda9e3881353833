package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amansk/librelink-mcp-server/analytics"
	"github.com/amansk/librelink-mcp-server/librelink"
)

const defaultHistoryHours = 12

var (
	emptySchema = json.RawMessage(`{"type": "object", "properties": {}}`)

	hoursSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"hours": {"type": "integer", "minimum": 1, "maximum": 24, "default": 12}
		}
	}`)

	periodSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"period": {"type": "string", "enum": ["daily", "weekly", "monthly"], "default": "daily"}
		}
	}`)

	targetsSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"low": {"type": "number", "minimum": 50, "maximum": 150},
			"high": {"type": "number", "minimum": 100, "maximum": 300}
		},
		"required": ["low", "high"]
	}`)
)

type Deps struct {
	Source  librelink.Source
	Targets *TargetStore
}

// BuildRegistry wires every analytics operation and its collaborators into
// named tools.
func BuildRegistry(d Deps) *Registry {
	r := NewRegistry()

	r.Register(Tool{
		Name:        "get_current_glucose",
		Description: "Current glucose reading with trend arrow and range status",
		Schema:      emptySchema,
		Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
			return d.Source.FetchCurrent(ctx)
		},
	})

	r.Register(Tool{
		Name:        "get_glucose_history",
		Description: "Time-ascending glucose readings over the requested window",
		Schema:      hoursSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			hours, err := parseHours(input)
			if err != nil {
				return nil, err
			}
			return d.Source.FetchHistory(ctx, hours)
		},
	})

	r.Register(Tool{
		Name:        "get_glucose_stats",
		Description: "Summary metrics: average, GMI, time in range, variability",
		Schema:      hoursSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			hours, err := parseHours(input)
			if err != nil {
				return nil, err
			}
			trs, err := d.Source.FetchHistory(ctx, hours)
			if err != nil {
				return nil, err
			}
			return analytics.CalculateStats(trs, d.Targets.Range())
		},
	})

	r.Register(Tool{
		Name:        "get_glucose_trends",
		Description: "Recurring patterns: dawn phenomenon, meal response, episodes",
		Schema:      periodSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			period, err := parsePeriod(input)
			if err != nil {
				return nil, err
			}
			trs, err := d.Source.FetchHistory(ctx, defaultHistoryHours)
			if err != nil {
				return nil, err
			}
			return analytics.AnalyzeTrends(trs, period, d.Targets.Range())
		},
	})

	r.Register(Tool{
		Name:        "get_glucose_insights",
		Description: "One-sentence insights for time in range, variability and GMI",
		Schema:      hoursSchema,
		Handler: func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			hours, err := parseHours(input)
			if err != nil {
				return nil, err
			}
			trs, err := d.Source.FetchHistory(ctx, hours)
			if err != nil {
				return nil, err
			}
			return analytics.GenerateInsights(trs, d.Targets.Range())
		},
	})

	r.Register(Tool{
		Name:        "get_sensor_info",
		Description: "Active sensor serial, activation and expiry",
		Schema:      emptySchema,
		Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
			return d.Source.FetchSensorInfo(ctx)
		},
	})

	r.Register(Tool{
		Name:        "get_glucose_targets",
		Description: "Active target glucose range",
		Schema:      emptySchema,
		Handler: func(_ context.Context, _ json.RawMessage) (interface{}, error) {
			return d.Targets.Range(), nil
		},
	})

	r.Register(Tool{
		Name:        "update_glucose_targets",
		Description: "Update and persist the target glucose range",
		Schema:      targetsSchema,
		Handler: func(_ context.Context, input json.RawMessage) (interface{}, error) {
			var in struct {
				Low  float64 `json:"low"`
				High float64 `json:"high"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("invalid input: %w", err)
			}
			return d.Targets.Update(in.Low, in.High)
		},
	})

	r.Register(Tool{
		Name:        "validate_connection",
		Description: "Check upstream credentials and patient access",
		Schema:      emptySchema,
		Handler: func(ctx context.Context, _ json.RawMessage) (interface{}, error) {
			if err := d.Source.ValidateConnection(ctx); err != nil {
				return nil, err
			}
			return map[string]string{"status": "connected"}, nil
		},
	})

	return r
}

func parseHours(input json.RawMessage) (int, error) {
	in := struct {
		Hours int `json:"hours"`
	}{Hours: defaultHistoryHours}

	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return 0, fmt.Errorf("invalid input: %w", err)
		}
	}
	if in.Hours <= 0 || in.Hours > 24 {
		return 0, fmt.Errorf("hours must be between 1 and 24")
	}
	return in.Hours, nil
}

func parsePeriod(input json.RawMessage) (analytics.Period, error) {
	in := struct {
		Period string `json:"period"`
	}{Period: string(analytics.PeriodDaily)}

	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
	}
	return analytics.Period(in.Period), nil
}
