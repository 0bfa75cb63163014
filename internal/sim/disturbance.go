package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// Disturbance is a constant additive perturbation on the plant's rate of
// change over the half-open window [Start, Start+Duration).
type Disturbance struct {
	Start     float64 // seconds from simulation start
	Magnitude float64 // signed, °C per second
	Duration  float64 // seconds
}

func (d Disturbance) Active(t float64) bool {
	return d.Start <= t && t < d.Start+d.Duration
}

// Schedule is the set of disturbances applied during a run. Order is
// irrelevant; overlapping windows sum.
type Schedule []Disturbance

func (s Schedule) TotalAt(t float64) float64 {
	total := 0.0
	for _, d := range s {
		if d.Active(t) {
			total += d.Magnitude
		}
	}
	return total
}

func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprintf("%g,%g,%g", d.Start, d.Magnitude, d.Duration)
	}
	return strings.Join(parts, ";")
}

// ParseSchedule parses the textual disturbance format accepted by config
// files and controllers: semicolon-separated "start,magnitude,duration"
// triples, e.g. "600,-2.0,40;1800,-1.5,30". Whitespace around fields is
// ignored and an empty string yields an empty schedule.
func ParseSchedule(text string) (Schedule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var sched Schedule
	for _, raw := range strings.Split(text, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid disturbance %q: want 'start,magnitude,duration'", raw)
		}
		var vals [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid disturbance %q: %w", raw, err)
			}
			vals[i] = v
		}
		sched = append(sched, Disturbance{Start: vals[0], Magnitude: vals[1], Duration: vals[2]})
	}
	return sched, nil
}
