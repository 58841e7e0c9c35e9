package dispatch

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DirectionSummary describes the spacing of committed departures.
type DirectionSummary struct {
	Direction  string  `json:"direction"`
	Departures int     `json:"departures"`
	MeanGap    float64 `json:"mean_gap_minutes"`
	StdDevGap  float64 `json:"stddev_gap_minutes"`
	MinGap     int     `json:"min_gap_minutes"`
}

// Summary reports headway regularity and engine effort for a plan.
type Summary struct {
	Headway    int                `json:"headway"`
	Stats      Stats              `json:"stats"`
	Directions []DirectionSummary `json:"directions"`
	Warnings   int                `json:"warnings"`
}

// Summarize computes gap statistics over the committed departures.
func Summarize(p Plan) Summary {
	s := Summary{Headway: p.Headway, Stats: p.Stats, Warnings: len(p.Result.Warnings)}
	if p.Registry == nil {
		return s
	}
	for _, dir := range Directions {
		ds := DirectionSummary{Direction: dir.String(), Departures: p.Registry.Len(dir)}
		if ds.Departures > 1 {
			deps := p.Registry.Departures(dir)
			gaps := make([]float64, len(deps)-1)
			ds.MinGap = math.MaxInt32
			for i := 1; i < len(deps); i++ {
				g := deps[i] - deps[i-1]
				gaps[i-1] = float64(g)
				ds.MinGap = min(ds.MinGap, g)
			}
			ds.MeanGap = round2(stat.Mean(gaps, nil))
			if len(gaps) > 1 {
				ds.StdDevGap = round2(stat.StdDev(gaps, nil))
			}
		}
		s.Directions = append(s.Directions, ds)
	}
	return s
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
