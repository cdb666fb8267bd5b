package services

import (
	"math"
	"sort"

	"junctionflow/extract"
	"junctionflow/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SpeedStats describes the average speed readings of one carriageway.
type SpeedStats struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	// Congestion is 0 at or above the speed limit and 1 at a standstill.
	Congestion float64 `json:"congestion"`
}

// JunctionSummary aggregates every stored capture of one junction.
type JunctionSummary struct {
	JunctionName string     `json:"junction_name"`
	Samples      int        `json:"samples"`
	FirstSeen    string     `json:"first_seen"`
	LastSeen     string     `json:"last_seen"`
	Confidence   float64    `json:"confidence"`
	Primary      SpeedStats `json:"primary"`
	Secondary    SpeedStats `json:"secondary"`
}

// fullConfidence is the sample count at which a summary is fully trusted.
const fullConfidence = 100.0

// Summarize groups records by junction name, sorted by name.
func Summarize(records []models.JunctionRecord) []JunctionSummary {
	type group struct {
		primary, secondary           []float64
		primaryLimit, secondaryLimit []float64
		first, last                  string
	}
	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.JunctionName]
		if !ok {
			g = &group{}
			groups[r.JunctionName] = g
		}
		g.primary = append(g.primary, r.PrimaryAvgSpeed)
		g.secondary = append(g.secondary, r.SecondaryAvgSpeed)
		g.primaryLimit = append(g.primaryLimit, float64(r.PrimarySpeedLimit))
		g.secondaryLimit = append(g.secondaryLimit, float64(r.SecondarySpeedLimit))

		seen := r.RecordDate + " " + r.RecordTime
		if g.first == "" || seen < g.first {
			g.first = seen
		}
		if seen > g.last {
			g.last = seen
		}
	}

	out := make([]JunctionSummary, 0, len(groups))
	for name, g := range groups {
		out = append(out, JunctionSummary{
			JunctionName: name,
			Samples:      len(g.primary),
			FirstSeen:    g.first,
			LastSeen:     g.last,
			Confidence:   math.Min(1, float64(len(g.primary))/fullConfidence),
			Primary:      speedStats(g.primary, g.primaryLimit),
			Secondary:    speedStats(g.secondary, g.secondaryLimit),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JunctionName < out[j].JunctionName })
	return out
}

func speedStats(speeds, limits []float64) SpeedStats {
	mean, std := stat.MeanStdDev(speeds, nil)
	if len(speeds) < 2 {
		std = 0
	}
	return SpeedStats{
		Mean:       extract.Round2(mean),
		StdDev:     extract.Round2(std),
		Min:        floats.Min(speeds),
		Max:        floats.Max(speeds),
		Congestion: congestionScore(mean, stat.Mean(limits, nil)),
	}
}

func congestionScore(avgSpeed, speedLimit float64) float64 {
	if speedLimit <= 0 {
		return 0
	}
	score := 1.0 - avgSpeed/speedLimit
	return extract.Round2(math.Max(0.0, math.Min(1.0, score)))
}
