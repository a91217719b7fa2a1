package aggregator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/trafficsurvey/internal/models"
)

// HourlyFrequencies counts records per hour for each requested junction.
// Every junction gets all 24 slots, including junctions with no records.
func HourlyFrequencies(records []models.Record, junctions ...string) map[string][24]int {
	freq := make(map[string][24]int, len(junctions))
	for _, j := range junctions {
		freq[j] = [24]int{}
	}

	for i := range records {
		rec := &records[i]
		counts, ok := freq[rec.Junction]
		if !ok {
			continue
		}
		counts[rec.Time.Hour]++
		freq[rec.Junction] = counts
	}
	return freq
}

// SpeedProfile summarizes vehicle speeds at one junction.
// The standard deviation is the sample (n-1) deviation, 0 with fewer than two records.
func SpeedProfile(records []models.Record, junction string) models.SpeedProfile {
	profile := models.SpeedProfile{Junction: junction}

	var speeds, excess []float64
	for i := range records {
		rec := &records[i]
		if rec.Junction != junction {
			continue
		}
		speeds = append(speeds, float64(rec.Speed))
		if rec.OverSpeed() {
			excess = append(excess, float64(rec.Speed-rec.SpeedLimit))
		}
	}

	profile.Count = len(speeds)
	profile.OverSpeedCount = len(excess)
	if len(speeds) == 0 {
		return profile
	}

	if len(speeds) > 1 {
		profile.MeanSpeed, profile.StdDevSpeed = stat.MeanStdDev(speeds, nil)
	} else {
		profile.MeanSpeed = speeds[0]
	}
	if len(excess) > 0 {
		profile.MeanExcessSpeed = stat.Mean(excess, nil)
	}
	return profile
}
