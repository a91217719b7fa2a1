package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// HoursPerDay is the number of hourly buckets in a survey day.
const HoursPerDay = 24

// HourlyCounts maps hour of day to a vehicle count, remembering the order in
// which hours were first seen. Hours are not pre-seeded.
//
// Counts live in a fixed array and the order slice is never appended to in
// place, so a copied HourlyCounts is independent of the original.
type HourlyCounts struct {
	order  []int
	counts [HoursPerDay]int
}

// NewHourlyCounts creates an empty HourlyCounts
func NewHourlyCounts() HourlyCounts {
	return HourlyCounts{}
}

// Inc adds one to the count for hour. Hours outside 0-23 are ignored.
func (h *HourlyCounts) Inc(hour int) {
	if hour < 0 || hour >= HoursPerDay {
		return
	}
	if h.counts[hour] == 0 {
		h.order = append(slices.Clip(h.order), hour)
	}
	h.counts[hour]++
}

// Get returns the count for hour, 0 if the hour was never seen.
func (h HourlyCounts) Get(hour int) int {
	if hour < 0 || hour >= HoursPerDay {
		return 0
	}
	return h.counts[hour]
}

// Hours returns the hours in first-seen order.
func (h HourlyCounts) Hours() []int {
	return slices.Clone(h.order)
}

// Len returns the number of distinct hours.
func (h HourlyCounts) Len() int {
	return len(h.order)
}

// Peak returns the hour with the highest count. Ties go to the hour seen first.
// ok is false when no hour has been counted.
func (h HourlyCounts) Peak() (hour, count int, ok bool) {
	for i, hr := range h.order {
		if c := h.counts[hr]; i == 0 || c > count {
			hour, count = hr, c
		}
	}
	return hour, count, len(h.order) > 0
}

type hourlyEntry struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// MarshalJSON encodes the counts as an ordered list of {hour, count} pairs.
func (h HourlyCounts) MarshalJSON() ([]byte, error) {
	entries := make([]hourlyEntry, 0, len(h.order))
	for _, hr := range h.order {
		entries = append(entries, hourlyEntry{Hour: hr, Count: h.counts[hr]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores counts written by MarshalJSON, keeping their order.
func (h *HourlyCounts) UnmarshalJSON(data []byte) error {
	var entries []hourlyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	var out HourlyCounts
	for _, e := range entries {
		if e.Hour < 0 || e.Hour >= HoursPerDay {
			return fmt.Errorf("hour %d out of range in hourly counts", e.Hour)
		}
		if e.Count < 1 {
			return fmt.Errorf("hour %d has non-positive count %d", e.Hour, e.Count)
		}
		if out.counts[e.Hour] != 0 {
			return fmt.Errorf("duplicate hour %d in hourly counts", e.Hour)
		}
		out.order = append(out.order, e.Hour)
		out.counts[e.Hour] = e.Count
	}
	*h = out
	return nil
}

// RainDuration is the accumulated length of rain runs.
type RainDuration struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Add accumulates a span given in minutes, carrying whole hours.
func (d *RainDuration) Add(spanMinutes int) {
	d.Hours += spanMinutes / 60
	d.Minutes += spanMinutes % 60
	if d.Minutes >= 60 {
		d.Hours++
		d.Minutes -= 60
	}
}

func (d RainDuration) String() string {
	return fmt.Sprintf("%d hours and %d minutes", d.Hours, d.Minutes)
}
