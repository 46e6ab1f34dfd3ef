// Package progress derives completion metrics for command projects from their
// target counters and operation history.
package progress

import (
	"errors"
	"time"

	"github.com/dukex/opsplan/pkg/models"
)

var ErrInvalidSprintTarget = errors.New("sprint target must be greater than zero")

// Overall is the completion ratio of a command project. A project without a
// target reports Value 0 with HasTarget false, which is not the same as 0% done.
type Overall struct {
	Value     float64 `json:"value"`
	HasTarget bool    `json:"has_target"`
}

// Bucket is one slot of a dense time series.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

type SprintProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Percent returns done/target*100 clamped to [0, 100].
func Percent(done, target int) Overall {
	if target <= 0 {
		return Overall{}
	}

	value := float64(done) / float64(target) * 100

	switch {
	case value < 0:
		value = 0
	case value > 100:
		value = 100
	}

	return Overall{Value: value, HasTarget: true}
}

// Sprints translates target and done counters into sprint counts.
func Sprints(target, done, sprintTarget int) (SprintProgress, error) {
	if sprintTarget <= 0 {
		return SprintProgress{}, ErrInvalidSprintTarget
	}

	var result SprintProgress

	if target > 0 {
		result.Total = (target + sprintTarget - 1) / sprintTarget
	}

	if done > 0 {
		result.Completed = done / sprintTarget
	}

	return result, nil
}

// Weekly sums history counts per calendar week (Monday 00:00 UTC) for every
// week overlapping [from, to). Weeks without records are present with count 0.
func Weekly(records []*models.OperationHistory, from, to time.Time) []Bucket {
	return rollup(records, weekStart(from), to, weekStart, func(t time.Time) time.Time { return t.AddDate(0, 0, 7) })
}

// Daily sums history counts per UTC day for every day overlapping [from, to).
func Daily(records []*models.OperationHistory, from, to time.Time) []Bucket {
	return rollup(records, dayStart(from), to, dayStart, func(t time.Time) time.Time { return t.AddDate(0, 0, 1) })
}

// HourOfDay sums history counts by the UTC hour they were recorded in.
func HourOfDay(records []*models.OperationHistory) [24]int {
	var hours [24]int

	for _, record := range records {
		hours[record.CreatedAt.UTC().Hour()] += record.Count
	}

	return hours
}

// Total sums the counts of all records.
func Total(records []*models.OperationHistory) int {
	total := 0
	for _, record := range records {
		total += record.Count
	}

	return total
}

func rollup(records []*models.OperationHistory, start, to time.Time, truncate, next func(time.Time) time.Time) []Bucket {
	to = to.UTC()
	buckets := make([]Bucket, 0)
	index := make(map[time.Time]int)

	for t := start; t.Before(to); t = next(t) {
		index[t] = len(buckets)
		buckets = append(buckets, Bucket{Start: t})
	}

	for _, record := range records {
		i, ok := index[truncate(record.CreatedAt)]
		if !ok {
			continue
		}

		buckets[i].Count += record.Count
	}

	return buckets
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func weekStart(t time.Time) time.Time {
	day := dayStart(t)
	offset := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -offset)
}
