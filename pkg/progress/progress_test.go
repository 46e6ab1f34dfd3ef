package progress

import (
	"math"
	"testing"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(count int, at time.Time) *models.OperationHistory {
	return &models.OperationHistory{Count: count, CreatedAt: at}
}

func TestPercent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		done   int
		target int
		want   Overall
	}{
		{"half done", 50, 100, Overall{Value: 50, HasTarget: true}},
		{"over target is clamped", 150, 100, Overall{Value: 100, HasTarget: true}},
		{"negative done is clamped", -5, 100, Overall{Value: 0, HasTarget: true}},
		{"zero target has no target", 10, 0, Overall{}},
		{"negative target has no target", 10, -3, Overall{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Percent(tc.done, tc.target)
			assert.Equal(t, tc.want, got)
			assert.False(t, math.IsNaN(got.Value))
			assert.False(t, math.IsInf(got.Value, 0))
		})
	}
}

func TestSprints(t *testing.T) {
	t.Parallel()

	got, err := Sprints(100, 65, 30)
	require.NoError(t, err)
	assert.Equal(t, SprintProgress{Total: 4, Completed: 2}, got)

	got, err = Sprints(90, 90, 30)
	require.NoError(t, err)
	assert.Equal(t, SprintProgress{Total: 3, Completed: 3}, got)

	got, err = Sprints(0, 0, 30)
	require.NoError(t, err)
	assert.Equal(t, SprintProgress{}, got)

	_, err = Sprints(100, 10, 0)
	require.ErrorIs(t, err, ErrInvalidSprintTarget)

	_, err = Sprints(100, 10, -1)
	require.ErrorIs(t, err, ErrInvalidSprintTarget)
}

func TestWeekly(t *testing.T) {
	t.Parallel()

	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	records := []*models.OperationHistory{
		history(1, monday.Add(9*time.Hour)),
		history(2, monday.AddDate(0, 0, 6).Add(23*time.Hour)),
		history(5, monday.AddDate(0, 0, 15)),
		history(100, monday.AddDate(0, 0, 30)),
	}

	got := Weekly(records, monday.AddDate(0, 0, 2), monday.AddDate(0, 0, 21))

	want := []Bucket{
		{Start: monday, Count: 3},
		{Start: monday.AddDate(0, 0, 7), Count: 0},
		{Start: monday.AddDate(0, 0, 14), Count: 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Weekly() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeekly_SundayBelongsToPreviousWeek(t *testing.T) {
	t.Parallel()

	sunday := time.Date(2026, time.January, 11, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), weekStart(sunday))
}

func TestWeekly_UsesUTC(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	// Monday 08:00 in Tokyo is still Sunday in UTC.
	records := []*models.OperationHistory{history(4, time.Date(2026, time.January, 5, 8, 0, 0, 0, tokyo))}

	got := Weekly(records, monday.AddDate(0, 0, -7), monday.AddDate(0, 0, 7))

	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, 0, got[1].Count)
}

func TestDaily(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	records := []*models.OperationHistory{
		history(2, day.Add(time.Hour)),
		history(3, day.Add(20*time.Hour)),
		history(7, day.AddDate(0, 0, 2)),
	}

	got := Daily(records, day, day.AddDate(0, 0, 3))

	counts := make([]int, 0, len(got))
	for _, bucket := range got {
		counts = append(counts, bucket.Count)
	}

	assert.Equal(t, []int{5, 0, 7}, counts)
}

func TestRollup_EmptyRange(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, Daily(nil, day, day))
	assert.Empty(t, Weekly(nil, day, day))
}

func TestHourOfDay(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	records := []*models.OperationHistory{
		history(2, day.Add(8*time.Hour)),
		history(1, day.AddDate(0, 0, 1).Add(8*time.Hour+30*time.Minute)),
		history(4, day.Add(17*time.Hour)),
	}

	got := HourOfDay(records)

	assert.Equal(t, 3, got[8])
	assert.Equal(t, 4, got[17])
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 7, Total(records))
}
