package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWindow(t *testing.T) {
	t.Run("daily interval at midnight", func(t *testing.T) {
		w, err := ComputeWindow(Interval{
			Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, RunWindow{Start: "2025-06-01", End: "2025-06-02"}, w)
		assert.Equal(t, "2025-06-01/2025-06-02", w.String())
	})

	t.Run("scheduled at 05:00", func(t *testing.T) {
		w, err := ComputeWindow(Interval{
			Start: time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-06-01", w.Start)
		assert.Equal(t, "2025-06-02", w.End)
	})

	t.Run("bounds in a local zone across a DST change", func(t *testing.T) {
		ny, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skip("tzdata not available")
		}
		// 2025-03-09 is the spring-forward day in New York. Both bounds are
		// 23:30 local, which is a different UTC offset on each side.
		w, err := ComputeWindow(Interval{
			Start: time.Date(2025, 3, 8, 23, 30, 0, 0, ny),
			End:   time.Date(2025, 3, 9, 23, 30, 0, 0, ny),
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-03-09", w.Start)
		assert.Equal(t, "2025-03-10", w.End)
	})

	t.Run("fixed offset zone", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		w, err := ComputeWindow(Interval{
			Start: time.Date(2025, 6, 1, 8, 0, 0, 0, tokyo),
			End:   time.Date(2025, 6, 2, 8, 0, 0, 0, tokyo),
		})
		require.NoError(t, err)
		assert.Equal(t, RunWindow{Start: "2025-05-31", End: "2025-06-01"}, w)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := ComputeWindow(Interval{
			Start: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		require.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("missing bound", func(t *testing.T) {
		_, err := ComputeWindow(Interval{Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
		require.ErrorIs(t, err, ErrInvalidInterval)
	})
}

func TestComputeWindow_StartNeverAfterEnd(t *testing.T) {
	base := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	zones := []*time.Location{time.UTC, time.FixedZone("minus11", -11*60*60), time.FixedZone("plus14", 14*60*60)}

	for i := 0; i < 400; i++ {
		start := base.Add(time.Duration(i) * 7 * time.Hour)
		for _, loc := range zones {
			for _, length := range []time.Duration{0, time.Hour, 24 * time.Hour, 72 * time.Hour} {
				iv := Interval{Start: start.In(loc), End: start.Add(length).In(loc)}
				w, err := ComputeWindow(iv)
				require.NoError(t, err)

				s, err := ParseDate(w.Start)
				require.NoError(t, err)
				e, err := ParseDate(w.End)
				require.NoError(t, err)
				assert.False(t, e.Before(s), "window %s from %v", w, iv)
			}
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-06-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("2025-13-01")
	require.Error(t, err)
	_, err = ParseDate("06/01/2025")
	require.Error(t, err)
}

func TestParseDailySchedule(t *testing.T) {
	s, err := ParseDailySchedule("05:00")
	require.NoError(t, err)
	assert.Equal(t, DailySchedule{Hour: 5}, s)
	assert.Equal(t, "05:00", s.String())

	for _, bad := range []string{"", "5", "24:00", "05:60", "aa:bb"} {
		_, err := ParseDailySchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestDailySchedule_IntervalFor(t *testing.T) {
	s := DailySchedule{Hour: 5}
	iv := s.IntervalFor(time.Date(2025, 6, 1, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC), iv.Start)
	assert.Equal(t, time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC), iv.End)
}

func TestDailySchedule_Latest(t *testing.T) {
	s := DailySchedule{Hour: 5}

	tests := []struct {
		name        string
		now         time.Time
		wantRunDate string
	}{
		{name: "right at the tick", now: time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC), wantRunDate: "2025-06-01"},
		{name: "later that day", now: time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC), wantRunDate: "2025-06-01"},
		{name: "before the tick", now: time.Date(2025, 6, 2, 4, 59, 0, 0, time.UTC), wantRunDate: "2025-05-31"},
		{name: "month boundary", now: time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC), wantRunDate: "2025-06-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv, runDate := s.Latest(tt.now)
			assert.Equal(t, tt.wantRunDate, runDate.Format(DateLayout))
			assert.False(t, iv.End.After(tt.now), "interval must have elapsed")
			assert.Equal(t, s.IntervalFor(runDate), iv)
		})
	}
}

func TestNow_UsesPackageClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 2, 5, 0, 0, 0, time.FixedZone("x", 3600)))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC), Now())
	assert.Equal(t, time.UTC, Now().Location())
}
