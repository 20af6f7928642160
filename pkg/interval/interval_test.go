package interval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/interval"
)

func TestInterval_Since(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		ivl  interval.Interval
		want time.Time
	}{
		{
			name: "one day",
			ivl:  interval.Interval{Length: 1, Unit: interval.UnitDay},
			want: time.Date(2024, 1, 16, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "ten days",
			ivl:  interval.Interval{Length: 10, Unit: interval.UnitDay},
			want: time.Date(2024, 1, 25, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "two weeks",
			ivl:  interval.Interval{Length: 2, Unit: interval.UnitWeek},
			want: time.Date(2024, 1, 29, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "one month",
			ivl:  interval.Interval{Length: 1, Unit: interval.UnitMonth},
			want: time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "month crossing year boundary",
			ivl:  interval.Interval{Length: 12, Unit: interval.UnitMonth},
			want: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "one year",
			ivl:  interval.Interval{Length: 1, Unit: interval.UnitYear},
			want: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ivl.Since(base))
		})
	}

	t.Run("month end normalizes like AddDate", func(t *testing.T) {
		t.Parallel()
		ivl := interval.Interval{Length: 1, Unit: interval.UnitMonth}
		jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
		// 2024 is a leap year: Jan 31 + 1 month rolls over to Mar 2.
		assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), ivl.Since(jan31))
	})
}

func TestInterval_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid interval", func(t *testing.T) {
		t.Parallel()
		ivl := interval.Interval{Length: 3, Unit: interval.UnitWeek}
		assert.NoError(t, ivl.Validate())
	})

	t.Run("zero length", func(t *testing.T) {
		t.Parallel()
		ivl := interval.Interval{Length: 0, Unit: interval.UnitDay}
		assert.ErrorIs(t, ivl.Validate(), interval.ErrNonPositiveLength)
	})

	t.Run("negative length", func(t *testing.T) {
		t.Parallel()
		ivl := interval.Interval{Length: -1, Unit: interval.UnitDay}
		assert.ErrorIs(t, ivl.Validate(), interval.ErrNonPositiveLength)
	})

	t.Run("unknown unit", func(t *testing.T) {
		t.Parallel()
		ivl := interval.Interval{Length: 1, Unit: "fortnight"}
		assert.ErrorIs(t, ivl.Validate(), interval.ErrUnknownUnit)
	})
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	t.Run("parses all supported units", func(t *testing.T) {
		t.Parallel()
		for _, s := range []string{"day", "week", "month", "year"} {
			u, err := interval.ParseUnit(s)
			require.NoError(t, err)
			assert.True(t, u.Valid())
		}
	})

	t.Run("rejects unknown unit", func(t *testing.T) {
		t.Parallel()
		_, err := interval.ParseUnit("quarter")
		assert.ErrorIs(t, err, interval.ErrUnknownUnit)
	})
}

func TestInterval_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "every month", interval.Interval{Length: 1, Unit: interval.UnitMonth}.String())
	assert.Equal(t, "every 2 weeks", interval.Interval{Length: 2, Unit: interval.UnitWeek}.String())
}
