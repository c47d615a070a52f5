package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Jane Smith", CleanString("  Jane Smith \n"))
	assert.Equal(t, "jane@example.com", CleanString(" Jane@Example.COM ", true))
	assert.Equal(t, "", CleanString("   "))
}

func TestAddMonths(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		t    time.Time
		n    int
		want time.Time
	}{
		{name: "same day", t: date(2024, 3, 15), n: 1, want: date(2024, 4, 15)},
		{name: "leap year clamp", t: date(2024, 1, 31), n: 1, want: date(2024, 2, 29)},
		{name: "clamp", t: date(2023, 1, 31), n: 1, want: date(2023, 2, 28)},
		{name: "30 days month", t: date(2024, 3, 31), n: 1, want: date(2024, 4, 30)},
		{name: "over the year", t: date(2024, 11, 30), n: 3, want: date(2025, 2, 28)},
		{name: "negative", t: date(2024, 3, 31), n: -1, want: date(2024, 2, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonths(tt.t, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, time.February))
	assert.Equal(t, 28, DaysIn(2023, time.February))
	assert.Equal(t, 31, DaysIn(2024, time.December))
	assert.Equal(t, 30, DaysIn(2024, time.April))
}

func TestToday(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2024, 5, 3, 23, 59, 0, 0, time.FixedZone("WAT", 3600)) }
	defer func() { NowFunc = func() time.Time { return time.Now().UTC() } }()

	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Today())
}
