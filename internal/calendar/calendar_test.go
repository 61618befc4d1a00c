package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"one week", date(2024, 1, 1, 0, 0), date(2024, 1, 8, 0, 0), 7},
		{"same day", date(2024, 1, 1, 9, 0), date(2024, 1, 1, 23, 0), 0},
		{"crosses midnight by minutes", date(2024, 1, 1, 23, 50), date(2024, 1, 2, 0, 10), 1},
		{"end before start", date(2024, 1, 8, 0, 0), date(2024, 1, 1, 0, 0), -7},
		{"leap february", date(2024, 2, 28, 12, 0), date(2024, 3, 1, 12, 0), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysBetween_DST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 2024-03-31 is a 23-hour day in Berlin.
	start := time.Date(2024, 3, 30, 16, 0, 0, 0, loc)
	end := time.Date(2024, 4, 2, 16, 0, 0, 0, loc)
	if got := DaysBetween(start, end); got != 3 {
		t.Errorf("DaysBetween() across DST = %d, want 3", got)
	}
}

func TestSetTime(t *testing.T) {
	in := time.Date(2024, 5, 6, 9, 41, 33, 500, time.UTC)
	got := SetTime(in, 16, 0)
	want := date(2024, 5, 6, 16, 0)
	if !got.Equal(want) {
		t.Errorf("SetTime() = %v, want %v", got, want)
	}
}

func TestAddMonths(t *testing.T) {
	got := AddMonths(date(2024, 1, 15, 8, 0), 1)
	if !got.Equal(date(2024, 2, 15, 8, 0)) {
		t.Errorf("AddMonths() = %v", got)
	}
}

func TestDays(t *testing.T) {
	days := Days(date(2024, 1, 1, 10, 0), date(2024, 1, 4, 8, 0))
	if len(days) != 3 {
		t.Fatalf("len(Days()) = %d, want 3", len(days))
	}
	for i, d := range days {
		if d.Hour() != 0 || d.Day() != 1+i {
			t.Errorf("Days()[%d] = %v", i, d)
		}
	}

	if got := Days(date(2024, 1, 4, 0, 0), date(2024, 1, 1, 0, 0)); got != nil {
		t.Errorf("Days() with reversed range = %v, want nil", got)
	}
}

func TestIsToday(t *testing.T) {
	now := date(2024, 1, 1, 12, 0)
	if !IsToday(date(2024, 1, 1, 23, 59), now) {
		t.Error("IsToday() should be true later the same day")
	}
	if IsToday(date(2024, 1, 2, 0, 0), now) {
		t.Error("IsToday() should be false for the next day")
	}
}
