package aggregate

import (
	"testing"
	"time"
)

func TestDueLabel(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	// Reference: 2026-03-10 10:00 local.
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)

	tests := []struct {
		name string
		due  time.Time
		want DueKind
	}{
		{
			name: "yesterday end of day is overdue",
			due:  time.Date(2026, 3, 9, 23, 59, 0, 0, loc),
			want: Overdue,
		},
		{
			name: "earlier today is still due today",
			due:  time.Date(2026, 3, 10, 9, 0, 0, 0, loc),
			want: DueToday,
		},
		{
			name: "later today is due today",
			due:  time.Date(2026, 3, 10, 23, 0, 0, 0, loc),
			want: DueToday,
		},
		{
			name: "tomorrow midnight is upcoming",
			due:  time.Date(2026, 3, 11, 0, 0, 0, 0, loc),
			want: DueOn,
		},
		{
			name: "last week is overdue",
			due:  time.Date(2026, 3, 3, 12, 0, 0, 0, loc),
			want: Overdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DueLabel(tt.due.UnixMilli(), now)
			if got.Kind != tt.want {
				t.Errorf("DueLabel(%s) = %s, want %s", tt.due, got.Kind, tt.want)
			}
		})
	}
}

func TestDueLabelDateIsLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	due := time.Date(2026, 3, 12, 15, 30, 0, 0, loc)

	got := DueLabel(due.UnixMilli(), now)
	want := time.Date(2026, 3, 12, 0, 0, 0, 0, loc)
	if !got.Date.Equal(want) {
		t.Errorf("Date = %s, want %s", got.Date, want)
	}
}

func TestDueKindString(t *testing.T) {
	tests := []struct {
		kind DueKind
		want string
	}{
		{Overdue, "Overdue"},
		{DueToday, "Due today"},
		{DueOn, "Due"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
