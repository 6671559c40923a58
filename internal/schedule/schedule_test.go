package schedule

import (
	"testing"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		min, max   int
		wantAny    bool
		wantValues []int
	}{
		{"empty is wildcard", "", 0, 23, true, nil},
		{"star is wildcard", "*", 0, 23, true, nil},
		{"question mark is wildcard", "?", 0, 23, true, nil},
		{"single value", "18", 0, 23, false, []int{18}},
		{"comma list", "1,3,5", 0, 6, false, []int{1, 3, 5}},
		{"inclusive range", "10-12", 1, 31, false, []int{10, 11, 12}},
		{"list with range", "1,5-7", 1, 31, false, []int{1, 5, 6, 7}},
		{"step is unexpandable", "*/2", 0, 23, false, nil},
		{"step inside list is unexpandable", "1,*/5", 0, 59, false, nil},
		{"out of range dropped", "3,99", 0, 6, false, []int{3}},
		{"garbage dropped", "mon,3", 0, 6, false, []int{3}},
		{"duplicates collapsed", "2,2,2", 0, 6, false, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseField(tt.raw, tt.min, tt.max, nil)
			if got.Any != tt.wantAny {
				t.Fatalf("Any = %v, want %v", got.Any, tt.wantAny)
			}
			if len(got.Values) != len(tt.wantValues) {
				t.Fatalf("Values = %v, want %v", got.Values, tt.wantValues)
			}
			for i, v := range tt.wantValues {
				if got.Values[i] != v {
					t.Errorf("Values[%d] = %d, want %d", i, got.Values[i], v)
				}
			}
		})
	}
}

func TestParseFieldNormalizesWeekday(t *testing.T) {
	got := ParseField("7", 0, 6, normalizeWeekday)
	if got.Any || len(got.Values) != 1 || got.Values[0] != 0 {
		t.Errorf("weekday 7 should normalize to 0, got %+v", got)
	}
}

func TestExpandMonthWeekdays(t *testing.T) {
	// Mon/Wed/Fri at 18:00 in April 2024 (30 days): Mondays fall on
	// 1,8,15,22,29; Wednesdays on 3,10,17,24; Fridays on 5,12,19,26.
	occs := ExpandMonth(Descriptor{
		Hour:      "18",
		Minute:    "0",
		DayOfWeek: "1,3,5",
	}, 2024, 4)

	if len(occs) != 13 {
		t.Fatalf("occurrence count = %d, want 13", len(occs))
	}
	for _, occ := range occs {
		if occ.Anytime {
			t.Errorf("day %d: unexpected anytime occurrence", occ.Day)
		}
		if occ.Hour != 18 || occ.Minute != 0 {
			t.Errorf("day %d: time = %02d:%02d, want 18:00", occ.Day, occ.Hour, occ.Minute)
		}
		wd := civilWeekday(2024, 4, occ.Day)
		if wd != 1 && wd != 3 && wd != 5 {
			t.Errorf("day %d has weekday %d", occ.Day, wd)
		}
	}
}

func TestExpandMonthDaysOfMonth(t *testing.T) {
	tests := []struct {
		name        string
		desc        Descriptor
		year, month int
		wantDays    []int
	}{
		{
			name:     "explicit days",
			desc:     Descriptor{Hour: "6", Minute: "30", DayOfMonth: "1,15"},
			year:     2024,
			month:    3,
			wantDays: []int{1, 15},
		},
		{
			name:     "day 31 skipped in February",
			desc:     Descriptor{Hour: "0", Minute: "0", DayOfMonth: "28,31"},
			year:     2024,
			month:    2,
			wantDays: []int{28},
		},
		{
			name:     "day of month beats day of week",
			desc:     Descriptor{Hour: "12", Minute: "0", DayOfMonth: "10", DayOfWeek: "1,2,3"},
			year:     2024,
			month:    3,
			wantDays: []int{10},
		},
		{
			name:     "step expression expands to nothing",
			desc:     Descriptor{Hour: "0", Minute: "0", DayOfMonth: "*/2"},
			year:     2024,
			month:    3,
			wantDays: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occs := ExpandMonth(tt.desc, tt.year, tt.month)
			if len(occs) != len(tt.wantDays) {
				t.Fatalf("occurrence count = %d, want %d", len(occs), len(tt.wantDays))
			}
			for i, day := range tt.wantDays {
				if occs[i].Day != day {
					t.Errorf("occs[%d].Day = %d, want %d", i, occs[i].Day, day)
				}
			}
		})
	}
}

func TestExpandMonthDaily(t *testing.T) {
	occs := ExpandMonth(Descriptor{Hour: "3", Minute: "15"}, 2024, 2)
	if len(occs) != 29 {
		t.Fatalf("daily expansion in Feb 2024 = %d occurrences, want 29", len(occs))
	}
	for i, occ := range occs {
		if occ.Day != i+1 {
			t.Fatalf("occs[%d].Day = %d, want %d", i, occ.Day, i+1)
		}
	}
}

func TestExpandMonthAnytime(t *testing.T) {
	occs := ExpandMonth(Descriptor{Hour: "*", Minute: "30", DayOfMonth: "5"}, 2024, 3)
	if len(occs) != 1 {
		t.Fatalf("occurrence count = %d, want 1", len(occs))
	}
	if !occs[0].Anytime {
		t.Error("wildcard hour should produce an anytime occurrence")
	}
}

func TestExpandMonthSundayAlias(t *testing.T) {
	// day_of_week 7 means Sunday. March 2024 Sundays: 3, 10, 17, 24, 31.
	occs := ExpandMonth(Descriptor{Hour: "9", Minute: "0", DayOfWeek: "7"}, 2024, 3)
	want := []int{3, 10, 17, 24, 31}
	if len(occs) != len(want) {
		t.Fatalf("occurrence count = %d, want %d", len(occs), len(want))
	}
	for i, day := range want {
		if occs[i].Day != day {
			t.Errorf("occs[%d].Day = %d, want %d", i, occs[i].Day, day)
		}
	}
}
