package epg

import (
	"testing"
	"time"
)

func TestProgramsForFormatting(t *testing.T) {
	idx := NewIndex(testSchedule(), time.UTC)

	got := idx.ProgramsFor("Beta")
	want := []string{
		"--- 01.01.2025 ---",
		"06:00 - Early",
		"  No description",
		"22:00 - Late (Film)",
		"  A film.",
		"--- 02.01.2025 ---",
		"08:00 - Tomorrow",
		"  No description",
	}

	if len(got) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProgramsForPlaceholder(t *testing.T) {
	idx := NewIndex(testSchedule(), time.UTC)

	for _, title := range []string{"Empty", "Does Not Exist"} {
		lines := idx.ProgramsFor(title)
		if len(lines) != 1 {
			t.Fatalf("Expected exactly one placeholder line for %q, got %q", title, lines)
		}
		if lines[0] != NoProgramsLine(title) {
			t.Errorf("Unexpected placeholder %q", lines[0])
		}
	}
}

func TestProgramsForDateGroupingIgnoresInputOrder(t *testing.T) {
	schedule := &Schedule{
		Channels: []Channel{{ID: "c", Title: "C"}},
		Programs: map[string][]Program{
			"C": {
				{Title: "Second", Start: at(2025, 1, 2, 10, 0)},
				{Title: "First", Start: at(2025, 1, 1, 10, 0)},
			},
		},
	}

	var headers []string
	for _, line := range NewIndex(schedule, time.UTC).ProgramsFor("C") {
		if IsDateHeader(line) {
			headers = append(headers, line)
		}
	}

	if len(headers) != 2 || headers[0] != "--- 01.01.2025 ---" || headers[1] != "--- 02.01.2025 ---" {
		t.Errorf("Unexpected headers: %q", headers)
	}
}

func TestCurrentProgramIndex(t *testing.T) {
	lines := []string{"10:00 - A", "14:00 - B", "20:00 - C"}
	day := func(hour int) time.Time {
		return time.Date(2025, 3, 10, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		lines []string
		now   time.Time
		want  int
	}{
		{name: "afternoon", lines: lines, now: day(15), want: 1},
		{name: "before first falls back", lines: lines, now: day(9), want: 0},
		{name: "exact start", lines: lines, now: day(20), want: 2},
		{name: "late evening", lines: lines, now: day(23), want: 2},
		{
			name: "headers and descriptions skipped",
			lines: []string{
				"--- 10.03.2025 ---",
				"06:00 - Early",
				"  12:00 - not a programme line",
				"12:30 - Noon (News)",
				"  Lunch news.",
				"18:00 - Evening",
			},
			now:  day(13),
			want: 3,
		},
		{
			name: "stops at first later line",
			lines: []string{
				"--- 10.03.2025 ---",
				"08:00 - Today",
				"16:00 - Later today",
				"--- 11.03.2025 ---",
				"09:00 - Tomorrow",
			},
			now:  day(10),
			want: 1,
		},
		{name: "unparsable lines", lines: []string{"No EPG data for channel: X"}, now: day(12), want: 0},
		{name: "empty", lines: nil, now: day(12), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentProgramIndex(tt.lines, tt.now); got != tt.want {
				t.Errorf("CurrentProgramIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}
