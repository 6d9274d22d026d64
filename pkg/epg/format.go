package epg

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateHeaderPrefix = "---"
	dateHeaderLayout = "02.01.2006"
	lineTimeLayout   = "15:04"
	lineSeparator    = " - "
	descIndent       = "  "
)

// NoProgramsLine is the single line returned for a channel without programmes.
func NoProgramsLine(title string) string {
	return "No EPG data for channel: " + title
}

// DateHeader renders the line that opens a day group.
func DateHeader(date time.Time) string {
	return fmt.Sprintf("%s %s %s", dateHeaderPrefix, date.Format(dateHeaderLayout), dateHeaderPrefix)
}

// IsDateHeader reports whether a formatted line opens a day group.
func IsDateHeader(line string) bool {
	return strings.HasPrefix(line, dateHeaderPrefix)
}

// FormatProgram renders "HH:MM - Title (Category)". The category part is
// left out when the programme has none.
func FormatProgram(p Program, loc *time.Location) string {
	line := p.Start.In(loc).Format(lineTimeLayout) + lineSeparator + p.Title
	if p.Category != "" {
		line += " (" + p.Category + ")"
	}
	return line
}

// ProgramsFor renders a channel's schedule as display lines: a date header
// per day followed by one line per programme and an indented description
// line when the programme has one.
func (i *Index) ProgramsFor(title string) []string {
	days := i.Days(title)
	if len(days) == 0 {
		return []string{NoProgramsLine(title)}
	}

	var lines []string
	for _, day := range days {
		lines = append(lines, DateHeader(day.Date))
		for _, program := range day.Programs {
			lines = append(lines, FormatProgram(program, i.location))
			if program.Description != "" {
				lines = append(lines, descIndent+program.Description)
			}
		}
	}
	return lines
}

// CurrentProgramIndex returns the position of the programme line airing at
// now. Each line's leading HH:MM is read as a time on now's calendar day, so
// schedules spanning several days resolve against today's clock only. The
// walk stops at the first line later than now; 0 is returned when no line
// qualifies.
func CurrentProgramIndex(lines []string, now time.Time) int {
	current := 0
	for i, line := range lines {
		if IsDateHeader(line) {
			continue
		}

		clock, _, found := strings.Cut(line, lineSeparator)
		if !found {
			continue
		}
		parsed, err := time.Parse(lineTimeLayout, clock)
		if err != nil {
			continue
		}

		at := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		if at.After(now) {
			break
		}
		current = i
	}
	return current
}
