package epg

import (
	"sort"
	"time"
)

// Index holds a parsed schedule in query-ready form. It is never modified
// after NewIndex returns; a refresh builds a new Index and replaces the old one.
type Index struct {
	location *time.Location
	entries  []Channel
	byTitle  map[string]Channel
	programs map[string][]Program
}

// Day groups the programmes of one channel that start on the same local date.
type Day struct {
	Date     time.Time
	Programs []Program
}

// NewIndex builds an index from a parsed schedule. Every channel is listed in
// feed order, even when several share a title; lookups by title resolve to
// the first of them and their programmes are merged under the title.
func NewIndex(schedule *Schedule, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}

	idx := &Index{
		location: loc,
		byTitle:  make(map[string]Channel),
		programs: make(map[string][]Program),
	}
	if schedule == nil {
		return idx
	}

	for _, ch := range schedule.Channels {
		idx.entries = append(idx.entries, ch)
		if _, exists := idx.byTitle[ch.Title]; !exists {
			idx.byTitle[ch.Title] = ch
		}
	}

	for title, programs := range schedule.Programs {
		if _, exists := idx.byTitle[title]; !exists {
			continue
		}
		sorted := make([]Program, len(programs))
		copy(sorted, programs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Start.Before(sorted[j].Start)
		})
		idx.programs[title] = sorted
	}

	return idx
}

// Location returns the time zone used for day grouping and formatting.
func (i *Index) Location() *time.Location {
	return i.location
}

// Len returns the number of listed channels.
func (i *Index) Len() int {
	return len(i.entries)
}

// ListChannels returns channel titles in feed order, one per channel entry.
func (i *Index) ListChannels() []string {
	titles := make([]string, 0, len(i.entries))
	for _, ch := range i.entries {
		titles = append(titles, ch.Title)
	}
	return titles
}

// Channels returns the listed channels in feed order.
func (i *Index) Channels() []Channel {
	channels := make([]Channel, len(i.entries))
	copy(channels, i.entries)
	return channels
}

// Channel looks up a channel by title.
func (i *Index) Channel(title string) (Channel, bool) {
	ch, ok := i.byTitle[title]
	return ch, ok
}

// Programs returns the programmes of a channel sorted by start time.
func (i *Index) Programs(title string) []Program {
	return i.programs[title]
}

// Days groups a channel's programmes by local calendar date, oldest first.
func (i *Index) Days(title string) []Day {
	var days []Day
	for _, program := range i.programs[title] {
		start := program.Start.In(i.location)
		date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, i.location)

		if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
			days[n-1].Programs = append(days[n-1].Programs, program)
			continue
		}
		days = append(days, Day{Date: date, Programs: []Program{program}})
	}
	return days
}

// NowPlaying finds the programme airing at now using full timestamps. A
// programme without a stop time is considered to run until the next one starts.
func (i *Index) NowPlaying(title string, now time.Time) (Program, bool) {
	programs := i.programs[title]

	// First programme starting after now.
	next := sort.Search(len(programs), func(n int) bool {
		return programs[n].Start.After(now)
	})
	if next == 0 {
		return Program{}, false
	}

	current := programs[next-1]
	if current.HasStop() && !now.Before(current.Stop) {
		return Program{}, false
	}
	return current, true
}
