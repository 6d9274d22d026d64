// Package epg provides parsing and indexing of XMLTV (Electronic Program Guide) data.
package epg

import "time"

const (
	// UnknownTitle replaces a programme title element that carries no text.
	UnknownTitle = "Unknown title"
	// NoDescription replaces a missing programme description.
	NoDescription = "No description"
)

// Channel is a channel definition taken from the feed.
type Channel struct {
	ID           string
	Title        string
	Alias        string
	LogoFileName string
	IconURL      string
}

// Program is a single programme entry belonging to one channel.
type Program struct {
	ChannelID   string
	Title       string
	Description string
	Category    string
	IconURL     string
	Start       time.Time
	// Stop is zero when the feed omits it or it cannot be parsed.
	Stop time.Time
}

// HasStop reports whether the programme carries a usable stop time.
func (p Program) HasStop() bool {
	return !p.Stop.IsZero()
}

// Stats counts records the parser skipped.
type Stats struct {
	Channels          int
	Programs          int
	SkippedChannels   int
	DuplicateChannels int
	SkippedPrograms   int
	UnknownChannel    int
	InvalidStart      int
	InvalidStop       int
	// DamagedFragments counts elements dropped because of a syntax error.
	DamagedFragments int
	// Truncated is set when a syntax error left no later element to resume at.
	Truncated bool
}

// Schedule is the parser output: channels in feed order and programmes keyed
// by channel title.
type Schedule struct {
	Channels []Channel
	Programs map[string][]Program
	Stats    Stats
}
