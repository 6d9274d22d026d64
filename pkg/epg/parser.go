package epg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/savid/epg-guide/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// ErrMalformedFeed is returned when the document cannot be read as XML at all.
var ErrMalformedFeed = errors.New("malformed EPG feed")

// Parser turns raw XMLTV text into a Schedule. It is lenient: broken or
// incomplete records are skipped, and an element with a syntax error after
// the root element is dropped while its later siblings are still read.
type Parser struct {
	location *time.Location
	logger   logrus.FieldLogger
}

// NewParser creates a parser that interprets feed timestamps in loc.
func NewParser(loc *time.Location, logger logrus.FieldLogger) *Parser {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Parser{
		location: loc,
		logger:   logger,
	}
}

// ParseStream parses EPG XML data from an io.Reader using local time and the standard logger.
func ParseStream(reader io.Reader) (*Schedule, error) {
	return NewParser(time.Local, nil).Parse(reader)
}

// Parse reads an XMLTV document.
func (p *Parser) Parse(reader io.Reader) (*Schedule, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", ErrMalformedFeed, err)
	}
	return p.ParseBytes(raw)
}

// programmeElement holds the raw attribute and child values of a programme.
// Programmes are resolved against channels only after the whole document has
// been read, so their position relative to channel definitions does not matter.
type programmeElement struct {
	channel  string
	start    string
	stop     string
	title    string
	hasTitle bool
	desc     string
	category string
	icon     string
}

// resumeRoot wraps the remainder of a damaged document so the original
// closing root tag still has an element to close.
const resumeRoot = "<tv>"

// ParseBytes parses an in-memory EPG document. A syntax error before the root
// element is fatal. After it, the damaged element is dropped and parsing
// resumes at the next channel or programme element.
func (p *Parser) ParseBytes(raw []byte) (*Schedule, error) {
	raw = toUTF8(raw)

	var (
		channels   []Channel
		programmes []programmeElement
		stats      Stats
		rootSeen   bool
		base       int64
	)

	decoder := newDecoder(bytes.NewReader(raw))

	// recoverFrom skips past a syntax error. When no further element exists
	// the rest of the document is dropped and Truncated is set.
	recoverFrom := func(err error) {
		stats.DamagedFragments++
		errAt := base + decoder.InputOffset()

		next, found := nextFragment(raw, errAt)
		if !found {
			stats.Truncated = true
			p.logger.WithError(err).WithField("offset", errAt).Warn("EPG document is damaged, keeping records parsed so far")
			return
		}

		p.logger.WithError(err).WithFields(logrus.Fields{
			"offset":    errAt,
			"resume_at": next,
		}).Warn("Skipping damaged EPG element")

		base = next - int64(len(resumeRoot))
		decoder = newDecoder(io.MultiReader(strings.NewReader(resumeRoot), bytes.NewReader(raw[next:])))
	}

	for !stats.Truncated {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !rootSeen {
				return nil, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
			}
			recoverFrom(err)
			continue
		}

		elem, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		rootSeen = true

		switch elem.Name.Local {
		case "channel":
			channel, ok, err := p.parseChannel(decoder, elem)
			if err != nil {
				recoverFrom(err)
				continue
			}
			if !ok {
				stats.SkippedChannels++
				continue
			}
			channels = append(channels, channel)

		case "programme":
			programme, err := parseProgramme(decoder, elem)
			if err != nil {
				recoverFrom(err)
				continue
			}
			programmes = append(programmes, programme)
		}
	}

	if !rootSeen {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedFeed)
	}

	schedule := p.resolve(channels, programmes, stats)

	p.logger.WithFields(logrus.Fields{
		"channels":           schedule.Stats.Channels,
		"programs":           schedule.Stats.Programs,
		"skipped_channels":   schedule.Stats.SkippedChannels + schedule.Stats.DuplicateChannels,
		"skipped_programs":   schedule.Stats.SkippedPrograms,
		"unknown_channel":    schedule.Stats.UnknownChannel,
		"invalid_start_time": schedule.Stats.InvalidStart,
		"damaged_fragments":  schedule.Stats.DamagedFragments,
		"truncated":          schedule.Stats.Truncated,
	}).Info("Parsed EPG data")

	return schedule, nil
}

func newDecoder(reader io.Reader) *xml.Decoder {
	decoder := xml.NewDecoder(reader)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel
	return decoder
}

var xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?encoding\s*=\s*["']([^"']+)["']`)

// toUTF8 converts a document declaring a legacy encoding to UTF-8 and
// rewrites the declaration to match, so byte offsets stay valid when parsing
// resumes mid-document. Unknown labels are left for the decoder to reject.
func toUTF8(raw []byte) []byte {
	m := xmlDeclEncoding.FindSubmatchIndex(raw)
	if m == nil {
		return raw
	}

	label := strings.ToLower(string(raw[m[2]:m[3]]))
	if label == "utf-8" || label == "utf8" {
		return raw
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(raw))
	if err != nil {
		return raw
	}
	converted, err := io.ReadAll(reader)
	if err != nil || len(converted) < m[3] {
		return raw
	}

	// The declaration is ASCII, so its offsets survive the conversion.
	out := make([]byte, 0, len(converted))
	out = append(out, converted[:m[2]]...)
	out = append(out, "UTF-8"...)
	out = append(out, converted[m[3]:]...)
	return out
}

// nextFragment finds the first channel or programme start tag at or after from.
func nextFragment(raw []byte, from int64) (int64, bool) {
	for i := from; i < int64(len(raw)); {
		j := bytes.IndexByte(raw[i:], '<')
		if j < 0 {
			return 0, false
		}
		at := i + int64(j)
		rest := raw[at+1:]
		for _, name := range []string{"channel", "programme"} {
			if len(rest) > len(name) && bytes.HasPrefix(rest, []byte(name)) && isTagBoundary(rest[len(name)]) {
				return at, true
			}
		}
		i = at + 1
	}
	return 0, false
}

func isTagBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '>', '/':
		return true
	}
	return false
}

// resolve deduplicates channels and attaches programmes to channel titles.
func (p *Parser) resolve(channels []Channel, programmes []programmeElement, stats Stats) *Schedule {
	schedule := &Schedule{
		Channels: make([]Channel, 0, len(channels)),
		Programs: make(map[string][]Program, len(channels)),
	}

	titles := make(map[string]string, len(channels))
	for _, ch := range channels {
		if _, exists := titles[ch.ID]; exists {
			p.logger.WithFields(logrus.Fields{
				"channel": ch.Title,
				"id":      ch.ID,
			}).Debug("Skipping duplicate EPG channel id")
			stats.DuplicateChannels++
			continue
		}

		titles[ch.ID] = ch.Title
		schedule.Channels = append(schedule.Channels, ch)
		if _, exists := schedule.Programs[ch.Title]; !exists {
			schedule.Programs[ch.Title] = []Program{}
		}
	}

	for _, raw := range programmes {
		if raw.channel == "" || raw.start == "" || !raw.hasTitle {
			stats.SkippedPrograms++
			continue
		}

		title, known := titles[raw.channel]
		if !known {
			stats.UnknownChannel++
			stats.SkippedPrograms++
			continue
		}

		program, ok := p.buildProgram(raw, &stats)
		if !ok {
			stats.SkippedPrograms++
			continue
		}

		schedule.Programs[title] = append(schedule.Programs[title], program)
		stats.Programs++
	}

	stats.Channels = len(schedule.Channels)
	schedule.Stats = stats

	return schedule
}

func (p *Parser) buildProgram(raw programmeElement, stats *Stats) (Program, bool) {
	start, err := ParseTimestamp(raw.start, p.location)
	if err != nil {
		p.logger.WithError(err).WithField("channel", raw.channel).Debug("Discarding programme with invalid start time")
		stats.InvalidStart++
		return Program{}, false
	}

	program := Program{
		ChannelID:   raw.channel,
		Title:       raw.title,
		Description: raw.desc,
		Category:    raw.category,
		IconURL:     raw.icon,
		Start:       start,
	}
	if program.Title == "" {
		program.Title = UnknownTitle
	}
	if program.Description == "" {
		program.Description = NoDescription
	}

	if raw.stop != "" {
		stopTime, err := ParseTimestamp(raw.stop, p.location)
		if err != nil {
			p.logger.WithError(err).WithField("channel", raw.channel).Debug("Ignoring invalid programme stop time")
			stats.InvalidStop++
		} else {
			program.Stop = stopTime
		}
	}

	return program, true
}

// parseChannel reads a channel element. ok is false when the channel lacks
// an id or a display name; err is only set for decoder failures.
func (p *Parser) parseChannel(decoder *xml.Decoder, start xml.StartElement) (Channel, bool, error) {
	var (
		channel     Channel
		nameSeen    bool
		iconSeen    bool
		displayName string
	)

	channel.ID = strings.TrimSpace(attr(start, "id"))

	for {
		token, err := decoder.Token()
		if err != nil {
			return Channel{}, false, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "display-name":
				text, err := readText(decoder, elem)
				if err != nil {
					return Channel{}, false, err
				}
				if !nameSeen {
					displayName = text
					nameSeen = true
				}
			case "icon":
				if !iconSeen {
					channel.IconURL = attr(elem, "src")
					iconSeen = true
				}
				if err := decoder.Skip(); err != nil {
					return Channel{}, false, err
				}
			default:
				if err := decoder.Skip(); err != nil {
					return Channel{}, false, err
				}
			}
		case xml.EndElement:
			if elem.Name.Local != start.Name.Local {
				continue
			}

			if channel.ID == "" || displayName == "" {
				p.logger.WithFields(logrus.Fields{
					"id":      channel.ID,
					"channel": displayName,
				}).Debug("Skipping EPG channel without id or display name")
				return Channel{}, false, nil
			}

			channel.Title = displayName
			channel.Alias = utils.CleanChannelName(displayName)
			channel.LogoFileName = channel.Alias + utils.LogoExtension
			return channel, true, nil
		}
	}
}

func parseProgramme(decoder *xml.Decoder, start xml.StartElement) (programmeElement, error) {
	programme := programmeElement{
		channel: strings.TrimSpace(attr(start, "channel")),
		start:   strings.TrimSpace(attr(start, "start")),
		stop:    strings.TrimSpace(attr(start, "stop")),
	}

	var descSeen, categorySeen, iconSeen bool

	for {
		token, err := decoder.Token()
		if err != nil {
			return programmeElement{}, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title", "desc", "category":
				text, err := readText(decoder, elem)
				if err != nil {
					return programmeElement{}, err
				}
				switch {
				case elem.Name.Local == "title" && !programme.hasTitle:
					programme.title = text
					programme.hasTitle = true
				case elem.Name.Local == "desc" && !descSeen:
					programme.desc = text
					descSeen = true
				case elem.Name.Local == "category" && !categorySeen:
					programme.category = text
					categorySeen = true
				}
			case "icon":
				if !iconSeen {
					programme.icon = attr(elem, "src")
					iconSeen = true
				}
				if err := decoder.Skip(); err != nil {
					return programmeElement{}, err
				}
			default:
				if err := decoder.Skip(); err != nil {
					return programmeElement{}, err
				}
			}
		case xml.EndElement:
			if elem.Name.Local == start.Name.Local {
				return programme, nil
			}
		}
	}
}

func readText(decoder *xml.Decoder, elem xml.StartElement) (string, error) {
	var text string
	if err := decoder.DecodeElement(&text, &elem); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func attr(elem xml.StartElement, name string) string {
	for _, a := range elem.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
