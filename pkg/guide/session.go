// Package guide keeps the browsing state of a display client: which channel
// is selected, which list has focus and where the schedule is scrolled to.
// The client drives it with explicit events and renders the returned View.
package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/savid/epg-guide/pkg/data"
	"github.com/savid/epg-guide/pkg/epg"
	"github.com/savid/epg-guide/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Messages shown in place of a schedule.
const (
	MessageNoData        = "EPG data not available"
	MessageNoChannels    = "No channels available"
	MessageSelectChannel = "Select a channel to view EPG"
)

var (
	// ErrNoData is returned when an event needs a schedule and none is loaded.
	ErrNoData = errors.New("epg data not available")
	// ErrUnknownChannel is returned when selecting a title the schedule lacks.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrInvalidDirection is returned for a direction other than up or down.
	ErrInvalidDirection = errors.New("invalid direction")
)

// Direction is a navigation step.
type Direction int

// Navigation directions.
const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection converts "up" or "down" into a Direction.
func ParseDirection(value string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return Up, fmt.Errorf("%w: %q", ErrInvalidDirection, value)
	}
}

// Focus names the list that receives navigation.
type Focus string

// Focus targets.
const (
	FocusChannels Focus = "channels"
	FocusPrograms Focus = "programs"
)

// Refresher loads or reloads the schedule.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Snapshot exposes the published index and the refresh status.
type Snapshot interface {
	Index() (*epg.Index, bool)
	Status() data.Status
}

// View is everything a client needs to draw the guide.
type View struct {
	Channels     []string `json:"channels"`
	Selected     string   `json:"selected,omitempty"`
	Focus        Focus    `json:"focus"`
	Lines        []string `json:"lines"`
	CurrentIndex int      `json:"current_index"`
	ScrollPos    int      `json:"scroll_pos"`
	Picons       []string `json:"picons,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Session holds one client's browsing state.
type Session struct {
	mu        sync.Mutex
	refresher Refresher
	snapshot  Snapshot
	logger    logrus.FieldLogger
	now       func() time.Time

	index    *epg.Index
	focus    Focus
	cursor   int
	selected string
	lines    []string
	current  int
	scroll   int
}

// NewSession creates a session with focus on the channel list. Nothing is
// selected until a schedule with at least one channel is published.
func NewSession(refresher Refresher, snapshot Snapshot, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		refresher: refresher,
		snapshot:  snapshot,
		logger:    logger,
		now:       time.Now,
		focus:     FocusChannels,
		cursor:    -1,
	}
}

// SetClock replaces the wall clock used to locate the airing programme.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// OnRefreshRequested runs a refresh and re-syncs the selection with the
// resulting schedule. When the selected channel disappeared from the feed,
// or nothing was selected yet, the first channel is selected. The refresh error is returned after syncing, so the view
// still reflects whatever data is published.
func (s *Session) OnRefreshRequested(ctx context.Context) error {
	err := s.refresher.Refresh(ctx)
	if err != nil && !errors.Is(err, data.ErrRefreshInProgress) {
		s.logger.WithError(err).Warn("Guide refresh failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync()

	return err
}

// OnChannelSelected selects a channel by title.
func (s *Session) OnChannelSelected(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync()
	if s.index == nil {
		return ErrNoData
	}

	for i, candidate := range s.index.ListChannels() {
		if candidate == title {
			s.selectAt(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownChannel, title)
}

// OnNavigate moves through the focused list. Both lists wrap around at
// either end. Moving through channels re-selects, moving through the
// schedule only scrolls.
func (s *Session) OnNavigate(direction Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync()
	if s.index == nil {
		return
	}

	if s.focus == FocusChannels {
		titles := s.index.ListChannels()
		if len(titles) == 0 {
			return
		}
		next := 0
		if s.cursor >= 0 {
			next = step(s.cursor, direction, len(titles))
		}
		s.selectAt(next)
		return
	}

	if len(s.lines) > 0 {
		s.scroll = step(s.scroll, direction, len(s.lines))
	}
}

// OnSwitchFocus toggles focus between the channel list and the schedule.
// The schedule scroll position jumps back to the airing programme.
func (s *Session) OnSwitchFocus() Focus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focus == FocusChannels {
		s.focus = FocusPrograms
	} else {
		s.focus = FocusChannels
	}
	s.sync()
	s.render()
	s.logger.WithField("focus", string(s.focus)).Debug("Switched guide focus")

	return s.focus
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync()

	view := View{
		Focus:        s.focus,
		Lines:        []string{},
		CurrentIndex: s.current,
		ScrollPos:    s.scroll,
	}

	status := s.snapshot.Status()
	if status.State == data.StateFailed {
		view.Message = status.Reason
	}

	if s.index == nil {
		view.Channels = []string{}
		if view.Message == "" {
			view.Message = MessageNoData
		}
		return view
	}

	view.Channels = s.index.ListChannels()
	switch {
	case len(view.Channels) == 0:
		view.Channels = []string{}
		if view.Message == "" {
			view.Message = MessageNoChannels
		}
	case s.selected == "":
		if view.Message == "" {
			view.Message = MessageSelectChannel
		}
	default:
		view.Selected = s.selected
		view.Lines = append(view.Lines, s.lines...)
		view.Picons = utils.PiconCandidates(s.selected)
	}

	return view
}

// sync picks up a newly published index. The selection survives when the
// title is still listed; otherwise the first channel is selected.
func (s *Session) sync() {
	index, ok := s.snapshot.Index()
	if !ok || index == s.index {
		return
	}
	s.index = index

	titles := index.ListChannels()
	if s.selected != "" {
		if s.cursor >= 0 && s.cursor < len(titles) && titles[s.cursor] == s.selected {
			s.selectAt(s.cursor)
			return
		}
		for i, title := range titles {
			if title == s.selected {
				s.selectAt(i)
				return
			}
		}
	}
	if len(titles) > 0 {
		s.selectAt(0)
		return
	}

	s.cursor = -1
	s.selected = ""
	s.lines = nil
	s.current, s.scroll = 0, 0
}

func (s *Session) selectAt(i int) {
	s.cursor = i
	s.selected = s.index.ListChannels()[i]
	s.render()
}

func (s *Session) render() {
	if s.index == nil || s.selected == "" {
		return
	}
	s.lines = s.index.ProgramsFor(s.selected)
	s.current = epg.CurrentProgramIndex(s.lines, s.now().In(s.index.Location()))
	s.scroll = s.current

	s.logger.WithFields(logrus.Fields{
		"channel": s.selected,
		"lines":   len(s.lines),
		"current": s.current,
	}).Debug("Rendered channel schedule")
}

func step(pos int, direction Direction, n int) int {
	if direction == Up {
		return (pos - 1 + n) % n
	}
	return (pos + 1) % n
}
