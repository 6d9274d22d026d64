// Package handlers exposes the EPG schedule over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/savid/epg-guide/pkg/data"
	"github.com/savid/epg-guide/pkg/epg"
	"github.com/savid/epg-guide/pkg/utils"
	"github.com/sirupsen/logrus"
)

const msgNoData = "EPG data not available"

// Snapshot exposes the published index and the refresh status.
type Snapshot interface {
	Index() (*epg.Index, bool)
	Status() data.Status
	LastSync() time.Time
}

// Refresher reloads the feed on demand.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// EPGHandler handles HTTP requests for EPG (Electronic Program Guide) data.
type EPGHandler struct {
	store     Snapshot
	refresher Refresher
	logger    logrus.FieldLogger
	now       func() time.Time
}

// ChannelResponse describes one listed channel.
type ChannelResponse struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Alias   string   `json:"alias"`
	Logo    string   `json:"logo"`
	IconURL string   `json:"icon_url,omitempty"`
	Picons  []string `json:"picons"`
}

// ProgramsResponse carries the display lines of one channel.
type ProgramsResponse struct {
	Channel      string   `json:"channel"`
	Lines        []string `json:"lines"`
	CurrentIndex int      `json:"current_index"`
}

// ProgramResponse is one programme with Unix-second timestamps.
type ProgramResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	Start       int64  `json:"start"`
	Stop        int64  `json:"stop,omitempty"`
}

// DayResponse groups the programmes of one calendar day.
type DayResponse struct {
	Date     string            `json:"date"`
	Programs []ProgramResponse `json:"programs"`
}

// ScheduleResponse is a channel's typed schedule.
type ScheduleResponse struct {
	Channel  string           `json:"channel"`
	Days     []DayResponse    `json:"days"`
	Airing   *ProgramResponse `json:"airing,omitempty"`
	Timezone string           `json:"timezone"`
}

// StatusResponse reports the refresh state.
type StatusResponse struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	Source    string    `json:"source,omitempty"`
	Channels  int       `json:"channels"`
	Programs  int       `json:"programs"`
	Truncated bool      `json:"truncated,omitempty"`
	LastSync  time.Time `json:"last_sync,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEPGHandler creates a new EPG handler instance.
func NewEPGHandler(store Snapshot, refresher Refresher, logger logrus.FieldLogger) *EPGHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &EPGHandler{
		store:     store,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// Register adds the EPG routes to mux.
func (h *EPGHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /channels", h.Channels)
	mux.HandleFunc("GET /channels/{title}/programs", h.Programs)
	mux.HandleFunc("GET /channels/{title}/schedule", h.Schedule)
	mux.HandleFunc("POST /refresh", h.Refresh)
	mux.HandleFunc("GET /status", h.Status)
}

// Channels lists the channels in feed order.
func (h *EPGHandler) Channels(w http.ResponseWriter, _ *http.Request) {
	index, ok := h.index(w)
	if !ok {
		return
	}

	channels := index.Channels()
	resp := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		resp = append(resp, ChannelResponse{
			ID:      ch.ID,
			Title:   ch.Title,
			Alias:   ch.Alias,
			Logo:    ch.LogoFileName,
			IconURL: ch.IconURL,
			Picons:  utils.PiconCandidates(ch.Title),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Programs returns the formatted display lines of a channel and the
// position of the airing programme.
func (h *EPGHandler) Programs(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w)
	if !ok {
		return
	}

	title := r.PathValue("title")
	if _, found := index.Channel(title); !found {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	lines := index.ProgramsFor(title)
	h.writeJSON(w, http.StatusOK, ProgramsResponse{
		Channel:      title,
		Lines:        lines,
		CurrentIndex: epg.CurrentProgramIndex(lines, h.now().In(index.Location())),
	})
}

// Schedule returns a channel's programmes grouped by day.
func (h *EPGHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	index, ok := h.index(w)
	if !ok {
		return
	}

	title := r.PathValue("title")
	if _, found := index.Channel(title); !found {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	resp := ScheduleResponse{
		Channel:  title,
		Days:     []DayResponse{},
		Timezone: index.Location().String(),
	}
	for _, day := range index.Days(title) {
		dr := DayResponse{
			Date:     day.Date.Format(time.DateOnly),
			Programs: make([]ProgramResponse, 0, len(day.Programs)),
		}
		for _, p := range day.Programs {
			dr.Programs = append(dr.Programs, programResponse(p))
		}
		resp.Days = append(resp.Days, dr)
	}
	if airing, found := index.NowPlaying(title, h.now()); found {
		pr := programResponse(airing)
		resp.Airing = &pr
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Refresh downloads the feed regardless of cache freshness.
func (h *EPGHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.refresher.ForceRefresh(r.Context())
	switch {
	case errors.Is(err, data.ErrRefreshInProgress):
		http.Error(w, "Refresh already in progress", http.StatusConflict)
		return
	case err != nil:
		h.logger.WithError(err).Warn("Requested refresh failed")
		http.Error(w, data.FailureReason(err), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, http.StatusOK, h.statusResponse())
}

// Status reports the refresh state.
func (h *EPGHandler) Status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.statusResponse())
}

func (h *EPGHandler) statusResponse() StatusResponse {
	status := h.store.Status()
	return StatusResponse{
		State:     status.State.String(),
		Reason:    status.Reason,
		Source:    string(status.Source),
		Channels:  status.Stats.Channels,
		Programs:  status.Stats.Programs,
		Truncated: status.Stats.Truncated,
		LastSync:  h.store.LastSync(),
		UpdatedAt: status.UpdatedAt,
	}
}

func (h *EPGHandler) index(w http.ResponseWriter) (*epg.Index, bool) {
	index, ok := h.store.Index()
	if !ok {
		h.logger.Error(msgNoData)
		http.Error(w, msgNoData, http.StatusServiceUnavailable)
		return nil, false
	}
	return index, true
}

func (h *EPGHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

func programResponse(p epg.Program) ProgramResponse {
	pr := ProgramResponse{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		IconURL:     p.IconURL,
		Start:       p.Start.Unix(),
	}
	if p.HasStop() {
		pr.Stop = p.Stop.Unix()
	}
	return pr
}
