package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/savid/epg-guide/pkg/data"
	"github.com/savid/epg-guide/pkg/guide"
	"github.com/sirupsen/logrus"
)

// GuideHandler drives a guide session from a remote display client. Every
// route answers with the resulting view.
type GuideHandler struct {
	session *guide.Session
	logger  logrus.FieldLogger
}

type selectRequest struct {
	Title string `json:"title"`
}

type navigateRequest struct {
	Direction string `json:"direction"`
}

// NewGuideHandler creates a handler for session events.
func NewGuideHandler(session *guide.Session, logger logrus.FieldLogger) *GuideHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &GuideHandler{
		session: session,
		logger:  logger,
	}
}

// Register adds the guide routes to mux.
func (h *GuideHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /guide", h.View)
	mux.HandleFunc("POST /guide/refresh", h.Refresh)
	mux.HandleFunc("POST /guide/select", h.Select)
	mux.HandleFunc("POST /guide/navigate", h.Navigate)
	mux.HandleFunc("POST /guide/focus", h.Focus)
}

// View returns the current view.
func (h *GuideHandler) View(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, http.StatusOK)
}

// Refresh loads the schedule, using the cache while it is fresh. Failures
// are reported through the view message.
func (h *GuideHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.session.OnRefreshRequested(r.Context())
	if errors.Is(err, data.ErrRefreshInProgress) {
		h.respond(w, http.StatusConflict)
		return
	}
	h.respond(w, http.StatusOK)
}

// Select picks a channel by title.
func (h *GuideHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	switch err := h.session.OnChannelSelected(req.Title); {
	case errors.Is(err, guide.ErrNoData):
		http.Error(w, msgNoData, http.StatusServiceUnavailable)
	case errors.Is(err, guide.ErrUnknownChannel):
		http.Error(w, "Channel not found", http.StatusNotFound)
	default:
		h.respond(w, http.StatusOK)
	}
}

// Navigate moves through the focused list.
func (h *GuideHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	direction, err := guide.ParseDirection(req.Direction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.session.OnNavigate(direction)
	h.respond(w, http.StatusOK)
}

// Focus toggles between the channel list and the schedule.
func (h *GuideHandler) Focus(w http.ResponseWriter, _ *http.Request) {
	h.session.OnSwitchFocus()
	h.respond(w, http.StatusOK)
}

func (h *GuideHandler) respond(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(h.session.View()); err != nil {
		h.logger.WithError(err).Error("Failed to encode guide view")
	}
}
