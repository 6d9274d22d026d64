package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/savid/epg-guide/pkg/data"
	"github.com/savid/epg-guide/pkg/guide"
)

type publishRefresher struct {
	store  *data.Store
	source *data.Store
}

// Refresh copies the fixture index into the session's store.
func (p *publishRefresher) Refresh(context.Context) error {
	index, _ := p.source.Index()
	p.store.SetIndex(index, data.SourceNetwork, p.source.Status().Stats)
	return nil
}

func newGuideRouter(t *testing.T) http.Handler {
	t.Helper()
	store := data.NewStore()
	session := guide.NewSession(&publishRefresher{store: store, source: loadedStore(t)}, store, testLogger())
	session.SetClock(func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) })

	return NewRouter(
		newTestHandler(store, &stubRefresher{}),
		NewGuideHandler(session, testLogger()),
		testLogger(),
	)
}

func post(handler http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) guide.View {
	t.Helper()
	var view guide.View
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func TestGuideFlow(t *testing.T) {
	router := newGuideRouter(t)

	view := decodeView(t, serve(router, http.MethodGet, "/guide"))
	if view.Message != guide.MessageNoData {
		t.Errorf("Expected %q before refresh, got %q", guide.MessageNoData, view.Message)
	}

	w := post(router, "/guide/refresh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	view = decodeView(t, w)
	if len(view.Channels) != 2 || view.Selected != "Jednotka" || len(view.Lines) != 8 {
		t.Errorf("Expected first channel to be selected after refresh: %+v", view)
	}

	w = post(router, "/guide/select", `{"title":"Jednotka"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	view = decodeView(t, w)
	if view.Selected != "Jednotka" || view.CurrentIndex != 1 || len(view.Lines) != 8 {
		t.Errorf("Unexpected view after select: %+v", view)
	}

	view = decodeView(t, post(router, "/guide/navigate", `{"direction":"down"}`))
	if view.Selected != "Markíza HD" {
		t.Errorf("Expected next channel, got %q", view.Selected)
	}

	view = decodeView(t, post(router, "/guide/focus", ""))
	if view.Focus != guide.FocusPrograms {
		t.Errorf("Expected programs focus, got %q", view.Focus)
	}
}

func TestGuideSelectErrors(t *testing.T) {
	router := newGuideRouter(t)

	if w := post(router, "/guide/select", `{"title":"Jednotka"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 before data, got %d", w.Code)
	}

	post(router, "/guide/refresh", "")

	if w := post(router, "/guide/select", `{"title":"Nope"}`); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := post(router, "/guide/select", `not json`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if w := post(router, "/guide/navigate", `{"direction":"sideways"}`); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
