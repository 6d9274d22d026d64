package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// NewRouter wires every route behind the logging middleware.
func NewRouter(epgHandler *EPGHandler, guideHandler *GuideHandler, logger logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	epgHandler.Register(mux)
	if guideHandler != nil {
		guideHandler.Register(mux)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return LoggingMiddleware(logger)(mux)
}
