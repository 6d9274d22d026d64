package data

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/savid/epg-guide/config"
	"github.com/savid/epg-guide/pkg/epg"
	"github.com/sirupsen/logrus"
)

// Refresher runs the refresh cycle: check the cache, fetch and decompress on
// a miss, write the cache, parse and publish a new index into the store.
// Failures are terminal for the attempt; nothing is retried automatically.
type Refresher struct {
	store    *Store
	cache    *Cache
	fetcher  *Fetcher
	parser   *epg.Parser
	url      string
	maxAge   time.Duration
	interval time.Duration
	location *time.Location
	logger   logrus.FieldLogger

	running  sync.Mutex
	observer func(State)
}

// NewRefresher creates a new refresh manager.
func NewRefresher(cfg *config.Config, store *Store, cache *Cache, fetcher *Fetcher, logger logrus.FieldLogger) *Refresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	loc := cfg.Location()

	return &Refresher{
		store:    store,
		cache:    cache,
		fetcher:  fetcher,
		parser:   epg.NewParser(loc, logger),
		url:      cfg.EPGURL,
		maxAge:   cfg.CacheMaxAge,
		interval: cfg.RefreshInterval,
		location: loc,
		logger:   logger,
	}
}

// SetObserver registers a callback invoked on every state transition.
func (r *Refresher) SetObserver(fn func(State)) {
	r.observer = fn
}

// Store returns the store the refresher publishes into.
func (r *Refresher) Store() *Store {
	return r.store
}

// Refresh loads the schedule, preferring a fresh cache artifact.
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.run(ctx, false)
}

// ForceRefresh downloads the feed even if the cache is still fresh.
func (r *Refresher) ForceRefresh(ctx context.Context) error {
	return r.run(ctx, true)
}

// Start re-runs Refresh every interval until the context is cancelled. It
// returns immediately when no interval is configured.
func (r *Refresher) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresh manager shutting down")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshInProgress) {
				r.logger.WithField("next_attempt", r.interval.String()).Warn("Scheduled EPG refresh failed")
			}
		}
	}
}

func (r *Refresher) run(ctx context.Context, force bool) error {
	if !r.running.TryLock() {
		return ErrRefreshInProgress
	}
	defer r.running.Unlock()

	r.logger.WithField("force", force).Info("Starting EPG refresh")

	raw, source, err := r.acquire(ctx, force)
	if err != nil {
		return r.fail(err)
	}

	r.setState(StateParsing)
	schedule, err := r.parser.ParseBytes(raw)
	if err != nil {
		return r.fail(err)
	}

	index := epg.NewIndex(schedule, r.location)
	r.store.SetIndex(index, source, schedule.Stats)
	r.notify(StateReady)

	if index.Len() == 0 {
		r.logger.Warn("EPG feed contains no channels")
	}
	r.logger.WithFields(logrus.Fields{
		"source":   string(source),
		"channels": index.Len(),
		"programs": schedule.Stats.Programs,
	}).Info("EPG refresh completed successfully")

	return nil
}

// acquire returns the raw feed text from the cache or the network.
func (r *Refresher) acquire(ctx context.Context, force bool) ([]byte, Source, error) {
	r.setState(StateCacheCheck)

	if !force && r.cache.IsFresh(r.maxAge) {
		r.setState(StateCacheHit)
		raw, err := r.cache.Read()
		if err == nil {
			r.logger.WithField("path", r.cache.Path()).Debug("Using cached EPG data")
			return raw, SourceCache, nil
		}
		r.logger.WithError(err).Warn("Error reading EPG cache, fetching fresh data")
	}

	r.setState(StateCacheMiss)
	r.setState(StateFetching)
	payload, err := r.fetcher.Download(ctx, r.url)
	if err != nil {
		return nil, SourceNone, err
	}

	r.setState(StateDecompressing)
	raw, err := Decompress(payload)
	if err != nil {
		return nil, SourceNone, err
	}

	r.setState(StateCacheWrite)
	if err := r.cache.Write(raw); err != nil {
		r.logger.WithError(err).Error("Error saving EPG cache")
	} else {
		r.logger.WithField("path", r.cache.Path()).Debug("EPG data saved to cache")
	}

	return raw, SourceNetwork, nil
}

func (r *Refresher) fail(err error) error {
	reason := FailureReason(err)
	r.logger.WithError(err).Error("EPG refresh failed")
	r.store.Fail(reason)
	r.notify(StateFailed)
	return err
}

func (r *Refresher) setState(state State) {
	r.store.SetState(state)
	r.notify(state)
}

func (r *Refresher) notify(state State) {
	r.logger.WithField("state", state.String()).Debug("Refresh state changed")
	if r.observer != nil {
		r.observer(state)
	}
}

// FailureReason turns a refresh error into a message fit for display.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrNetwork):
		return "Network error: " + err.Error()
	case errors.Is(err, ErrDecode):
		return "Decode error: " + err.Error()
	case errors.Is(err, epg.ErrMalformedFeed):
		return "Error parsing EPG data: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
