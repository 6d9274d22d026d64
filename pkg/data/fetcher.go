// Package data provides feed acquisition, the on-disk feed cache and the
// refresh cycle that publishes parsed schedules.
package data

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Request headers sent to the feed server.
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
	Accept         = "*/*"
	AcceptEncoding = "gzip, deflate"
	AcceptLanguage = "en-US,en;q=0.5"
)

// DefaultFetchTimeout bounds a whole feed download.
const DefaultFetchTimeout = 30 * time.Second

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	bzip2Magic = []byte("BZh")
)

// Fetcher downloads the compressed feed and decompresses it.
type Fetcher struct {
	client *http.Client
	logger logrus.FieldLogger
}

// NewFetcher creates a fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration, logger logrus.FieldLogger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return NewFetcherWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewFetcherWithClient creates a fetcher using the given HTTP client.
func NewFetcherWithClient(client *http.Client, logger logrus.FieldLogger) *Fetcher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// Fetch downloads url and returns the decompressed feed text.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	payload, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	return Decompress(payload)
}

// Download performs the GET request and returns the still-compressed body.
// Every failure wraps ErrNetwork.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	f.logger.WithField("url", url).Info("Fetching EPG data")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", Accept)
	req.Header.Set("Accept-Encoding", AcceptEncoding)
	req.Header.Set("Accept-Language", AcceptLanguage)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, networkError("request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %w: %d", ErrNetwork, ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError("failed to read EPG body", err)
	}

	f.logger.WithFields(logrus.Fields{
		"bytes":    len(body),
		"duration": time.Since(start).String(),
	}).Info("Downloaded EPG data")

	return body, nil
}

// Decompress detects the compression format from the payload's magic bytes
// and returns the decompressed text. Every failure wraps ErrDecode.
func Decompress(payload []byte) ([]byte, error) {
	var reader io.Reader

	switch {
	case bytes.HasPrefix(payload, gzipMagic):
		gz, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrDecode, err)
		}
		defer func() {
			_ = gz.Close()
		}()
		reader = gz

	case bytes.HasPrefix(payload, xzMagic):
		xzr, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%w: xz: %w", ErrDecode, err)
		}
		reader = xzr

	case bytes.HasPrefix(payload, bzip2Magic):
		reader = bzip2.NewReader(bytes.NewReader(payload))

	default:
		return nil, fmt.Errorf("%w: payload is not gzip, xz or bzip2 compressed", ErrDecode)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return raw, nil
}

func networkError(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %s: %w", ErrNetwork, ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
