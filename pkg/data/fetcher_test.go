package data

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="c1"><display-name>Test Channel</display-name></channel>
  <programme channel="c1" start="20250101180000 +0000"><title>Show</title></programme>
</tv>`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func gzipBytes(t *testing.T, raw string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestFetchSendsHeadersAndDecompresses(t *testing.T) {
	payload := gzipBytes(t, sampleFeed)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, Accept, r.Header.Get("Accept"))
		assert.Equal(t, AcceptEncoding, r.Header.Get("Accept-Encoding"))
		assert.Equal(t, AcceptLanguage, r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), quietLogger())
	raw, err := f.Fetch(context.Background(), ts.URL+"/epg.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, sampleFeed, string(raw))
}

func TestDownloadNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), quietLogger())
	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	f := NewFetcher(50*time.Millisecond, quietLogger())
	_, err := f.Download(context.Background(), ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDownloadUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	f := NewFetcher(time.Second, quietLogger())
	_, err := f.Download(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestFetchCorruptPayloadIsDecodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), quietLogger())
	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrNetwork)
}

func TestDecompress(t *testing.T) {
	valid := gzipBytes(t, sampleFeed)

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	_, err = xw.Write([]byte(sampleFeed))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	tests := []struct {
		name    string
		payload []byte
		want    string
		wantErr bool
	}{
		{name: "gzip", payload: valid, want: sampleFeed},
		{name: "xz", payload: xzBuf.Bytes(), want: sampleFeed},
		{name: "truncated gzip", payload: valid[:len(valid)/2], wantErr: true},
		{name: "gzip magic only", payload: []byte{0x1f, 0x8b}, wantErr: true},
		{name: "bad bzip2", payload: []byte("BZh9 not really"), wantErr: true},
		{name: "plain xml", payload: []byte(sampleFeed), wantErr: true},
		{name: "empty", payload: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Decompress(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}
