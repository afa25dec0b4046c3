package robots_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rohmanhakim/fetchkit/internal/metadata"
	"github.com/rohmanhakim/fetchkit/internal/robots"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	metadata.NoopSink
	causes []metadata.ErrorCause
}

func (s *recordingSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	s.causes = append(s.causes, cause)
}

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		assert.Equal(t, "fetchkit-test", r.UserAgent())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func mustParse(t *testing.T, raw string) url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return *u
}

func TestFetcher_ParsesAndCachesPerHost(t *testing.T) {
	server, hits := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private\nSitemap: https://example.com/custom.xml\n")
	f := robots.NewFetcher(nil, server.Client(), "fetchkit-test")

	rules, err := f.Fetch(context.Background(), mustParse(t, server.URL+"/docs/page"))
	require.Nil(t, err)
	assert.Equal(t, []string{"https://example.com/custom.xml"}, rules.Sitemaps)
	assert.False(t, rules.Allowed("/private", "fetchkit-test"))

	again, err := f.Fetch(context.Background(), mustParse(t, server.URL+"/other"))
	require.Nil(t, err)
	assert.Equal(t, rules, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetcher_MissingRobotsAllowsEverything(t *testing.T) {
	server, _ := robotsServer(t, http.StatusNotFound, "")
	f := robots.NewFetcher(nil, server.Client(), "fetchkit-test")

	rules, err := f.Fetch(context.Background(), mustParse(t, server.URL))

	require.Nil(t, err)
	assert.Empty(t, rules.Sitemaps)
	assert.True(t, rules.Allowed("/private", "fetchkit-test"))
}

func TestFetcher_FailuresAreReportedAndNotCached(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCause robots.RobotsErrorCause
		wantMeta  metadata.ErrorCause
	}{
		{"rate limited", http.StatusTooManyRequests, robots.ErrCauseTooManyRequests, metadata.CauseUpstreamFailure},
		{"server error", http.StatusServiceUnavailable, robots.ErrCauseServerError, metadata.CauseUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, hits := robotsServer(t, tt.status, "")
			sink := &recordingSink{}
			f := robots.NewFetcher(sink, server.Client(), "fetchkit-test")

			_, err := f.Fetch(context.Background(), mustParse(t, server.URL))
			require.NotNil(t, err)
			var robotsErr *robots.RobotsError
			require.ErrorAs(t, err, &robotsErr)
			assert.Equal(t, tt.wantCause, robotsErr.Cause)
			assert.True(t, robotsErr.Retryable)

			_, err = f.Fetch(context.Background(), mustParse(t, server.URL))
			require.NotNil(t, err)
			assert.Equal(t, int32(2), hits.Load())
			assert.Equal(t, []metadata.ErrorCause{tt.wantMeta, tt.wantMeta}, sink.causes)
		})
	}
}

func TestFetcher_Unreachable(t *testing.T) {
	server, _ := robotsServer(t, http.StatusOK, "")
	site := mustParse(t, server.URL)
	server.Close()

	sink := &recordingSink{}
	f := robots.NewFetcher(sink, nil, "fetchkit-test")
	_, err := f.Fetch(context.Background(), site)

	var robotsErr *robots.RobotsError
	require.ErrorAs(t, err, &robotsErr)
	assert.Equal(t, robots.ErrCauseRequestFailure, robotsErr.Cause)
	assert.Equal(t, []metadata.ErrorCause{metadata.CauseNetworkFailure}, sink.causes)
}
