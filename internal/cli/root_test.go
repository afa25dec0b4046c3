package cmd_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cmd "github.com/rohmanhakim/fetchkit/internal/cli"
	"github.com/rohmanhakim/fetchkit/internal/config"
	"github.com/rohmanhakim/fetchkit/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolveConfig(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	require.NoError(t, root.ParseFlags(args))
	return cmd.InitConfigWithError(root)
}

// TestInitConfigNoFlags tests that the resolved config equals the defaults when no flag is set
func TestInitConfigNoFlags(t *testing.T) {
	cfg, err := resolveConfig(t)
	require.NoError(t, err)

	defaultCfg, err := config.WithDefault().Build()
	require.NoError(t, err)
	assert.Equal(t, defaultCfg, cfg)
}

func TestInitConfigFlagsOverride(t *testing.T) {
	cfg, err := resolveConfig(t,
		"--concurrency", "7",
		"--cache-strategy", "none",
		"--redis-db", "2",
		"--rate-limit-strategy", "token_bucket",
		"--burst-limit", "9",
		"--timeout", "12s",
		"--remote-api-url", "https://scrape.example.com",
		"--extract-tables=false",
		"--summarize",
		"--summary-model", "gpt-4o",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Concurrency())
	assert.Equal(t, config.CacheNone, cfg.CacheStrategy())
	assert.Equal(t, 2, cfg.RedisDB())
	assert.Equal(t, "localhost:6379", cfg.RedisAddress())
	assert.Equal(t, limiter.StrategyTokenBucket, cfg.RateLimitStrategy())
	assert.Equal(t, 9, cfg.BurstLimit())
	assert.Equal(t, 12*time.Second, cfg.Timeout())
	assert.Equal(t, "https://scrape.example.com", cfg.RemoteAPIURL())
	assert.Empty(t, cfg.RemoteAPIKey())
	assert.False(t, cfg.ExtractTables())
	assert.True(t, cfg.ExtractCodeBlocks())
	assert.True(t, cfg.Summarize())
	assert.Equal(t, "gpt-4o", cfg.SummaryModel())
	assert.True(t, cfg.DryRun())
}

func TestInitConfigFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fetchkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte("concurrency: 4\nuserAgent: file-agent\ncacheStrategy: none\n"), 0o644))

	cfg, err := resolveConfig(t, "--config-file", path, "--user-agent", "flag-agent")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Concurrency())
	assert.Equal(t, "flag-agent", cfg.UserAgent())
	assert.Equal(t, config.CacheNone, cfg.CacheStrategy())
}

func TestInitConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown cache strategy", []string{"--cache-strategy", "bogus"}},
		{"unknown hash algo", []string{"--hash-algo", "md5"}},
		{"zero concurrency", []string{"--concurrency", "0"}},
		{"negative rate", []string{"--requests-per-second", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveConfig(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	_, err := resolveConfig(t, "--config-file", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error initializing config from file")
}

func TestNewRootCommandResetsFlags(t *testing.T) {
	_, err := resolveConfig(t, "--concurrency", "9")
	require.NoError(t, err)

	cfg, err := resolveConfig(t)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Concurrency())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--log-level", "error", "--requests-per-second", "1000", "--max-retries", "1"))
	err := root.Execute()
	return out.String(), err
}

const pageHTML = `<html><head><title>Page</title></head><body><main>
<h1>Hello</h1><p>The quick brown fox jumps over the lazy dog near the river bank.</p>
</main></body></html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/sitemap.xml":
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>http://` + r.Host + `/one</loc></url>
<url><loc>http://` + r.Host + `/two</loc></url>
</urlset>`))
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(pageHTML))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchCommandWritesResult(t *testing.T) {
	server := newPageServer(t)
	dir := t.TempDir()

	out, err := execute(t, "fetch", server.URL+"/docs", "--output-dir", dir)
	require.NoError(t, err)

	fields := strings.Split(strings.TrimSpace(out), "\t")
	require.Len(t, fields, 2)
	assert.Equal(t, server.URL+"/docs", fields[0])
	assert.Equal(t, dir, filepath.Dir(fields[1]))
	assert.Equal(t, ".md", filepath.Ext(fields[1]))

	content, err := os.ReadFile(fields[1])
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Hello")
	_, err = os.Stat(strings.TrimSuffix(fields[1], ".md") + ".json")
	assert.NoError(t, err)
}

func TestFetchCommandPrint(t *testing.T) {
	server := newPageServer(t)
	dir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "fetch", server.URL, "--print", "--format", "text", "--output-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "quick brown fox")
	assert.NotContains(t, out, "<p>")
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchCommandDryRun(t *testing.T) {
	server := newPageServer(t)
	dir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "fetch", server.URL, "--dry-run", "--output-dir", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "(dry run)")
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "fetch", "not-a-url")
	assert.ErrorContains(t, err, "absolute http(s) URL required")

	_, err = execute(t, "fetch", "https://example.com", "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")
}

func TestFetchCommandReportsFailure(t *testing.T) {
	server := newPageServer(t)

	_, err := execute(t, "fetch", server.URL+"/missing", "--output-dir", t.TempDir())
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	server := newPageServer(t)
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(input, []byte(strings.Join([]string{
		"# docs",
		server.URL + "/a low",
		"",
		server.URL + "/missing",
		server.URL + "/b HIGH",
	}, "\n")), 0o644))

	out, err := execute(t, "batch", "--input", input, "--output-dir", dir, "--concurrency", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], server.URL+"/b\t"))
	assert.True(t, strings.HasPrefix(lines[1], server.URL+"/a\t"))
	assert.Contains(t, lines[2], "2 succeeded, 1 failed")
}

func TestBatchCommandInputErrors(t *testing.T) {
	_, err := execute(t, "batch")
	assert.ErrorContains(t, err, "no URLs given")

	input := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(input, []byte("https://example.com urgent\n"), 0o644))
	_, err = execute(t, "batch", "--input", input)
	assert.ErrorContains(t, err, "input line 1")

	_, err = execute(t, "batch", "https://example.com", "--priority", "soon")
	assert.ErrorContains(t, err, "unknown priority")
}

func TestMapCommand(t *testing.T) {
	server := newPageServer(t)

	out, err := execute(t, "map", server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/one\n"+server.URL+"/two\n", out)
}

func TestCacheCommands(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.db")

	out, err := execute(t, "cache", "stats", "--cache-strategy", "disk", "--cache-path", cachePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy: disk")
	assert.Contains(t, out, "Persistent Entries: 0")

	out, err = execute(t, "cache", "clear", "--tier", "persistent", "--cache-strategy", "disk", "--cache-path", cachePath)
	require.NoError(t, err)
	assert.Equal(t, "Cleared persistent cache\n", out)

	out, err = execute(t, "cache", "clear", "--expired", "--cache-strategy", "disk", "--cache-path", cachePath)
	require.NoError(t, err)
	assert.Equal(t, "Purged 0 expired entries\n", out)

	_, err = execute(t, "cache", "clear", "--tier", "everything")
	assert.ErrorContains(t, err, "unknown tier")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "fetchkit "), out)
}
