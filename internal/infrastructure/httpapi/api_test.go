package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reixn/http-recorder/internal/adapters/archive"
	"github.com/reixn/http-recorder/internal/adapters/staging"
	"github.com/reixn/http-recorder/internal/infrastructure/config"
	obs "github.com/reixn/http-recorder/internal/infrastructure/observability"
	"github.com/reixn/http-recorder/internal/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dest := t.TempDir()
	cfg := config.Config{
		RecordDest:       dest,
		PackSizeBytes:    config.DefaultPackSize,
		ArchiveSizeBytes: config.DefaultArchiveSize,
		ArchiveLayout:    "flat",
	}
	logger := obs.NewLoggerTo(os.Stderr, "error")
	metrics := obs.NewMetrics()
	factories := usecase.SinkFactories{
		NewStaging: func() (usecase.StagingSink, error) {
			return staging.New(staging.Options{
				PackSizeBytes: cfg.PackSizeBytes,
				Logger:        logger,
				Metrics:       metrics,
			})
		},
		NewArchive: func() (usecase.EntrySink, error) {
			return archive.New(archive.Options{
				Dest:             cfg.RecordDest,
				ArchiveSizeBytes: cfg.ArchiveSizeBytes,
				Layout:           archive.Layout(cfg.ArchiveLayout),
				DualFormat:       cfg.DualFormat,
				Logger:           logger,
				Metrics:          metrics,
			})
		},
	}
	rec := usecase.NewRecorder(factories, logger, metrics, usecase.Options{})
	srv := httptest.NewServer(NewRouter(&Deps{Cfg: cfg, Logger: logger, Metrics: metrics, Rec: rec}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = rec.Finish() })
	return srv, dest
}

const sampleFlow = `{
	"client_addr": "10.0.0.1:42312",
	"server_addr": "93.184.216.34:443",
	"request": {
		"timestamp_start": 1700000000.125,
		"http_version": "HTTP/1.1",
		"method": "GET",
		"url": "https://example.com/index.html",
		"headers": [["Host", "example.com"], ["Accept", "*/*"]]
	},
	"response": {
		"timestamp_end": 1700000000.75,
		"http_version": "HTTP/1.1",
		"status_code": 200,
		"headers": [["Content-Type", "text/html"]],
		"content": "PGh0bWw+PC9odG1sPg=="
	}
}`

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRecordFinishRoundTrip(t *testing.T) {
	srv, dest := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/api/record", sampleFlow)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, out["index"])

	resp, out = postJSON(t, srv.URL+"/api/record", sampleFlow)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, out["index"])

	statusResp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer statusResp.Body.Close()
	var st usecase.Stats
	require.NoError(t, json.NewDecoder(statusResp.Body).Decode(&st))
	assert.True(t, st.Active)
	assert.EqualValues(t, 2, st.Entries)

	resp, out = postJSON(t, srv.URL+"/api/finish", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "finished", out["status"])

	_, err = os.Stat(filepath.Join(dest, "example.com", "0.tar.xz"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dest, "example.com", "info.json"))
	require.NoError(t, err)
}

func TestRecordRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/api/record", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := out["error"].(map[string]any)
	assert.Equal(t, "BAD_JSON", body["code"])

	badAddr := strings.Replace(sampleFlow, "10.0.0.1:42312", "nonsense", 1)
	resp, out = postJSON(t, srv.URL+"/api/record", badAddr)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = out["error"].(map[string]any)
	assert.Equal(t, "PARSE_ERROR", body["code"])
	assert.Equal(t, "client address", body["details"].(map[string]any)["field"])

	getResp, err := http.Get(srv.URL + "/api/record")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
