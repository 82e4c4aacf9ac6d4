package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("start load", "run_date", "2025-06-01")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "start load", line["msg"])
	assert.Equal(t, "2025-06-01", line["run_date"])
	assert.Equal(t, "quake-data-etl", line["service"])
}

func TestNewLogger_TextDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "DEBUG", "text")

	logger.Debug("statement", "name", "load httpfs")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `name="load httpfs"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	m := NewMetrics()
	m.RunsTotal.WithLabelValues("success").Inc()
	m.RowsWritten.Add(42)

	var runs dto.Metric
	require.NoError(t, m.RunsTotal.WithLabelValues("success").Write(&runs))
	assert.InDelta(t, 1, runs.GetCounter().GetValue(), 0)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "quake_etl_runs_total")
	assert.Contains(t, names, "quake_etl_rows_written_total")
}

func TestMetrics_Push(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.RunsTotal.WithLabelValues("success").Inc()

	require.NoError(t, m.Push(context.Background(), srv.URL, "2025-06-01"))
	assert.Equal(t, "/metrics/job/quake_etl/run_date/2025-06-01", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestMetrics_PushWithoutRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	require.Error(t, m.Push(context.Background(), "http://unused", ""))
}
