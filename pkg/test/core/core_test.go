package core

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mbhatt/pageweight/pkg/har"
	"github.com/mbhatt/pageweight/pkg/metrics"
	"github.com/mbhatt/pageweight/pkg/sink"
	"github.com/mbhatt/pageweight/pkg/size"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	appJSSignature   = "d3d3f07723bf47b40e1caf2816efb7d0"
	logoPNGSignature = "78761c8021e5276d6528b53665251f0f"
	cssSignature     = "548c5f7112ff4b9002316d889dba8237"
)

func testMeter(t *testing.T, config metrics.Config) *metrics.Meter {
	t.Helper()
	source, err := har.NewFileSource("testdata/trace.har", zap.NewNop())
	require.NoError(t, err)
	resolver, err := size.NewResolver(size.ResolverOpts{Logger: zap.NewNop()})
	require.NoError(t, err)
	meter, err := metrics.NewMeter(metrics.MeterOpts{
		Source:   source,
		Resolver: resolver,
		Config:   config,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return meter
}

func gzipLevel9(t *testing.T, data []byte) int64 {
	t.Helper()
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return int64(buf.Len())
}

func metricValue(t *testing.T, m *sink.Memory, name string) float64 {
	t.Helper()
	for _, metric := range m.Metrics() {
		if metric.Name == name {
			return metric.Value
		}
	}
	require.FailNowf(t, "metric not found", "no metric named %q", name)
	return 0
}

func hasMetric(m *sink.Memory, name string) bool {
	for _, metric := range m.Metrics() {
		if metric.Name == name {
			return true
		}
	}
	return false
}

func TestTraceToReport(t *testing.T) {
	meter := testMeter(t, metrics.Config{PerResource: true, DataSaving: true})
	require.NoError(t, meter.Start())
	require.NoError(t, meter.Stop())

	memory := sink.NewMemory()
	prom := sink.NewPrometheus()
	require.NoError(t, meter.AddResults(metrics.Fanout{memory, prom}))

	gzipped := gzipLevel9(t, []byte("var greeting = 'hello world';\n"))
	contentLength := gzipped + 11
	originalContentLength := int64(2000 + 11)

	t.Run("page totals", func(t *testing.T) {
		require.Equal(t, float64(contentLength),
			metricValue(t, memory, "content_length"))
		require.Equal(t, float64(originalContentLength),
			metricValue(t, memory, "original_content_length"))

		saving := float64(originalContentLength-contentLength) * 100 /
			float64(originalContentLength)
		require.Equal(t, saving, metricValue(t, memory, "data_saving"))
	})
	t.Run("per-resource metrics for the compressed script", func(t *testing.T) {
		require.Equal(t, float64(gzipped),
			metricValue(t, memory, "resource_content_length_"+appJSSignature))
		require.Equal(t, 2000.0,
			metricValue(t, memory,
				"resource_original_content_length_"+appJSSignature))
		rate := float64(2000-gzipped) / 2000
		require.Equal(t, rate*100,
			metricValue(t, memory, "resource_data_saving_"+appJSSignature))
	})
	t.Run("undeclared resources get a size but no saving", func(t *testing.T) {
		require.Equal(t, 11.0,
			metricValue(t, memory, "resource_content_length_"+logoPNGSignature))
		require.False(t, hasMetric(memory,
			"resource_original_content_length_"+logoPNGSignature))
		require.False(t, hasMetric(memory,
			"resource_data_saving_"+logoPNGSignature))
	})
	t.Run("cached resources are skipped", func(t *testing.T) {
		require.False(t, hasMetric(memory,
			"resource_content_length_"+cssSignature))
	})
	t.Run("fanout reaches every sink", func(t *testing.T) {
		res := httptest.NewRecorder()
		prom.Handler().ServeHTTP(res,
			httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Contains(t, res.Body.String(), fmt.Sprintf(
			`pageweight_metric{name="content_length",unit="bytes"} %d`,
			contentLength))
	})
}

func TestTraceToReportTotalsOnly(t *testing.T) {
	meter := testMeter(t, metrics.Config{DataSaving: true})
	require.NoError(t, meter.Start())
	require.NoError(t, meter.Stop())

	memory := sink.NewMemory()
	require.NoError(t, meter.AddResults(memory))

	require.Len(t, memory.Metrics(), 3)
	for _, m := range memory.Metrics() {
		require.NotContains(t, m.Name, "resource_")
	}
}

func TestMeterReuseAcrossRuns(t *testing.T) {
	meter := testMeter(t, metrics.Config{DataSaving: true})

	for i := 0; i < 2; i++ {
		t.Run(fmt.Sprintf("run %d", i+1), func(t *testing.T) {
			require.NoError(t, meter.Start())
			require.NoError(t, meter.Stop())
			memory := sink.NewMemory()
			require.NoError(t, meter.AddResults(memory))
			require.Len(t, memory.Metrics(), 3)
		})
	}
}
