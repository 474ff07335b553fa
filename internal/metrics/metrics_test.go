package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	assert.NotNil(t, collector, "NewCollector should return a non-nil collector")
	assert.NotNil(t, collector.connsAccepted, "connsAccepted counter should be initialized")
	assert.NotNil(t, collector.acceptErrors, "acceptErrors counter should be initialized")
	assert.NotNil(t, collector.connsActive, "connsActive gauge should be initialized")
	assert.NotNil(t, collector.framesDecoded, "framesDecoded vec should be initialized")
	assert.NotNil(t, collector.frameErrors, "frameErrors vec should be initialized")
	assert.NotNil(t, collector.jobDuration, "jobDuration histogram should be initialized")
}

func TestNewCollectorDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}

func TestConnectionMetrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.ConnectionAccepted()
	c.ConnectionAccepted()
	c.ConnectionClosed()
	c.AcceptFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.connsAccepted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acceptErrors))
}

func TestFrameMetrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.FrameDecoded("ping")
	c.FrameDecoded("ping")
	c.FrameDecoded("chat")
	c.FrameRejected("message_too_short")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesDecoded.WithLabelValues("ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesDecoded.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.frameErrors.WithLabelValues("message_too_short")))
}

func TestPoolMetrics(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	testCases := []struct {
		name    string
		record  func()
		metric  prometheus.Collector
		expects float64
	}{
		{"queued", c.JobQueued, c.jobsQueued, 1},
		{"rejected", c.JobRejected, c.jobsRejected, 1},
		{"started", c.JobStarted, c.jobsRunning, 1},
		{"panicked", c.JobPanicked, c.jobPanics, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.record()
			assert.Equal(t, tc.expects, testutil.ToFloat64(tc.metric))
		})
	}

	c.JobFinished(10 * time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.jobsRunning))
	assert.Equal(t, 1, testutil.CollectAndCount(c.jobDuration))
}

func TestWatchPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.WatchPool(fakePool{size: 4, pending: 7})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		if len(mf.GetMetric()) == 1 && mf.GetMetric()[0].GetGauge() != nil {
			values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 4.0, values["flight_pool_workers"])
	assert.Equal(t, 7.0, values["flight_pool_jobs_pending"])
}

func TestNewServerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ConnectionAccepted()

	srv := NewServer(":0", reg)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "flight_connections_accepted_total 1")
}

type fakePool struct{ size, pending int }

func (f fakePool) Size() int    { return f.size }
func (f fakePool) Pending() int { return f.pending }
