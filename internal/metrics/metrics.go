// ============================================================================
// Flight Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集連線、解碼與 Worker Pool 指標，透過 /metrics 暴露給 Prometheus
//
// 指標分類:
//
//   1. 連線 (Counter / Gauge)：
//      - flight_connections_accepted_total
//      - flight_accept_errors_total
//      - flight_connections_active
//
//   2. 封包 (CounterVec)：
//      - flight_frames_decoded_total{message}
//      - flight_frame_errors_total{reason}
//
//   3. Worker Pool：
//      - flight_pool_jobs_queued_total / flight_pool_jobs_rejected_total
//      - flight_pool_jobs_running
//      - flight_pool_job_duration_seconds
//      - flight_pool_job_panics_total
//      - flight_pool_jobs_pending / flight_pool_workers（GaugeFunc，需 WatchPool）
//
// Prometheus 查詢示例:
//
//   # Worker 利用率
//   flight_pool_jobs_running / flight_pool_workers
//
//   # 每分鐘錯誤封包
//   sum by (reason) (rate(flight_frame_errors_total[1m]))
//
// ============================================================================

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flight"

// Collector Prometheus 指標收集器
// 同時滿足 worker.Observer 與 server.Observer
type Collector struct {
	reg prometheus.Registerer

	// 連線相關指標
	connsAccepted prometheus.Counter
	acceptErrors  prometheus.Counter
	connsActive   prometheus.Gauge

	// 封包相關指標
	framesDecoded *prometheus.CounterVec
	frameErrors   *prometheus.CounterVec

	// Worker Pool 指標
	jobsQueued   prometheus.Counter
	jobsRejected prometheus.Counter
	jobsRunning  prometheus.Gauge
	jobDuration  prometheus.Histogram
	jobPanics    prometheus.Counter
}

// PoolStats 為 WatchPool 所需的唯讀介面
type PoolStats interface {
	Size() int
	Pending() int
}

// NewCollector 創建指標收集器並註冊到 reg
// reg 為 nil 時使用 prometheus.DefaultRegisterer
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		reg: reg,
		connsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted client connections",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Total number of failed accept calls",
		}),
		connsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Current number of open client connections",
		}),
		framesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Total number of frames decoded, by message type",
		}, []string{"message"}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Total number of malformed frames, by reason",
		}, []string{"reason"}),
		jobsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_queued_total",
			Help:      "Total number of jobs accepted into the worker queue",
		}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_rejected_total",
			Help:      "Total number of jobs rejected by a full queue",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_running",
			Help:      "Current number of jobs executing on workers",
		}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_duration_seconds",
			Help:      "Job execution time in seconds (connection lifetime)",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		jobPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "job_panics_total",
			Help:      "Total number of jobs that panicked and were recovered",
		}),
	}

	// 註冊所有指標
	reg.MustRegister(
		c.connsAccepted,
		c.acceptErrors,
		c.connsActive,
		c.framesDecoded,
		c.frameErrors,
		c.jobsQueued,
		c.jobsRejected,
		c.jobsRunning,
		c.jobDuration,
		c.jobPanics,
	)

	return c
}

// WatchPool 註冊讀取 Pool 即時狀態的 GaugeFunc
func (c *Collector) WatchPool(p PoolStats) {
	c.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "jobs_pending",
			Help:      "Current number of jobs waiting in the queue",
		}, func() float64 { return float64(p.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "workers",
			Help:      "Number of workers in the pool",
		}, func() float64 { return float64(p.Size()) }),
	)
}

// ============================================================================
// server.Observer
// ============================================================================

func (c *Collector) ConnectionAccepted() {
	c.connsAccepted.Inc()
	c.connsActive.Inc()
}

func (c *Collector) ConnectionClosed() {
	c.connsActive.Dec()
}

func (c *Collector) AcceptFailed() {
	c.acceptErrors.Inc()
}

func (c *Collector) FrameDecoded(message string) {
	c.framesDecoded.WithLabelValues(message).Inc()
}

func (c *Collector) FrameRejected(reason string) {
	c.frameErrors.WithLabelValues(reason).Inc()
}

// ============================================================================
// worker.Observer
// ============================================================================

func (c *Collector) JobQueued() {
	c.jobsQueued.Inc()
}

func (c *Collector) JobRejected() {
	c.jobsRejected.Inc()
}

func (c *Collector) JobStarted() {
	c.jobsRunning.Inc()
}

// JobFinished 記錄任務完成（包含 panic 後恢復的任務）
func (c *Collector) JobFinished(d time.Duration) {
	c.jobsRunning.Dec()
	c.jobDuration.Observe(d.Seconds())
}

func (c *Collector) JobPanicked() {
	c.jobPanics.Inc()
}

// NewServer 建立暴露 /metrics 的 HTTP 伺服器，呼叫端負責 ListenAndServe 與 Shutdown
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
