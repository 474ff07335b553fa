package worker

import (
	"log/slog"
	"time"
)

// Job 代表要執行的工作單元，由一個 Worker 恰好執行一次
type Job func()

// OverflowPolicy 決定有界佇列滿時 Execute 的行為
type OverflowPolicy int

const (
	OverflowBlock  OverflowPolicy = iota // 阻塞提交者直到有空位
	OverflowReject                       // 立即回傳 ErrQueueFull
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowBlock:
		return "block"
	case OverflowReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Observer 接收 Pool 的執行事件，metrics.Collector 實作此介面
type Observer interface {
	JobQueued()
	JobRejected()
	JobStarted()
	JobFinished(d time.Duration)
	JobPanicked()
}

type nopObserver struct{}

func (nopObserver) JobQueued()                {}
func (nopObserver) JobRejected()              {}
func (nopObserver) JobStarted()               {}
func (nopObserver) JobFinished(time.Duration) {}
func (nopObserver) JobPanicked()              {}

// Option 設定 Pool 的可選參數
type Option func(*options)

type options struct {
	queueCapacity int
	overflow      OverflowPolicy
	logger        *slog.Logger
	observer      Observer
}

// WithQueueCapacity 限制佇列長度，0 表示無上限
func WithQueueCapacity(n int) Option {
	return func(o *options) { o.queueCapacity = n }
}

// WithOverflowPolicy 設定佇列滿時的策略，僅在容量 > 0 時生效
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(o *options) { o.overflow = p }
}

// WithLogger 設定 logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver 設定事件觀察者
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}
