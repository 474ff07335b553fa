// ============================================================================
// Flight Worker Pool - 並發任務執行器
// ============================================================================
//
// Package: internal/worker
// 文件: worker_pool.go
// 功能: 管理固定數量 Worker goroutine 的生命週期與任務分發
//
// 設計模式:
//   1. 建構時啟動 N 個 Worker，之後不再增減
//   2. 所有 Worker 共用一個 FIFO 佇列，出列互斥
//   3. 每個 Job 恰好被一個 Worker 執行一次
//
// 架構組件:
//   ┌─────────────┐
//   │ Dispatcher  │ --Execute()--> queue
//   └─────────────┘
//   ┌─────────────┐
//   │   Pool      │
//   │  ┌────────┐ │
//   │  │Worker 0│←── queue
//   │  │Worker 1│←── queue
//   │  │Worker N│←── queue
//   │  └────────┘ │
//   └─────────────┘
//
// 生命週期:
//   1. NewPool(n) - 建立 Pool 並立即啟動 n 個 Worker
//   2. Execute(job) - 提交任務（無界佇列下永不阻塞）
//   3. Shutdown() - 關閉佇列，等待 Worker 清空佇列並退出
//
// 優雅關閉:
//   Shutdown() 之前已入列的任務全部會被執行，不會遺失也不會重複執行。
//   執行中的任務不會被中斷。
//
// ============================================================================

package worker

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ChuLiYu/flight-server/pkg/types"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	// ErrInvalidPoolSize 表示 Worker 數量小於 1
	ErrInvalidPoolSize = errors.New("worker pool size must be at least 1")
	// ErrPoolClosed 表示當前 Pool 已關閉，無法提交新任務
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrQueueFull 表示有界佇列已滿（僅 OverflowReject 策略）
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrNilJob 表示提交了 nil 任務
	ErrNilJob = errors.New("worker pool job is nil")
)

// ============================================================================
// 資料結構定義
// ============================================================================

// Pool 代表 Worker 池
type Pool struct {
	workers  []*Worker
	queue    *queue
	running  atomic.Int64
	overflow OverflowPolicy
	observer Observer
	logger   *slog.Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewPool 建立並啟動 Worker Pool
//
// 參數：
//   - size: Worker 數量，必須 >= 1
//   - opts: 佇列容量、溢出策略、logger、observer
//
// 返回值：
//   - *Pool: 已啟動的 Pool
//   - error: size < 1 時返回 ErrInvalidPoolSize，此時不啟動任何 goroutine
func NewPool(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}

	o := options{
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueCapacity < 0 {
		o.queueCapacity = 0
	}

	p := &Pool{
		workers:  make([]*Worker, 0, size),
		queue:    newQueue(o.queueCapacity),
		overflow: o.overflow,
		observer: o.observer,
		logger:   o.logger.With("component", "worker_pool"),
	}

	for i := 0; i < size; i++ {
		w := newWorker(i, p.queue, &p.running, p.logger, p.observer)
		p.workers = append(p.workers, w)

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run()
		}()
	}

	p.logger.Debug("worker pool started",
		"workers", size,
		"queue_capacity", o.queueCapacity,
		"overflow", o.overflow)
	return p, nil
}

// Execute 提交任務到 Worker Pool
//
// 無界佇列下立即返回；有界佇列依 OverflowPolicy 阻塞或返回 ErrQueueFull。
//
// 返回值：
//   - ErrPoolClosed: Shutdown 已呼叫
//   - ErrQueueFull: 佇列已滿且策略為 OverflowReject
//   - ErrNilJob: job 為 nil
func (p *Pool) Execute(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	err := p.queue.push(job, p.overflow == OverflowBlock)
	switch {
	case err == nil:
		p.observer.JobQueued()
	case errors.Is(err, ErrQueueFull):
		p.observer.JobRejected()
	}
	return err
}

// Shutdown 優雅地關閉 Worker Pool
//
// 關閉流程：
//  1. 關閉佇列，不再接受新任務（阻塞中的 Execute 返回 ErrPoolClosed）
//  2. Worker 清空佇列中剩餘的任務
//  3. 等待所有 Worker 退出
//
// 可重複呼叫，之後的呼叫同樣等待全部 Worker 退出。
func (p *Pool) Shutdown() {
	p.Close()
	p.wg.Wait()
}

// Close 關閉佇列但不等待 Worker 退出
//
// 阻塞中的 Execute 立即返回 ErrPoolClosed，已入列的任務仍會被執行。
// 可重複呼叫，也可與 Shutdown 並用。
func (p *Pool) Close() {
	p.shutdownOnce.Do(func() {
		p.logger.Debug("worker pool closing", "pending", p.queue.pending())
		p.queue.close()
	})
}

// Size 返回 Worker 數量（建構後固定）
func (p *Pool) Size() int {
	return len(p.workers)
}

// Pending 返回佇列中等待的任務數
func (p *Pool) Pending() int {
	return p.queue.pending()
}

// Running 返回正在執行任務的 Worker 數
func (p *Pool) Running() int {
	return int(p.running.Load())
}

// States 返回每個 Worker 目前的狀態，索引即 Worker ID
func (p *Pool) States() []types.WorkerState {
	states := make([]types.WorkerState, len(p.workers))
	for i, w := range p.workers {
		states[i] = w.State()
	}
	return states
}
