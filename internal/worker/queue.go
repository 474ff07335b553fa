package worker

// ============================================================================
// 共享任務佇列
// 職責：FIFO 儲存待執行的 Job，並在多個 Worker 間互斥出列
// ============================================================================

import "sync"

// queue 為 mutex + cond 保護的 FIFO 佇列
//
// 無界模式（capacity == 0）下 push 永不阻塞。
//
// 狀態轉換:
//
//	open   -- close() -->  closed（拒絕 push，pop 直到清空為止）
type queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []Job
	head     int // items[head:] 為待處理部分
	capacity int // 0 表示無上限
	closed   bool
}

func newQueue(capacity int) *queue {
	q := &queue{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// push 將 job 加入隊尾
//
// 返回值：
//   - ErrPoolClosed: 佇列已關閉（包含阻塞等待期間被關閉）
//   - ErrQueueFull: 佇列已滿且 block 為 false
func (q *queue) push(job Job, block bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return ErrPoolClosed
		}
		if q.capacity == 0 || q.lenLocked() < q.capacity {
			break
		}
		if !block {
			return ErrQueueFull
		}
		q.notFull.Wait()
	}

	q.items = append(q.items, job)
	q.notEmpty.Signal()
	return nil
}

// pop 取出隊首 job，佇列為空時阻塞
// 佇列已關閉且為空時回傳 ok=false
func (q *queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 {
		if q.closed {
			return nil, false
		}
		q.notEmpty.Wait()
	}

	job := q.items[q.head]
	q.items[q.head] = nil // 讓 GC 回收已取出的 closure
	q.head++

	// 已消耗部分過半時壓縮，避免底層陣列無限增長
	if q.head > len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	if q.capacity > 0 {
		q.notFull.Signal()
	}
	return job, true
}

// close 停止接受新 job，喚醒所有等待者
func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *queue) lenLocked() int {
	return len(q.items) - q.head
}
