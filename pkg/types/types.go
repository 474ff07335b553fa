// Package types 定義了 flight-server 各模組共用的領域型別
package types

import "strconv"

// ClientID 連線客戶端唯一識別碼，由 idgen.Counter 發放，永不重複使用
type ClientID uint64

func (id ClientID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// WorkerState Worker 狀態
type WorkerState string

// 定義 Worker 狀態常數
const (
	WorkerIdle       WorkerState = "idle"       // 閒置：阻塞等待佇列中的任務
	WorkerRunning    WorkerState = "running"    // 執行中：正在執行已認領的任務
	WorkerTerminated WorkerState = "terminated" // 已終止：goroutine 已退出
)
