package domain

import "time"

// Event 是 batch 引擎对外发出的离散事件。
//
// 顺序契约（单 worker）：一条 StartEvent，每个候选一条 OutcomeEvent + 一条 ProgressEvent，最后一条 SummaryEvent。
// 引擎本身不关心线程/UI；跨边界转发由上层适配器负责。
type Event interface {
	isEvent()
}

// StartEvent 在扫描完成、处理第一个候选之前发出。
type StartEvent struct {
	Total int
}

// OutcomeEvent 是某个候选处理完成后的结果。
type OutcomeEvent struct {
	Index   int // 1-based，按完成顺序
	Total   int
	Outcome Outcome
	Dur     time.Duration
}

// ProgressEvent 在每个候选处理完成后发出；Percent = Done*100/Total（向零取整）。
type ProgressEvent struct {
	Done    int
	Total   int
	Percent int
}

// SummaryEvent 每次 run 恰好一条，且总是最后一条。
type SummaryEvent struct {
	Summary Summary
}

func (StartEvent) isEvent()    {}
func (OutcomeEvent) isEvent()  {}
func (ProgressEvent) isEvent() {}
func (SummaryEvent) isEvent()  {}

// Percent 计算整数百分比；total<=0 时返回 0。
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	if done > total {
		done = total
	}
	return done * 100 / total
}
