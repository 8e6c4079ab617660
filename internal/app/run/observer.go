package run

import (
	"time"

	"github.com/John-Robertt/heic2jpg/internal/domain"
)

// Observer 用于把“运行进度/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 经由 Execute 调用时，所有回调都在调用方 goroutine 上串行发生。
type Observer interface {
	// OnStart 在扫描完成后调用（total 为候选数）。
	OnStart(req Request, total int)
	// OnItemDone 在某个候选处理完成时调用（用于每条结果的一行输出）。
	OnItemDone(idx, total int, res domain.Outcome, dur time.Duration)
	// OnProgress 在每条结果之后调用；percent 单调不减。
	OnProgress(done, total, percent int)
	// OnFinish 在 run 结束时调用（恰好一次；致命错误时不调用）。
	OnFinish(sum domain.Summary)
}

// Dispatch 把离散事件转发为 Observer 回调。obs 为 nil 时返回 no-op。
func Dispatch(req Request, obs Observer) func(domain.Event) {
	if obs == nil {
		return func(domain.Event) {}
	}
	return func(ev domain.Event) {
		switch e := ev.(type) {
		case domain.StartEvent:
			obs.OnStart(req, e.Total)
		case domain.OutcomeEvent:
			obs.OnItemDone(e.Index, e.Total, e.Outcome, e.Dur)
		case domain.ProgressEvent:
			obs.OnProgress(e.Done, e.Total, e.Percent)
		case domain.SummaryEvent:
			obs.OnFinish(e.Summary)
		}
	}
}
