package run

import (
	"context"
	"time"

	"github.com/John-Robertt/heic2jpg/internal/domain"
)

// Execute 在后台 worker 上执行一次 run，并返回对外稳定的 RunReport。
// 致命错误会体现在 RunReport.FatalCode/FatalMsg 上（单条失败不影响其他）。
func Execute(ctx context.Context, b Batch, req Request) domain.RunReport {
	return ExecuteWithObserver(ctx, b, req, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度（由上层决定是否启用）。
// Observer 回调发生在调用方 goroutine 上。
func ExecuteWithObserver(ctx context.Context, b Batch, req Request, obs Observer) domain.RunReport {
	rr := domain.RunReport{
		Source:          req.SourceDir,
		Dest:            req.DestDir,
		DeleteOriginals: req.DeleteOriginals,
		StartedAt:       time.Now().UTC(),
		Items:           make([]domain.Outcome, 0, 64),
	}

	forward := Dispatch(req, obs)
	events, done := Stream(ctx, b, req)
	for ev := range events {
		switch e := ev.(type) {
		case domain.OutcomeEvent:
			rr.Add(e.Outcome)
		case domain.SummaryEvent:
			rr.Summary = e.Summary
		}
		forward(ev)
	}

	res := <-done
	if res.Err != nil {
		rr.FatalCode = Code(res.Err)
		if rr.FatalCode == "" {
			rr.FatalCode = domain.ErrCodeDirNotFound
		}
		rr.FatalMsg = res.Err.Error()
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}
