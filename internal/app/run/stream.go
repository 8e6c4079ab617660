package run

import (
	"context"

	"github.com/John-Robertt/heic2jpg/internal/domain"
)

// Result 是后台 run 的最终结果（致命错误时 Err 非空）。
type Result struct {
	Summary domain.Summary
	Err     error
}

// Stream 在后台 goroutine 中运行 batch，并把事件逐条转发到 events。
//
// 约束：
// - events 在 run 结束后关闭，随后 done 恰好发出一条 Result
// - 调用方必须把 events 读到关闭，否则后台 goroutine 会阻塞
func Stream(ctx context.Context, b Batch, req Request) (events <-chan domain.Event, done <-chan Result) {
	evCh := make(chan domain.Event, 16)
	doneCh := make(chan Result, 1)

	go func() {
		sum, err := b.Run(ctx, req, func(ev domain.Event) { evCh <- ev })
		close(evCh)
		doneCh <- Result{Summary: sum, Err: err}
		close(doneCh)
	}()

	return evCh, doneCh
}
