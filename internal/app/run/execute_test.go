package run

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/John-Robertt/heic2jpg/internal/domain"
)

type recordObserver struct {
	starts   []int
	items    []string
	percents []int
	finishes []domain.Summary
}

func (o *recordObserver) OnStart(req Request, total int) { o.starts = append(o.starts, total) }

func (o *recordObserver) OnItemDone(idx, total int, res domain.Outcome, dur time.Duration) {
	o.items = append(o.items, res.Status+":"+res.Src)
}

func (o *recordObserver) OnProgress(done, total, percent int) {
	o.percents = append(o.percents, percent)
}

func (o *recordObserver) OnFinish(sum domain.Summary) { o.finishes = append(o.finishes, sum) }

func TestExecuteWithObserver_ForwardsEventsAndBuildsReport(t *testing.T) {
	src, dst := seedScenario(t)

	obs := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), newBatch(&fakeDecoder{}), Request{SourceDir: src, DestDir: dst}, obs)

	if diff := cmp.Diff([]int{3}, obs.starts); diff != "" {
		t.Fatalf("OnStart 不符合预期 (-want +got):\n%s", diff)
	}
	wantItems := []string{"converted:a.heic", "converted:b.HEIC", "failed:c.heic"}
	if diff := cmp.Diff(wantItems, obs.items); diff != "" {
		t.Fatalf("OnItemDone 顺序不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{33, 66, 100}, obs.percents); diff != "" {
		t.Fatalf("OnProgress 不符合预期 (-want +got):\n%s", diff)
	}
	if len(obs.finishes) != 1 {
		t.Fatalf("OnFinish 应恰好调用一次，实际 %d", len(obs.finishes))
	}

	if rr.FatalCode != "" {
		t.Fatalf("不期望致命错误：%s %s", rr.FatalCode, rr.FatalMsg)
	}
	wantSum := domain.Summary{Total: 3, Converted: 2, Failed: 1}
	if diff := cmp.Diff(wantSum, rr.Summary); diff != "" {
		t.Fatalf("report summary 不符合预期 (-want +got):\n%s", diff)
	}
	if len(rr.Items) != 3 || rr.OK() {
		t.Fatalf("report items/OK 不符合预期：items=%d ok=%v", len(rr.Items), rr.OK())
	}
}

func TestExecute_FatalError_NoObserverCalls(t *testing.T) {
	root := t.TempDir()

	obs := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), newBatch(&fakeDecoder{}), Request{
		SourceDir: filepath.Join(root, "missing"),
		DestDir:   filepath.Join(root, "out"),
	}, obs)

	if rr.FatalCode != domain.ErrCodeDirNotFound || rr.FatalMsg == "" {
		t.Fatalf("期望致命错误写入 report：%+v", rr)
	}
	if len(obs.starts)+len(obs.items)+len(obs.percents)+len(obs.finishes) != 0 {
		t.Fatalf("致命错误时不应调用 observer：%+v", obs)
	}
	if len(rr.Items) != 0 || rr.OK() {
		t.Fatalf("report 不符合预期：%+v", rr)
	}
}

func TestExecute_NilObserver_SameResult(t *testing.T) {
	src, dst := seedScenario(t)
	a := Execute(context.Background(), newBatch(&fakeDecoder{}), Request{SourceDir: src, DestDir: dst})

	src2, dst2 := seedScenario(t)
	b := ExecuteWithObserver(context.Background(), newBatch(&fakeDecoder{}), Request{SourceDir: src2, DestDir: dst2}, nil)

	if diff := cmp.Diff(a.Summary, b.Summary); diff != "" {
		t.Fatalf("nil observer 不应改变结果 (-a +b):\n%s", diff)
	}
}

func TestStream_ClosesEventsThenDeliversResult(t *testing.T) {
	src, dst := seedScenario(t)

	events, done := Stream(context.Background(), newBatch(&fakeDecoder{}), Request{SourceDir: src, DestDir: dst})

	var n int
	var last domain.Event
	for ev := range events {
		n++
		last = ev
	}
	res := <-done
	if res.Err != nil {
		t.Fatalf("不期望错误：%v", res.Err)
	}
	// start + 3*(outcome+progress) + summary
	if n != 8 {
		t.Fatalf("期望 8 条事件，实际 %d", n)
	}
	se, ok := last.(domain.SummaryEvent)
	if !ok || se.Summary != res.Summary {
		t.Fatalf("最后一条事件应是 SummaryEvent 且与 Result 一致：%#v vs %+v", last, res.Summary)
	}
}
