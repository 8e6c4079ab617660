package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/heic2jpg/internal/domain"
	"github.com/John-Robertt/heic2jpg/internal/infra/fsx"
	"github.com/John-Robertt/heic2jpg/internal/infra/imgx"
	"github.com/John-Robertt/heic2jpg/internal/logging"
	"github.com/John-Robertt/heic2jpg/internal/scan"
)

// 通过可替换的函数指针，让测试能稳定模拟删除失败。
var removeFunc = os.Remove

// Request 是一次 run 的输入（由调用方提供；引擎不内置默认目录）。
type Request struct {
	SourceDir       string
	DestDir         string
	DeleteOriginals bool
}

// Batch 是转换引擎：枚举候选、判定跳过、解码→编码、逐条发出事件。
//
// 约束：
// - 单条失败只影响该条（Failed），绝不中止后续候选
// - 目标已存在即跳过，永不覆盖
// - 删除原图只发生在目标成功写入之后
// - Workers<=1 时严格串行、按扫描顺序发事件；>1 时按完成顺序发事件
type Batch struct {
	Decoder imgx.Decoder
	Encoder imgx.Encoder
	Logger  *slog.Logger
	Workers int

	// SourceExt/TargetExt 为空时使用 .heic/.jpg。
	SourceExt string
	TargetExt string
}

// Error 是 run 级别的致命错误（带 error_code），发生时不会发出任何事件。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Run 执行一次 batch。
//
// 事件顺序：StartEvent，然后每个候选一条 OutcomeEvent + 一条 ProgressEvent，最后一条 SummaryEvent。
// 返回 error 只可能是致命的 *Error（目录不存在/无法创建/无法读取），此时 emit 从未被调用。
// ctx 取消只在候选之间检查；已开始的候选会完整处理完，summary 仍会发出（Canceled=true）。
func (b Batch) Run(ctx context.Context, req Request, emit func(domain.Event)) (domain.Summary, error) {
	if emit == nil {
		emit = func(domain.Event) {}
	}
	log := b.logger()

	src, err := filepath.Abs(req.SourceDir)
	if err != nil {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: req.SourceDir, Err: err}
	}
	dst, err := filepath.Abs(req.DestDir)
	if err != nil {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: req.DestDir, Err: err}
	}

	fi, err := os.Stat(src)
	if err != nil {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: src, Err: err}
	}
	if !fi.IsDir() {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: src, Err: errors.New("不是目录")}
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: dst, Err: err}
	}

	cands, err := scan.ScanCandidates(src, dst, b.sourceExt(), b.targetExt())
	if err != nil {
		return domain.Summary{}, &Error{Code: domain.ErrCodeDirNotFound, Path: src, Err: err}
	}

	total := len(cands)
	log.Debug("开始转换", "source", src, "dest", dst, "candidates", total, "delete_originals", req.DeleteOriginals, "workers", b.workers())
	emit(domain.StartEvent{Total: total})

	sum := domain.Summary{Total: total}
	var mu sync.Mutex
	report := func(o domain.Outcome, dur time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		sum.Count(o)
		done := sum.Done()
		emit(domain.OutcomeEvent{Index: done, Total: total, Outcome: o, Dur: dur})
		emit(domain.ProgressEvent{Done: done, Total: total, Percent: domain.Percent(done, total)})
	}
	one := func(c domain.Candidate) {
		started := time.Now()
		// 已开始的候选不受取消影响：保证不会出现“处理到一半”的状态。
		o := b.convertOne(context.WithoutCancel(ctx), c, req.DeleteOriginals, log)
		report(o, time.Since(started))
	}

	canceled := false
	if b.workers() <= 1 {
		for _, c := range cands {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			one(c)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(b.workers())
		for _, c := range cands {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				one(c)
				return nil
			})
		}
		_ = g.Wait()
	}

	mu.Lock()
	if canceled || sum.Done() < total {
		sum.Canceled = true
	}
	final := sum
	mu.Unlock()

	log.Debug("转换结束", "total", final.Total, "converted", final.Converted, "skipped", final.Skipped, "failed", final.Failed, "canceled", final.Canceled)
	emit(domain.SummaryEvent{Summary: final})
	return final, nil
}

// encodeError 用于区分“编码失败”与“落盘失败”（二者都在 fsx 写入回调里发生）。
type encodeError struct{ err error }

func (e *encodeError) Error() string { return e.err.Error() }
func (e *encodeError) Unwrap() error { return e.err }

func (b Batch) convertOne(ctx context.Context, c domain.Candidate, deleteOriginal bool, log *slog.Logger) domain.Outcome {
	exists, err := fsx.Exists(c.DstAbs)
	if err != nil {
		return domain.Failed(c.Name, c.TargetName, domain.ErrCodeIOFailed, fmt.Sprintf("检查目标文件失败：%v", err))
	}
	if exists {
		log.Debug("目标已存在，跳过", "src", c.Name, "dst", c.TargetName)
		return domain.Skipped(c.Name, c.TargetName)
	}

	img, err := b.Decoder.Decode(ctx, c.SrcAbs)
	if err != nil {
		return domain.Failed(c.Name, c.TargetName, domain.ErrCodeCodecFailed, fmt.Sprintf("解码失败：%v", err))
	}
	log.Debug("解码完成", "src", c.Name, "mode", img.Mode, "width", img.Width, "height", img.Height)

	err = fsx.WriteFileAtomicNoOverwrite(filepath.Dir(c.DstAbs), c.TargetName, func(w io.Writer) error {
		if err := b.Encoder.Encode(w, img); err != nil {
			return &encodeError{err: err}
		}
		return nil
	})
	if err != nil {
		var ee *encodeError
		switch {
		case errors.Is(err, os.ErrExist):
			// 解码期间目标被别人写出：仍按“已存在即跳过”处理。
			return domain.Skipped(c.Name, c.TargetName)
		case errors.As(err, &ee):
			return domain.Failed(c.Name, c.TargetName, domain.ErrCodeCodecFailed, fmt.Sprintf("编码失败：%v", ee.err))
		default:
			return domain.Failed(c.Name, c.TargetName, domain.ErrCodeIOFailed, fmt.Sprintf("写入目标文件失败：%v", err))
		}
	}

	out := domain.Converted(c.Name, c.TargetName)
	if deleteOriginal {
		if err := removeFunc(c.SrcAbs); err != nil {
			// 删除失败不改变 converted 状态，只记录。
			log.Warn("删除原图失败", "src", c.SrcAbs, "err", err)
			out.DeleteError = fmt.Sprintf("%s：删除原图失败：%v", domain.ErrCodeDeleteFailed, err)
		} else {
			out.Deleted = true
		}
	}
	return out
}

func (b Batch) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logging.New("batch")
}

func (b Batch) workers() int {
	if b.Workers < 1 {
		return 1
	}
	return b.Workers
}

func (b Batch) sourceExt() string {
	if b.SourceExt == "" {
		return scan.DefaultSourceExt
	}
	return b.SourceExt
}

func (b Batch) targetExt() string {
	if b.TargetExt == "" {
		return scan.DefaultTargetExt
	}
	return b.TargetExt
}
