package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/heic2jpg/internal/app/run"
	"github.com/John-Robertt/heic2jpg/internal/config"
	"github.com/John-Robertt/heic2jpg/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是一个“简洁版”的交互终端进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：单张大图解码较慢时也会定期输出一行，降低等待焦虑
type progressUI struct {
	w   io.Writer
	eff config.EffectiveConfig

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total   int
	done    int
	percent int
	ok      int
	fail    int
	skip    int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, eff config.EffectiveConfig) *progressUI {
	return &progressUI{
		w:                  w,
		eff:                eff,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(req run.Request, total int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.total = total

	fmt.Fprintf(p.w, "[%s] heic2jpg convert\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  source: %s\n", req.SourceDir)
	fmt.Fprintf(p.w, "  dest: %s\n", req.DestDir)
	fmt.Fprintf(p.w, "  delete_originals: %s\n", onOff(req.DeleteOriginals))
	fmt.Fprintf(p.w, "  decoder: %s\n", p.eff.Decoder)
	fmt.Fprintf(p.w, "  quality: %d\n", p.eff.Quality)
	fmt.Fprintf(p.w, "  workers: %d\n", p.eff.Workers)
	if p.eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", p.eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "扫描: candidates=%d\n\n", total)

	p.lastPrinted = time.Now()
	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnItemDone(idx, total int, res domain.Outcome, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = idx
	p.total = total

	switch res.Status {
	case domain.StatusConverted:
		p.ok++
		note := ""
		if res.Deleted {
			note = " (已删除原图)"
		}
		if res.DeleteError != "" {
			note = " WARN " + truncate(res.DeleteError, 120)
		}
		fmt.Fprintf(p.w, "[%d/%d] %s OK -> %s%s (%s)\n", idx, total, res.Src, res.Dst, note, formatShortDuration(dur))
	case domain.StatusSkipped:
		p.skip++
		fmt.Fprintf(p.w, "[%d/%d] %s SKIP (%s 已存在)\n", idx, total, res.Src, res.Dst)
	case domain.StatusFailed:
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] %s FAIL %s: %s (%s)\n", idx, total, res.Src, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s\n", idx, total, res.Src, strings.ToUpper(res.Status))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnProgress(done, total, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// 每条结果行已经带 [i/n]；这里只记录百分比，供 keepalive 行使用。
	p.done = done
	p.total = total
	p.percent = percent
}

func (p *progressUI) OnFinish(sum domain.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 结束：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
	if sum.Canceled {
		fmt.Fprintf(p.w, "\n已取消：done=%d/%d\n", sum.Done(), sum.Total)
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stopCh := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) printProgressLocked() {
	fmt.Fprintf(p.w, "进度: %d%% done=%d/%d ok=%d fail=%d skip=%d elapsed=%s\n",
		p.percent, p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// truncate 按 rune 截断（错误消息多为中文，按字节截会切坏字符）。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
