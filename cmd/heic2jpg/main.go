package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/heic2jpg/internal/app/run"
	"github.com/John-Robertt/heic2jpg/internal/config"
	"github.com/John-Robertt/heic2jpg/internal/domain"
	"github.com/John-Robertt/heic2jpg/internal/infra/fsx"
	"github.com/John-Robertt/heic2jpg/internal/infra/imgx"
	"github.com/John-Robertt/heic2jpg/internal/logging"
)

// version 在构建时通过 -ldflags 注入。
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError 携带进程退出码；err 为 nil 表示已经输出过信息。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

// execute 运行 CLI 并返回退出码：0 成功；1 有失败/致命错误；2 参数错误。
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
	return 2
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "heic2jpg",
		Short: "批量把 HEIC 照片转换为 JPEG",
		Long: `heic2jpg 扫描源目录（不递归）中的 .heic 文件，转换为同名 .jpg 写入目标目录。
目标已存在的文件会被跳过；单个文件失败不影响其他文件。`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newConvertCmd(stdout, stderr))
	return root
}

type convertFlags struct {
	config    string
	delete    bool
	workers   int
	quality   int
	decoder   string
	report    string
	logLevel  string
	logFormat string
}

func newConvertCmd(stdout, stderr io.Writer) *cobra.Command {
	var fl convertFlags

	cmd := &cobra.Command{
		Use:   "convert [source] [dest]",
		Short: "转换 source 下的 HEIC 到 dest（默认 converter/HEIC -> converter/JPG）",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliArgsFrom(cmd, fl, args)
			return runConvert(cmd.Context(), cli, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fl.config, "config", "", "配置文件路径（YAML/JSON）；未指定时在当前目录查找 heic2jpg.yaml|yml|json")
	f.BoolVar(&fl.delete, "delete", false, "转换成功后删除原图；支持 --delete=false 覆盖配置")
	f.IntVar(&fl.workers, "workers", 0, "并发 worker 数（1 = 串行且结果按扫描顺序输出）")
	f.IntVar(&fl.quality, "quality", 0, "JPEG 质量 [1,100]（默认 95）")
	f.StringVar(&fl.decoder, "decoder", "", "解码器：native|sips（sips 仅 macOS）")
	f.StringVar(&fl.report, "report", "", "把 RunReport JSON 写入该路径（覆盖写）")
	f.StringVar(&fl.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	f.StringVar(&fl.logFormat, "log-format", "", "日志格式：text|json")
	return cmd
}

func cliArgsFrom(cmd *cobra.Command, fl convertFlags, args []string) config.CLIArgs {
	changed := cmd.Flags().Changed
	cli := config.CLIArgs{
		ConfigPath: fl.config,

		Delete:    fl.delete,
		DeleteSet: changed("delete"),

		Workers:    fl.workers,
		WorkersSet: changed("workers"),

		Quality:    fl.quality,
		QualitySet: changed("quality"),

		Decoder:    fl.decoder,
		DecoderSet: changed("decoder"),

		Report:    fl.report,
		ReportSet: changed("report"),

		LogLevel:    fl.logLevel,
		LogLevelSet: changed("log-level"),

		LogFormat:    fl.logFormat,
		LogFormatSet: changed("log-format"),
	}
	if len(args) > 0 {
		cli.Source = args[0]
	}
	if len(args) > 1 {
		cli.Dest = args[1]
	}
	return cli
}

func runConvert(ctx context.Context, cli config.CLIArgs, stdout, stderr io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("读取当前目录失败：%v", err)}
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	level, _ := logging.ParseLevel(eff.LogLevel)
	logging.Init(level, eff.LogFormat, stderr)
	log := logging.New("cli")

	dec, err := imgx.DecoderByName(eff.Decoder)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	batch := run.Batch{
		Decoder: dec,
		Encoder: imgx.JPEGEncoder{Quality: eff.Quality},
		Logger:  logging.New("batch"),
		Workers: eff.Workers,
	}
	req := run.Request{
		SourceDir:       eff.Source,
		DestDir:         eff.Dest,
		DeleteOriginals: eff.DeleteOriginals,
	}

	progressW, interactive := pickProgressWriter(stdout, stderr)
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW, eff)
	}

	rr := run.ExecuteWithObserver(ctx, batch, req, obs)

	if eff.Report != "" {
		if err := writeReportFile(eff.Report, rr); err != nil {
			log.Error("写入 report 失败", "path", eff.Report, "err", err)
			emitReport(stdout, stderr, rr)
			return &exitError{code: 1}
		}
	}

	emitReport(stdout, stderr, rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if !rr.OK() {
		return &exitError{code: 1}
	}
	return nil
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	if rr.FatalCode != "" {
		fmt.Fprintf(stderr, "失败：%s\n", rr.FatalMsg)
	}

	if isTTY(stdout) {
		fmt.Fprintln(stdout, summaryLine(rr))
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				fmt.Fprintf(stderr, "%s %s: %s\n", it.Src, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summaryLine(rr))
}

func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	line := fmt.Sprintf("完成：converted=%d skipped=%d failed=%d total=%d", s.Converted, s.Skipped, s.Failed, s.Total)
	if s.Canceled {
		line += " (已取消)"
	}
	return line
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(stderr) {
		return stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	if w == nil {
		return
	}
	if eff.Report != "" {
		fmt.Fprintf(w, "report: %s\n", eff.Report)
	}
	fmt.Fprintf(w, "out: %s\n", eff.Dest)
}
