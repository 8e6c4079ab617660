package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/heic2jpg/internal/infra/imgx"
	"github.com/John-Robertt/heic2jpg/internal/logging"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultSource/DefaultDest 是 CLI 的便利默认值（相对 cwd），batch 引擎本身不内置任何默认目录。
	DefaultSource = "converter/HEIC"
	DefaultDest   = "converter/JPG"

	DefaultWorkers   = 1
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DiscoverNames 是未指定 --config 时在 cwd 下按顺序查找的文件名（都不存在也不报错）。
var DiscoverNames = []string{"heic2jpg.yaml", "heic2jpg.yml", "heic2jpg.json"}

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件（例如 --delete=false 覆盖 delete_originals: true）。
type CLIArgs struct {
	ConfigPath string

	Source string
	Dest   string

	Delete    bool
	DeleteSet bool

	Workers    int
	WorkersSet bool

	Quality    int
	QualitySet bool

	Decoder    string
	DecoderSet bool

	Report    string
	ReportSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 heic2jpg.yaml / heic2jpg.json。
type FileConfig struct {
	Source          string `yaml:"source" json:"source"`
	Dest            string `yaml:"dest" json:"dest"`
	DeleteOriginals *bool  `yaml:"delete_originals" json:"delete_originals"`
	Workers         int    `yaml:"workers" json:"workers"`
	Quality         int    `yaml:"quality" json:"quality"`
	Decoder         string `yaml:"decoder" json:"decoder"`
	Report          string `yaml:"report" json:"report"`
	LogLevel        string `yaml:"log_level" json:"log_level"`
	LogFormat       string `yaml:"log_format" json:"log_format"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Source          string
	Dest            string
	DeleteOriginals bool

	Workers int
	Quality int
	Decoder string

	// Report 为空表示不写 report 文件。
	Report string

	LogLevel  string
	LogFormat string

	// ConfigPath 是实际读取的配置文件（没有则为空）。
	ConfigPath string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
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

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在
// 2) 否则按 DiscoverNames 在 cwd 下查找（可选）
//
// 覆盖优先级（固定）：CLI（显式指定）> 配置文件 > 内置默认。
// 路径解析：CLI 路径相对 cwd；配置文件中的路径相对配置文件所在目录。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		var exists bool
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		for _, name := range DiscoverNames {
			p := filepath.Join(cwdAbs, name)
			f, exists, e := readFileConfig(p)
			if e != nil {
				return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: p, Err: e}
			}
			if exists {
				cfgPath, fc = p, f
				break
			}
		}
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	fileBase := cwdAbs
	if cfgPath != "" {
		fileBase = filepath.Dir(cfgPath)
	}
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	source := pickPath(cwdAbs, cli.Source, fileBase, fc.Source, DefaultSource)
	dest := pickPath(cwdAbs, cli.Dest, fileBase, fc.Dest, DefaultDest)

	del := false
	if cli.DeleteSet {
		del = cli.Delete
	} else if fc.DeleteOriginals != nil {
		del = *fc.DeleteOriginals
	}

	workers := fc.Workers
	if cli.WorkersSet {
		workers = cli.Workers
	}
	if workers == 0 {
		workers = DefaultWorkers
	}
	// 范围 [1, 32]；超出截断。
	if workers < 1 {
		workers = 1
	}
	if workers > 32 {
		workers = 32
	}

	quality := fc.Quality
	if cli.QualitySet {
		quality = cli.Quality
	}
	if quality == 0 {
		quality = imgx.DefaultQuality
	}
	if quality < 1 || quality > 100 {
		return EffectiveConfig{}, invalid(fmt.Errorf("quality 必须在 [1,100] 内，实际是 %d", quality))
	}

	decoder := pickString(cli.Decoder, cli.DecoderSet, fc.Decoder, imgx.DecoderNative)
	decoder = strings.ToLower(decoder)
	if _, err := imgx.DecoderByName(decoder); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	report := ""
	if cli.ReportSet {
		if strings.TrimSpace(cli.Report) != "" {
			report = absCleanFrom(cwdAbs, cli.Report)
		}
	} else if strings.TrimSpace(fc.Report) != "" {
		report = absCleanFrom(fileBase, fc.Report)
	}

	logLevel := strings.ToLower(pickString(cli.LogLevel, cli.LogLevelSet, fc.LogLevel, DefaultLogLevel))
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	logFormat := strings.ToLower(pickString(cli.LogFormat, cli.LogFormatSet, fc.LogFormat, DefaultLogFormat))
	switch logFormat {
	case "text", "json":
	default:
		return EffectiveConfig{}, invalid(fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", logFormat))
	}

	return EffectiveConfig{
		Source:          source,
		Dest:            dest,
		DeleteOriginals: del,
		Workers:         workers,
		Quality:         quality,
		Decoder:         decoder,
		Report:          report,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		ConfigPath:      cfgPath,
	}, nil
}

func pickPath(cliBase, cliVal, fileBase, fileVal, def string) string {
	if strings.TrimSpace(cliVal) != "" {
		return absCleanFrom(cliBase, cliVal)
	}
	if strings.TrimSpace(fileVal) != "" {
		return absCleanFrom(fileBase, fileVal)
	}
	return absCleanFrom(cliBase, def)
}

func pickString(cliVal string, cliSet bool, fileVal, def string) string {
	if cliSet && strings.TrimSpace(cliVal) != "" {
		return strings.TrimSpace(cliVal)
	}
	if strings.TrimSpace(fileVal) != "" {
		return strings.TrimSpace(fileVal)
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件；按扩展名选择 YAML 或 JSON。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, &fc)
	default:
		err = yaml.Unmarshal(b, &fc)
	}
	if err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
