package domain

const (
	StatusConverted = "converted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	ErrCodeDirNotFound   = "directory_not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeCodecFailed   = "codec_failed"
	ErrCodeIOFailed      = "io_failed"
	ErrCodeDeleteFailed  = "delete_failed"
)

// Outcome 是单个候选的处理结果（converted / skipped / failed 三选一）。
//
// 约束：
// - skipped 只有一种原因：目标已存在（ErrorCode=already_exists）
// - DeleteError 非空只可能出现在 converted 上，且不改变 Status
type Outcome struct {
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Status string `json:"status"`

	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Deleted     bool   `json:"deleted"`
	DeleteError string `json:"delete_error,omitempty"`
}

func Converted(src, dst string) Outcome {
	return Outcome{Src: src, Dst: dst, Status: StatusConverted}
}

func Skipped(src, dst string) Outcome {
	return Outcome{
		Src:       src,
		Dst:       dst,
		Status:    StatusSkipped,
		ErrorCode: ErrCodeAlreadyExists,
		ErrorMsg:  "目标文件已存在",
	}
}

func Failed(src, dst, code, msg string) Outcome {
	return Outcome{Src: src, Dst: dst, Status: StatusFailed, ErrorCode: code, ErrorMsg: msg}
}

// Summary 是一次 run 的最终统计。
//
// 不变量：Converted + Skipped + Failed == 已处理数；未取消时等于 Total。
type Summary struct {
	Total     int  `json:"total"`
	Converted int  `json:"converted"`
	Skipped   int  `json:"skipped"`
	Failed    int  `json:"failed"`
	Canceled  bool `json:"canceled"`
}

// Count 把单个 outcome 计入统计。
func (s *Summary) Count(o Outcome) {
	switch o.Status {
	case StatusConverted:
		s.Converted++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Done 返回已计入统计的候选数。
func (s Summary) Done() int {
	return s.Converted + s.Skipped + s.Failed
}
