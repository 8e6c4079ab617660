package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Source          string `json:"source"`
	Dest            string `json:"dest"`
	DeleteOriginals bool   `json:"delete_originals"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary Summary   `json:"summary"`
	Items   []Outcome `json:"items"`

	// Fatal 非空表示 run 在处理任何候选之前就失败了（例如目录不存在）。
	FatalCode string `json:"fatal_code,omitempty"`
	FatalMsg  string `json:"fatal_msg,omitempty"`
}

// Add 追加一条 outcome（不做统计；统一由 Finalize 计算）。
func (r *RunReport) Add(o Outcome) {
	r.Items = append(r.Items, o)
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 src 字典序（多 worker 时完成顺序不确定）
// 3) summary 的计数由 items 计算得出；Total/Canceled 保留调用方给出的值
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []Outcome{}
	}
	sort.SliceStable(r.Items, func(i, j int) bool { return r.Items[i].Src < r.Items[j].Src })

	s := Summary{Total: r.Summary.Total, Canceled: r.Summary.Canceled}
	for _, it := range r.Items {
		s.Count(it)
	}
	if s.Total < s.Done() {
		s.Total = s.Done()
	}
	r.Summary = s
}

// OK 表示没有失败（跳过不算失败）。
func (r RunReport) OK() bool {
	return r.FatalCode == "" && r.Summary.Failed == 0 && !r.Summary.Canceled
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
