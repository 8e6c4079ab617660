package domain

// Candidate 描述一次扫描得到的待转换文件（只做 ReadDir，不读内容）。
//
// 不变量（实现必须遵守）：
// - SrcAbs/DstAbs 必须是 clean + absolute（Batch.Run 先对请求目录做 filepath.Abs）
// - TargetName 由 Name 派生，与 DstAbs 的 base 一致
type Candidate struct {
	Name       string // 源文件名（保留原大小写）
	TargetName string // 目标文件名（同 stem + 目标扩展名）
	SrcAbs     string
	DstAbs     string
	Size       int64
}
