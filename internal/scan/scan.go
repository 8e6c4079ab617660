package scan

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/heic2jpg/internal/domain"
)

const (
	DefaultSourceExt = ".heic"
	DefaultTargetExt = ".jpg"
)

// ScanCandidates 列出 srcDir 下（不递归）扩展名匹配 srcExt 的文件，并派生目标路径。
//
// 规则（硬约束）：
// - 只 ReadDir 一次；顺序即 os.ReadDir 的顺序（按文件名排序，单次调用内稳定）
// - 扩展名比较大小写不敏感：name 小写后以 srcExt 结尾
// - 子目录即使名字匹配也不算候选
//
// 注意：扫描阶段只做 ReadDir/Info，不读文件内容。
func ScanCandidates(srcDir, dstDir, srcExt, targetExt string) ([]domain.Candidate, error) {
	srcDir = filepath.Clean(srcDir)
	dstDir = filepath.Clean(dstDir)
	srcExt = strings.ToLower(srcExt)

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), srcExt) {
			continue
		}

		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}

		target := TargetName(name, targetExt)
		out = append(out, domain.Candidate{
			Name:       name,
			TargetName: target,
			SrcAbs:     filepath.Join(srcDir, name),
			DstAbs:     filepath.Join(dstDir, target),
			Size:       size,
		})
	}
	return out, nil
}

// TargetName 按最后一个 '.' 切分出 stem，再拼接 targetExt。
// 没有 '.' 的文件名整体视为 stem（"IMG" -> "IMG.jpg"）。
func TargetName(name, targetExt string) string {
	stem := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		stem = name[:i]
	}
	return stem + targetExt
}
