package fsx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// 通过可替换的函数指针，让测试能稳定模拟 EXDEV、并发发布等场景。
var (
	renameFunc = os.Rename
	linkFunc   = os.Link
)

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
// 上层可把它映射为 error_code=io_failed。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError 表示跨盘（EXDEV）导致的 rename 失败。
// 临时文件总是建在目标目录内，出现 EXDEV 说明目标目录本身有问题（例如被替换为挂载点）。
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("跨盘 rename 失败（EXDEV）：%q -> %q：%v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice 判断 err 是否为跨盘（EXDEV）错误。
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename 封装 os.Rename，并把 EXDEV 显式标记为 CrossDeviceError。
func Rename(src, dst string) error {
	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// Exists 判断 path 是否已被占用（任何类型都算占用）。
func Exists(path string) (bool, error) {
	if _, err := os.Lstat(path); err == nil {
		return true, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	return false, nil
}

// WriteFunc 把内容写入 w；返回错误时临时文件会被清理。
type WriteFunc func(w io.Writer) error

// WriteFileAtomicNoOverwrite 在 dir 下原子写入 name（临时文件 + 硬链接发布），目标已存在时返回 os.ErrExist。
//
// - 临时文件必须与目标文件在同目录，以保证发布的原子性
// - 写入过程中被中断时，最终文件名下不会留下半截文件（最多残留 ".<name>.tmp-*"）
// - 发布用 link：目标已存在时原子失败，多个并发写入者只有一个成功，其余得到 os.ErrExist
// - 文件系统不支持硬链接时退回“再检查 + rename”，此时无法排除并发写入者之间的覆盖
func WriteFileAtomicNoOverwrite(dir, name string, write WriteFunc) error {
	dst := filepath.Join(filepath.Clean(dir), name)
	if err := checkNoOverwrite(dst); err != nil {
		return err
	}
	return writeFileAtomic(dir, name, write, 0o644, false)
}

// WriteFileAtomicReplace 写入并覆盖同名文件（尽量保持原子性；Windows 上为 best-effort）。
// 用于 report 等允许覆盖的内部产物。
func WriteFileAtomicReplace(dir, name string, data []byte) error {
	return writeFileAtomic(dir, name, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}, 0o644, true)
}

func checkNoOverwrite(dst string) error {
	fi, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "dir"}
	}
	if !fi.Mode().IsRegular() {
		return &PathTypeConflictError{Path: dst, Want: "regular file", Got: fi.Mode().Type().String()}
	}
	return os.ErrExist
}

func writeFileAtomic(dir, name string, write WriteFunc, perm os.FileMode, replace bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := filepath.Join(dir, name)

	// 创建同目录临时文件（前缀带 '.'，避免在相册视图里出现半成品）。
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if replace {
		err = Rename(tmpName, dst)
	} else {
		err = publishNoOverwrite(tmpName, dst)
	}
	if err != nil {
		return err
	}

	// 目录 fsync：best-effort（不同平台/文件系统的语义差异很大）。
	_ = syncDirBestEffort(dir)

	// 发布成功后，defer 里的 Remove(tmpName) 只删除临时名（rename 后为 not-exist，link 后为多余的那个链接）。
	return nil
}

// publishNoOverwrite 把已写完的临时文件发布为 dst，绝不替换已存在的 dst。
func publishNoOverwrite(tmpName, dst string) error {
	err := linkFunc(tmpName, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		if cerr := checkNoOverwrite(dst); cerr != nil {
			return cerr
		}
		return os.ErrExist
	case isEXDEV(err):
		return &CrossDeviceError{Src: tmpName, Dst: dst, Err: err}
	case isLinkUnsupported(err):
		// 退化路径：check 与 rename 之间仍有竞争窗口。
		if err := checkNoOverwrite(dst); err != nil {
			return err
		}
		return Rename(tmpName, dst)
	default:
		return err
	}
}

func syncDirBestEffort(dir string) error {
	// Windows 上目录 Sync 的语义与支持情况不稳定，这里直接跳过。
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
