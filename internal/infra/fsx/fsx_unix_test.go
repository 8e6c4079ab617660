//go:build unix

package fsx

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
)

func TestWriteFileAtomicNoOverwrite_CrossDeviceEXDEV(t *testing.T) {
	old := linkFunc
	linkFunc = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EXDEV}
	}
	defer func() { linkFunc = old }()

	dir := t.TempDir()
	err := WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString("x"))
	if !IsCrossDevice(err) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("EXDEV 时不应产生目标文件，Stat err=%v", err)
	}
}

func TestWriteFileAtomicReplace_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(t.TempDir(), "report.json", []byte("{}"))
	if !IsCrossDevice(err) {
		t.Fatalf("期望 CrossDeviceError，实际：%T %v", err, err)
	}
}

func TestWriteFileAtomicNoOverwrite_LinkUnsupportedFallsBackToRename(t *testing.T) {
	old := linkFunc
	linkFunc = func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EOPNOTSUPP}
	}
	defer func() { linkFunc = old }()

	dir := t.TempDir()
	if err := WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString("hello")); err != nil {
		t.Fatalf("不支持硬链接时应退回 rename：%v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil || string(b) != "hello" {
		t.Fatalf("目标内容不符合预期：%q err=%v", string(b), err)
	}
	assertNoTemp(t, dir, "a.jpg")
}
