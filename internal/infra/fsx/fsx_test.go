package fsx

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeString(s string) WriteFunc {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestWriteFileAtomicNoOverwrite_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString("hello")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("内容不一致：%q", string(b))
	}
	assertNoTemp(t, dir, "a.jpg")
}

func TestWriteFileAtomicNoOverwrite_ExistingTarget(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("old"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	err := WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString("new"))
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("期望 os.ErrExist，实际：%v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if string(b) != "old" {
		t.Fatalf("已有文件不应被覆盖：%q", string(b))
	}
}

func TestWriteFileAtomicNoOverwrite_WriterFails_NoPartialFile(t *testing.T) {
	dir := t.TempDir()

	boom := errors.New("encode 中途失败")
	err := WriteFileAtomicNoOverwrite(dir, "a.jpg", func(w io.Writer) error {
		_, _ = io.WriteString(w, "half")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望透传 writer 错误，实际：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("不应留下半截目标文件，Stat err=%v", err)
	}
	assertNoTemp(t, dir, "a.jpg")
}

func TestWriteFileAtomicNoOverwrite_ConcurrentWritersOnlyOneWins(t *testing.T) {
	dir := t.TempDir()

	// 两个写入者都已通过预检查，再同时发布到同一个目标名。
	var arrived sync.WaitGroup
	arrived.Add(2)
	old := linkFunc
	linkFunc = func(oldname, newname string) error {
		arrived.Done()
		arrived.Wait()
		return os.Link(oldname, newname)
	}
	defer func() { linkFunc = old }()

	bodies := []string{"first", "second"}
	errs := make([]error, len(bodies))
	var wg sync.WaitGroup
	for i, body := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString(body))
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("只能有一个写入者成功：errs=%v", errs)
			}
			winner = i
		case !errors.Is(err, os.ErrExist):
			t.Fatalf("落败的写入者应得到 os.ErrExist，实际：%v", err)
		}
	}
	if winner < 0 {
		t.Fatalf("应有一个写入者成功：errs=%v", errs)
	}
	b, err := os.ReadFile(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != bodies[winner] {
		t.Fatalf("目标内容应来自成功的写入者：want=%q got=%q", bodies[winner], string(b))
	}
	assertNoTemp(t, dir, "a.jpg")
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(dir, "report.json", []byte("{}"))
	if err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if e.Name() == "report.json" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
	assertNoTemp(t, dir, "report.json")
}

func TestWriteFileAtomicReplace_Overwrites(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFileAtomicReplace(dir, "r.json", []byte("1")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "r.json", []byte("2")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "r.json"))
	if string(b) != "2" {
		t.Fatalf("期望被覆盖为 2，实际 %q", string(b))
	}
}

func TestWriteFileAtomicNoOverwrite_TargetConflictDir(t *testing.T) {
	dir := t.TempDir()

	// 目标路径是目录：应返回 PathTypeConflictError，而不是 os.ErrExist。
	if err := os.Mkdir(filepath.Join(dir, "a.jpg"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	err := WriteFileAtomicNoOverwrite(dir, "a.jpg", writeString("hello"))
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x.jpg")

	ok, err := Exists(p)
	if err != nil || ok {
		t.Fatalf("期望不存在：ok=%v err=%v", ok, err)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	ok, err = Exists(p)
	if err != nil || !ok {
		t.Fatalf("期望存在：ok=%v err=%v", ok, err)
	}
}

func assertNoTemp(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "."+name+".tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}
