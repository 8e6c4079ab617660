package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanCandidates_ExtCaseInsensitiveAndNonRecursive(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")

	touch(t, filepath.Join(src, "a.heic"))
	touch(t, filepath.Join(src, "b.HEIC"))
	touch(t, filepath.Join(src, "c.jpg"))
	touch(t, filepath.Join(src, "nested", "d.heic"))
	if err := os.Mkdir(filepath.Join(src, "dir.heic"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	got, err := ScanCandidates(src, dst, DefaultSourceExt, DefaultTargetExt)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	var names, targets []string
	for _, c := range got {
		names = append(names, c.Name)
		targets = append(targets, c.TargetName)
		if c.DstAbs != filepath.Join(dst, c.TargetName) {
			t.Fatalf("DstAbs 不符合预期：%q", c.DstAbs)
		}
		if c.SrcAbs != filepath.Join(src, c.Name) {
			t.Fatalf("SrcAbs 不符合预期：%q", c.SrcAbs)
		}
	}
	if diff := cmp.Diff([]string{"a.heic", "b.HEIC"}, names); diff != "" {
		t.Fatalf("候选不符合预期 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg"}, targets); diff != "" {
		t.Fatalf("目标名不符合预期 (-want +got):\n%s", diff)
	}
}

func TestScanCandidates_MissingDir(t *testing.T) {
	_, err := ScanCandidates(filepath.Join(t.TempDir(), "nope"), t.TempDir(), DefaultSourceExt, DefaultTargetExt)
	if !os.IsNotExist(err) {
		t.Fatalf("期望 not-exist 错误，实际：%v", err)
	}
}

func TestTargetName(t *testing.T) {
	cases := map[string]string{
		"a.heic":         "a.jpg",
		"B.HEIC":         "B.jpg",
		"trip.2024.heic": "trip.2024.jpg",
		".heic":          ".jpg",
		"IMG":            "IMG.jpg",
	}
	for in, want := range cases {
		if got := TargetName(in, ".jpg"); got != want {
			t.Fatalf("TargetName(%q)=%q，期望 %q", in, got, want)
		}
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
