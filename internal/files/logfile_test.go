package files

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestOpenLogFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kamekai.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"first\n", "second\n"} {
		f, err := OpenLogFile(path)
		if err != nil {
			t.Fatalf("OpenLogFile: %v", err)
		}
		if _, err := f.WriteString(line); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("log file = %q", data)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("permissions = %o", perm)
		}
	}
}

func TestOpenLogFileRejectsLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	tmp := t.TempDir()
	realDir := filepath.Join(tmp, "real", "nested")
	if err := os.MkdirAll(realDir, 0o700); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(tmp, "target.jsonl")
	if err := os.WriteFile(target, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(tmp, "file-link.jsonl")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(tmp, "real"), filepath.Join(tmp, "dir-link")); err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{
		"file":     filepath.Join(tmp, "file-link.jsonl"),
		"parent":   filepath.Join(tmp, "dir-link", "out.jsonl"),
		"ancestor": filepath.Join(tmp, "dir-link", "nested", "out.jsonl"),
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			f, err := OpenLogFile(path)
			if err == nil {
				f.Close()
				t.Fatal("expected link rejection")
			}
			if !errors.Is(err, ErrLinkedPath) {
				t.Fatalf("error = %v", err)
			}
		})
	}
}

func TestOpenLogFileEmptyPath(t *testing.T) {
	_, err := OpenLogFile("  ")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("error = %v", err)
	}
}
