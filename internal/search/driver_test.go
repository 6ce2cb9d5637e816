package search

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/gvanem/envtool/internal/canon"
	"github.com/gvanem/envtool/internal/external"
	"github.com/gvanem/envtool/internal/report"
)

// fakeWalker is an in-memory external.DirWalker keyed by lower-cased
// canonical directory path, so tests don't touch the real filesystem.
type fakeWalker struct {
	dirs map[string][]external.DirEntryInfo
}

func (f *fakeWalker) ReadDir(dir string) ([]external.DirEntryInfo, error) {
	entries, ok := f.dirs[lower(dir)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return entries, nil
}

func lower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func newDriver(t *testing.T, walker *fakeWalker, pattern string) (*Driver, *bytes.Buffer) {
	t.Helper()
	m, err := CompileGlob(pattern, false)
	if err != nil {
		t.Fatalf("CompileGlob: %v", err)
	}
	var buf bytes.Buffer
	w := report.NewWriter(&buf, -1, true, false)
	classify := func(canonical, cwd string) (canon.ClassifyResult, error) {
		_, exists := walker.dirs[lower(canonical)]
		return canon.ClassifyResult{Exists: exists, IsDirectory: exists}, nil
	}
	return &Driver{
		Pattern:  pattern,
		GlobMode: true,
		Matcher:  m,
		Walker:   walker,
		Out:      w,
		Classify: classify,
	}, &buf
}

func TestCheckEnvS1PathDuplicate(t *testing.T) {
	walker := &fakeWalker{dirs: map[string][]external.DirEntryInfo{
		`c:\windows`: {{Name: "explorer.exe", ModTime: time.Now(), Size: 100}},
		`c:\windows\system32`: {
			{Name: "notepad.exe", ModTime: time.Now(), Size: 200},
			{Name: "cmd.exe", ModTime: time.Now(), Size: 50},
		},
	}}
	d, _ := newDriver(t, walker, "notepad.exe")

	t.Setenv("PATH", `C:\WINDOWS;C:\WINDOWS\system32;C:\WINDOWS\system32;`)
	n, err := d.CheckEnv(context.Background(), "PATH", report.SourceEnvDefault)
	if err != nil {
		t.Fatalf("CheckEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d hits, want 1", n)
	}

	found := false
	for _, w := range d.Warnings {
		if contains(w.Text, "duplicate") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a duplicate warning, got %+v", d.Warnings)
	}
}

func TestCheckEnvS2MissingVar(t *testing.T) {
	walker := &fakeWalker{dirs: map[string][]external.DirEntryInfo{}}
	d, _ := newDriver(t, walker, "stdio.h")

	os.Unsetenv("INCLUDE_TEST_UNSET")

	n, err := d.CheckEnv(context.Background(), "INCLUDE_TEST_UNSET", report.SourceEnvDefault)
	if err != nil {
		t.Fatalf("CheckEnv: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d hits, want 0", n)
	}
	if len(d.Warnings) != 1 || !contains(d.Warnings[0].Text, "not defined") {
		t.Errorf("expected exactly one 'not defined' warning, got %+v", d.Warnings)
	}
}

func TestWalkMatchesDotlessName(t *testing.T) {
	walker := &fakeWalker{dirs: map[string][]external.DirEntryInfo{
		`c:\libs`: {{Name: "ratio", ModTime: time.Now(), Size: 10}},
	}}
	d, _ := newDriver(t, walker, "ratio.*")

	t.Setenv("PATH", `C:\libs`)
	n, err := d.CheckEnv(context.Background(), "PATH", report.SourceEnvDefault)
	if err != nil {
		t.Fatalf("CheckEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the dotless file 'ratio' to match pattern 'ratio.*', got %d hits", n)
	}
}

func TestConsolidateShadowing(t *testing.T) {
	hits := []report.Hit{
		{Path: `c:\tools\foo.exe`, Source: report.SourceEnvDefault},
		{Path: `c:\other\foo.exe`, Source: report.SourceEnvCurrentUser},
	}
	names := ConsolidateShadowing(hits)
	if len(names) != 1 || names[0] != "foo.exe" {
		t.Errorf("got %v, want [foo.exe]", names)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (func() bool {
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				return true
			}
		}
		return false
	})()
}
