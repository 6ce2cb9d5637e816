package cache

import (
	"path/filepath"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "envtool.cache"))

	if err := c.Put("cmake", "cmake_version = %d,%d,%d", 3, 20, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var major, minor, patch int
	n, err := c.Get("cmake", "cmake_version = %d,%d,%d", &major, &minor, &patch)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d fields, want 3", n)
	}
	if major != 3 || minor != 20 || patch != 1 {
		t.Errorf("got %d.%d.%d, want 3.20.1", major, minor, patch)
	}
}

func TestGetMissAfterDel(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "envtool.cache"))
	if err := c.Put("vcpkg", "vcpkg_exe = %s", `C:\vcpkg\vcpkg.exe`); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var path string
	if n, _ := c.Get("vcpkg", "vcpkg_exe = %s", &path); n != 1 {
		t.Fatalf("expected a hit before Del")
	}

	c.Del("vcpkg", "vcpkg_exe")

	n, err := c.Get("vcpkg", "vcpkg_exe = %s", &path)
	if err != nil {
		t.Fatalf("Get after Del: %v", err)
	}
	if n != 0 {
		t.Errorf("expected a miss after Del, got n=%d", n)
	}
}

func TestGetMissForUnknownKey(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "envtool.cache"))
	var s string
	n, err := c.Get("python", "python_exe = %s", &s)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 0 {
		t.Errorf("expected a miss for an unknown key, got n=%d", n)
	}
}

func TestFlushAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "envtool.cache")
	c := Open(path)
	if err := c.Put("cmake", "cmake_exe = %s", `C:\Tools\cmake.exe`); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := Open(path)
	var exe string
	n, err := reopened.Get("cmake", "cmake_exe = %s", &exe)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n != 1 || exe != `C:\Tools\cmake.exe` {
		t.Errorf("got (%d, %q), want (1, %q)", n, exe, `C:\Tools\cmake.exe`)
	}
}

func TestRefreshDeletesStaleKey(t *testing.T) {
	// S4 from spec.md §8: cache has a cmake_exe pointing at a file that no
	// longer exists; Refresh must delete the stale key.
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone", "cmake.exe")

	c := Open(filepath.Join(dir, "envtool.cache"))
	if err := c.Put("cmake", "cmake_exe = %s", missing); err != nil {
		t.Fatalf("Put: %v", err)
	}

	stale := c.Refresh("cmake", "cmake_exe", missing)
	if !stale {
		t.Fatalf("expected Refresh to report the key as stale")
	}

	var exe string
	n, _ := c.Get("cmake", "cmake_exe = %s", &exe)
	if n != 0 {
		t.Errorf("expected a miss after Refresh deleted the stale key")
	}
}

func TestFlushNoOpWhenNotDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "envtool.cache")
	c := Open(path)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush on untouched cache: %v", err)
	}
	var s string
	if _, err := Open(path).Get("x", "y = %s", &s); err != nil {
		t.Errorf("Get on a never-flushed cache file must not error: %v", err)
	}
}
