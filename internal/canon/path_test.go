package canon

import (
	"testing"
)

func TestExpandPercent(t *testing.T) {
	lookup := func(name string) (string, bool) {
		switch name {
		case "WINDIR":
			return `C:\WINDOWS`, true
		default:
			return "", false
		}
	}

	tests := []struct {
		in      string
		wantOut string
		wantOK  bool
	}{
		{`%WINDIR%\system32`, `C:\WINDOWS\system32`, true},
		{`%BOGUS%\foo`, `%BOGUS%\foo`, false},
		{`plain`, `plain`, true},
		{`100%% done`, `100% done`, true},
	}
	for _, tt := range tests {
		out, ok := expandPercent(tt.in, lookup)
		if out != tt.wantOut || ok != tt.wantOK {
			t.Errorf("expandPercent(%q) = (%q, %v), want (%q, %v)", tt.in, out, ok, tt.wantOut, tt.wantOK)
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{
		`C:\Windows\System32`,
		`c:/windows/system32/`,
		`\\host\share\dir`,
		`/cygdrive/c/Windows`,
	}
	for _, in := range inputs {
		once := canonicalize(in, `C:\cygwin`, true)
		twice := canonicalize(once, `C:\cygwin`, true)
		if once != twice {
			t.Errorf("canonicalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestCanonicalizeDriveLetterLowercased(t *testing.T) {
	got := canonicalize(`C:\Windows`, "", false)
	if got != `c:\Windows` {
		t.Errorf("got %q, want lower-cased drive letter", got)
	}
}

func TestCanonicalizeCygdrive(t *testing.T) {
	got := canonicalize("/cygdrive/c/Windows/System32", "", false)
	want := `c:\Windows\System32`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanonicalizeCygwinUsrNative(t *testing.T) {
	got := canonicalize("/usr/lib/gcc/i686-w64-mingw32/6.4.0/include", `C:\cygwin`, true)
	want := `c:\cygwin\usr\lib\gcc\i686-w64-mingw32\6.4.0\include`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupKeyCaseSensitivity(t *testing.T) {
	a, b := `C:\Foo`, `c:\foo`
	if DedupKey(a, false) != DedupKey(b, false) {
		t.Errorf("expected equal dedup keys when case-insensitive")
	}
	if DedupKey(a, true) == DedupKey(b, true) {
		t.Errorf("expected different dedup keys when case-sensitive")
	}
}

func TestClassifyUNCSkipsStat(t *testing.T) {
	res, err := Classify(`\\unreachable-host\share\dir`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Exists || !res.IsDirectory {
		t.Errorf("UNC paths must be assumed to exist without stat: got %+v", res)
	}
}
