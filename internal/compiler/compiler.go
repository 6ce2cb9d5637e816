// Package compiler implements the compiler prober (C6, spec.md §4.6): it
// invokes each detected toolchain and extracts its effective include and
// library search directories, ready for the caller to feed into the same
// DirList/Walk pipeline an environment variable's value would go through.
package compiler

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gvanem/envtool/internal/cache"
	"github.com/gvanem/envtool/internal/canon"
)

// Kind is the toolchain family (spec.md §3 "ToolchainProbe").
type Kind int

const (
	GNUCC Kind = iota
	GNUCXX
	MSVC
	Clang
	Borland
	Watcom
)

func (k Kind) String() string {
	switch k {
	case GNUCC:
		return "gcc"
	case GNUCXX:
		return "g++"
	case MSVC:
		return "msvc"
	case Clang:
		return "clang"
	case Borland:
		return "borland"
	case Watcom:
		return "watcom"
	default:
		return "unknown"
	}
}

// Toolchain is one candidate compiler to probe.
type Toolchain struct {
	ShortName string // e.g. "gcc.exe", "x86_64-w64-mingw32-gcc.exe"
	FullPath  string // resolved path on PATH, empty if unresolved
	Kind      Kind
	Ignore    bool
}

// builtinGCCPrefixes are the target-triplet prefixes spec.md §4.6 requires
// probing in addition to the unprefixed host compiler.
var builtinGCCPrefixes = []string{"", "x86_64-w64-mingw32-", "i386-mingw32-", "i686-w64-mingw32-", "avr-"}

// Runner is the (argv) -> captured-output abstraction spec.md §9 Design
// Notes calls for, grounded on the teacher's findShlibDeps
// (cmd/distri/shlibdeps.go: exec.Command + combined-output capture). A
// fake Runner lets probe tests run without a real compiler on PATH.
type Runner interface {
	Run(ctx context.Context, exe string, argv []string, stdin string) (lines []string, err error)
}

// StatFunc resolves an executable's path to its modification time, used to
// key the probe-result cache (spec.md §4.6: "memoized... keyed by the
// resolved executable's path and mtime").
type StatFunc func(path string) (mtime time.Time, ok bool)

// FileReader reads a small configuration file whole (used by the Borland
// probe to read the compiler's .cfg). Tests inject a fake so the package
// does not depend on real files on disk.
type FileReader func(path string) ([]string, error)

// EnvLookup resolves a single environment variable, injected so the MSVC
// and Watcom probes do not depend on the real process environment in
// tests.
type EnvLookup func(name string) (string, bool)

// IgnoreOptions controls which toolchains Probe skips, per spec.md §4.6
// "Ignore rules".
type IgnoreOptions struct {
	NoKind     map[Kind]bool
	NoPrefix   bool     // skip any prefixed GNU gcc/g++ variant
	IgnoreList []string // matched against FullPath, or ShortName if unresolved
}

// ShouldIgnore reports whether t should be skipped under opts.
func ShouldIgnore(t Toolchain, opts IgnoreOptions) bool {
	if t.Ignore {
		return true
	}
	if opts.NoKind[t.Kind] {
		return true
	}
	if opts.NoPrefix && (t.Kind == GNUCC || t.Kind == GNUCXX) && t.ShortName != prefixedName("", t.Kind) {
		return true
	}
	needle := t.FullPath
	if needle == "" {
		needle = t.ShortName
	}
	for _, ignored := range opts.IgnoreList {
		if strings.EqualFold(ignored, needle) {
			return true
		}
	}
	return false
}

func prefixedName(prefix string, kind Kind) string {
	if kind == GNUCXX {
		return prefix + "g++.exe"
	}
	return prefix + "gcc.exe"
}

// cacheKey builds the compiler cache section's record key: the resolved
// executable path, qualified by kind so gcc and g++ probes of the same
// binary (rare, but possible via a symlink) don't collide.
func cacheKey(kind Kind, exePath string) string {
	return kind.String() + ":" + exePath
}

// probeCacheSection mirrors the teacher's vcpkg/cmake cache sections: one
// record per probed executable, storing its directories and the mtime it
// was probed at; load treats a record whose stored mtime differs from the
// executable's current mtime as a miss.
type probeCacheSection struct {
	c *cache.Cache
}

func newProbeCacheSection(c *cache.Cache) probeCacheSection {
	return probeCacheSection{c: c}
}

func (s probeCacheSection) load(kind Kind, exePath string, mtime time.Time) ([]string, bool) {
	if s.c == nil {
		return nil, false
	}
	var stored string
	var storedMTime int64
	n, err := s.c.Get("compiler", cacheKey(kind, exePath)+" = %s %d", &stored, &storedMTime)
	if err != nil || n != 2 {
		return nil, false
	}
	if storedMTime != mtime.Unix() {
		return nil, false
	}
	if stored == "-" {
		return []string{}, true
	}
	return strings.Split(stored, "|"), true
}

func (s probeCacheSection) store(kind Kind, exePath string, mtime time.Time, dirs []string) {
	if s.c == nil {
		return
	}
	joined := strings.Join(dirs, "|")
	if joined == "" {
		joined = "-"
	}
	s.c.Put("compiler", cacheKey(kind, exePath)+" = %s %d", joined, mtime.Unix())
}

// dedupNormalized removes duplicate directories after case-insensitive
// canonicalization, preserving first-occurrence order (spec.md §4.6:
// "remove duplicates after normalization").
func dedupNormalized(dirs []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		key := strings.ToLower(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// canonicalizeCygwinLine converts one candidate directory line to a
// Windows path, honoring the Cygwin-root substitution spec.md §4.6 and
// testable scenario S6 require.
func canonicalizeCygwinLine(line, cygwinRoot string, native bool) string {
	p := canon.New(strings.TrimSpace(line)).Expand().Canonicalize(cygwinRoot, native)
	return p.Canonical()
}

// Resolver searches PATH for an executable by name, returning its full
// path. Tests inject a fake map so probing does not require a real PATH or
// real compiler binaries.
type Resolver interface {
	Resolve(name string) (fullPath string, ok bool)
}

// DirExists checks whether a directory exists, used only by the GNU g++
// probe's "append the c++ sub-directory when present" rule. Tests inject a
// fake; a nil DirExists treats every sub-directory as absent.
type DirExists func(path string) bool

// ProbeOptions configures one Probe invocation.
type ProbeOptions struct {
	Runner     Runner
	Resolver   Resolver
	Stat       StatFunc
	ReadFile   FileReader
	Env        EnvLookup
	DirExists  DirExists
	Cache      *cache.Cache
	CygwinRoot string
	Native     bool
	Want64Bit  bool // selects -m64 vs -m32 for the GNU library-path probe
}

func (o ProbeOptions) cacheSection() probeCacheSection { return newProbeCacheSection(o.Cache) }

func (o ProbeOptions) dirExists(path string) bool {
	if o.DirExists == nil {
		return false
	}
	return o.DirExists(path)
}

func (o ProbeOptions) lookupEnv(name string) (string, bool) {
	if o.Env == nil {
		return "", false
	}
	return o.Env(name)
}

func (o ProbeOptions) readFile(path string) ([]string, error) {
	if o.ReadFile == nil {
		return nil, os.ErrNotExist
	}
	return o.ReadFile(path)
}

func (o ProbeOptions) statMTime(path string) (time.Time, bool) {
	if o.Stat == nil {
		return time.Time{}, false
	}
	return o.Stat(path)
}
