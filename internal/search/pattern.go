package search

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gvanem/envtool/internal/external"
	"golang.org/x/xerrors"
)

// ExtensionDefault controls which extension is appended to a glob pattern
// that has none (spec.md §4.5: ".*" by default, ".pc*" for pkg-config
// mode, "*" for VCPKG/Python mode).
type ExtensionDefault int

const (
	ExtDefault ExtensionDefault = iota
	ExtPkgConfig
	ExtNone
)

func (e ExtensionDefault) suffix() string {
	switch e {
	case ExtPkgConfig:
		return ".pc*"
	case ExtNone:
		return "*"
	default:
		return ".*"
	}
}

// AppendDefaultExtension appends ext's default suffix to leaf if leaf has
// no extension of its own.
func AppendDefaultExtension(leaf string, ext ExtensionDefault) string {
	if filepath.Ext(leaf) != "" {
		return leaf
	}
	return leaf + ext.suffix()
}

// SplitSubdirLeaf separates pattern into an optional sub-directory portion
// and the leaf glob, per spec.md §4.5 ("before enumeration, separates
// opt_subdir/leaf_glob"). subdirHasWildcards reports whether the
// sub-directory portion itself contains glob metacharacters — the driver
// warns and treats it literally in that case.
func SplitSubdirLeaf(pattern string) (subdir, leaf string, subdirHasWildcards bool) {
	pattern = filepath.ToSlash(pattern)
	idx := strings.LastIndexByte(pattern, '/')
	if idx < 0 {
		return "", pattern, false
	}
	subdir, leaf = pattern[:idx], pattern[idx+1:]
	return subdir, leaf, containsGlobMeta(subdir)
}

func containsGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

type globMatcher struct {
	re            *regexp.Regexp
	caseSensitive bool
}

func (m *globMatcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// CompileGlob compiles a shell-style glob (literal, *, ?, POSIX character
// class [a-z]) into an external.Matcher. Negated classes ([!...]) are
// supported, matching the closed grammar spec.md §3 describes.
func CompileGlob(pattern string, caseSensitive bool) (external.Matcher, error) {
	re, err := globToRegexp(pattern, caseSensitive)
	if err != nil {
		return nil, xerrors.Errorf("compile glob %q: %w", pattern, err)
	}
	return &globMatcher{re: re, caseSensitive: caseSensitive}, nil
}

// ApproximateForFilesystem replaces POSIX character classes with "*", the
// coarser pattern spec.md §3 hands to the underlying filesystem
// enumeration layer before the true class is re-applied by the matcher
// (here: before CompileGlob is consulted a second time with the original
// pattern). It is exposed so a DirWalker that can only do glob-without-
// classes filtering can still narrow its own enumeration.
func ApproximateForFilesystem(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		if c == '[' {
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteByte('*')
			i += end + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

func globToRegexp(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
			i++
		case '?':
			b.WriteString(".")
			i++
		case '[':
			end := strings.IndexByte(pattern[i:], ']')
			if end < 0 {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
				continue
			}
			class := pattern[i+1 : i+end]
			b.WriteString("[")
			if strings.HasPrefix(class, "!") {
				b.WriteString("^" + class[1:])
			} else {
				b.WriteString(class)
			}
			b.WriteString("]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}
	b.WriteString("$")

	flags := ""
	if !caseSensitive {
		flags = "(?i)"
	}
	return regexp.Compile(flags + b.String())
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m *regexMatcher) Match(name string) bool {
	return m.re.MatchString(name)
}

// CompileRegex compiles an extended regular expression pattern into an
// external.Matcher. Regex mode and glob mode are mutually exclusive per
// call (spec.md testable property 3): a Driver is configured with exactly
// one Matcher.
func CompileRegex(pattern string, caseSensitive bool) (external.Matcher, error) {
	flags := ""
	if !caseSensitive {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return nil, xerrors.Errorf("compile regex %q: %w", pattern, err)
	}
	return &regexMatcher{re: re}, nil
}

// DotlessAccepts implements spec.md §4.5's special case: if pattern
// contains a literal dot and name does not, a prefix-match against the
// literal stem is accepted as equivalent (so "ratio.*" matches "ratio").
// It only fires when the portion of pattern before the last dot contains
// no wildcard characters and the portion after is a bare run of '*'.
func DotlessAccepts(pattern, name string, caseSensitive bool) bool {
	if !strings.Contains(pattern, ".") || strings.Contains(name, ".") {
		return false
	}
	idx := strings.LastIndex(pattern, ".")
	stem, ext := pattern[:idx], pattern[idx+1:]
	if containsGlobMeta(stem) {
		return false
	}
	if strings.Trim(ext, "*") != "" {
		return false
	}
	if caseSensitive {
		return stem == name
	}
	return strings.EqualFold(stem, name)
}
