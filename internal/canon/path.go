// Package canon turns the messy path spellings developers put into
// environment variables and the registry into one canonical form: a
// backslash-normalized path with a lower-cased drive letter. A relative
// path is not made absolute.
package canon

import (
	"os"
	"strings"
	"unicode"

	"golang.org/x/xerrors"
)

// Path is a path value that carries its raw spelling alongside the
// canonical form it was derived from. Equality between canonical paths
// goes through this package's DedupKey and Equal, never through ad hoc
// string comparison, so the case-sensitivity policy lives in exactly one
// place.
type Path struct {
	raw       string // as supplied by the caller, before %NAME% expansion
	expanded  string // after Expand/ExpandSystem
	canonical string // after Canonicalize

	expansionOK bool
}

// New builds a Path from raw text without expanding or canonicalizing it
// yet; call Expand (or ExpandSystem) and then Canonicalize.
func New(raw string) Path {
	return Path{raw: raw, expanded: raw, expansionOK: true}
}

func (p Path) Raw() string       { return p.raw }
func (p Path) Expanded() string  { return p.expanded }
func (p Path) Canonical() string { return p.canonical }
func (p Path) ExpansionOK() bool { return p.expansionOK }

// Expand replaces %NAME% references using the process environment.
func (p Path) Expand() Path {
	return p.expandWith(os.LookupEnv)
}

// ExpandSystem replaces %NAME% references using sysEnv, the system
// environment block (as opposed to the process environment). Callers
// reading registry values of type REG_EXPAND_SZ must use this variant:
// such values are meant to be expanded against the machine-wide
// environment, not whatever the current process happens to have set.
func ExpandSystem(raw string, sysEnv map[string]string) Path {
	p := New(raw)
	return p.expandWith(func(name string) (string, bool) {
		v, ok := sysEnv[name]
		return v, ok
	})
}

func (p Path) expandWith(lookup func(string) (string, bool)) Path {
	out, ok := expandPercent(p.raw, lookup)
	p.expanded = out
	p.expansionOK = ok
	return p
}

// expandPercent replaces every %NAME% occurrence in s. ok is false if any
// %NAME% reference could not be resolved; the unresolved reference is left
// verbatim in the output so the caller can still display it.
func expandPercent(s string, lookup func(string) (string, bool)) (string, bool) {
	var b strings.Builder
	ok := true
	for i := 0; i < len(s); {
		if s[i] != '%' {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i+1:], '%')
		if end < 0 {
			// Unterminated %, copy the rest literally.
			b.WriteString(s[i:])
			break
		}
		name := s[i+1 : i+1+end]
		if name == "" {
			// %% is not a reference.
			b.WriteByte('%')
			i++
			continue
		}
		if v, found := lookup(name); found {
			b.WriteString(v)
		} else {
			b.WriteByte('%')
			b.WriteString(name)
			b.WriteByte('%')
			ok = false
		}
		i = i + 1 + end + 1
	}
	return b.String(), ok
}

// Canonicalize produces the slash-normalized form of p.Expanded with a
// lower-cased drive letter and repeated separators collapsed, converting
// Cygwin-style input (/cygdrive/x/... or /usr/...) via cygwinRoot when
// native is true. It does not make a relative path absolute and does not
// resolve "." or ".." components.
func (p Path) Canonicalize(cygwinRoot string, native bool) Path {
	p.canonical = canonicalize(p.expanded, cygwinRoot, native)
	return p
}

func canonicalize(text, cygwinRoot string, native bool) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	if isCygwinStyle(text) {
		text = cygwinToWindows(text, cygwinRoot, native)
	}

	// Normalize slash direction: backslash is canonical on Windows.
	text = strings.ReplaceAll(text, "/", `\`)

	// Collapse duplicate separators, but keep a single leading "\\" for UNC.
	isUNC := strings.HasPrefix(text, `\\`)
	text = collapseSeparators(text)
	if isUNC && !strings.HasPrefix(text, `\\`) {
		text = `\` + text
	}

	// Lower-case a leading drive letter (C:\... -> c:\...).
	if len(text) >= 2 && text[1] == ':' && isASCIILetter(rune(text[0])) {
		text = string(unicode.ToLower(rune(text[0]))) + text[1:]
	}

	return text
}

func collapseSeparators(s string) string {
	var b strings.Builder
	prevSep := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			if prevSep {
				continue
			}
			prevSep = true
		} else {
			prevSep = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// isCygwinStyle reports whether text looks like a POSIX-style Cygwin path:
// /cygdrive/x/... or /usr/...
func isCygwinStyle(text string) bool {
	return strings.HasPrefix(text, "/cygdrive/") || strings.HasPrefix(text, "/usr/")
}

// cygwinToWindows converts a /cygdrive/x/... path to x:\... , or prefixes
// any other POSIX-rooted path (e.g. /usr/include) with cygwinRoot when
// running natively (outside of a Cygwin shell).
func cygwinToWindows(text, cygwinRoot string, native bool) string {
	const prefix = "/cygdrive/"
	if strings.HasPrefix(text, prefix) {
		rest := text[len(prefix):]
		if len(rest) == 0 {
			return text
		}
		drive := rest[0]
		tail := strings.TrimPrefix(rest[1:], "/")
		return string(drive) + `:\` + tail
	}
	if native && cygwinRoot != "" {
		return strings.TrimRight(cygwinRoot, `\/`) + `\` + strings.TrimPrefix(text, "/")
	}
	return text
}

// ClassifyResult is the outcome of Classify.
type ClassifyResult struct {
	Exists      bool
	IsDirectory bool
	IsCWD       bool
}

// Classify reports whether canonical exists, is a directory, and is the
// current working directory. UNC paths (\\host\share\...) skip the stat
// call entirely and are assumed to exist, to avoid a multi-minute SMB hang
// when the host is unreachable (spec.md §4.1).
func Classify(canonical, cwd string) (ClassifyResult, error) {
	if isUNC(canonical) {
		return ClassifyResult{Exists: true, IsDirectory: true, IsCWD: false}, nil
	}
	isCWD := cwd != "" && strings.EqualFold(canonical, canonicalize(cwd, "", false))
	fi, err := os.Stat(canonical)
	if err != nil {
		if os.IsNotExist(err) {
			return ClassifyResult{IsCWD: isCWD}, nil
		}
		return ClassifyResult{}, xerrors.Errorf("stat %s: %w", canonical, err)
	}
	return ClassifyResult{Exists: true, IsDirectory: fi.IsDir(), IsCWD: isCWD}, nil
}

func isUNC(p string) bool {
	return strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//")
}

// DedupKey returns the key used to detect duplicate directory entries.
// It is case-insensitive unless caseSensitive is set, matching the global
// case-sensitivity option shared by every component (spec.md §4.1).
func DedupKey(canonical string, caseSensitive bool) string {
	if caseSensitive {
		return canonical
	}
	return strings.ToLower(canonical)
}

// Equal reports whether a and b canonicalize to the same directory under
// the given case-sensitivity policy.
func Equal(a, b string, caseSensitive bool) bool {
	return DedupKey(a, caseSensitive) == DedupKey(b, caseSensitive)
}
