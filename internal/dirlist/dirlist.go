// Package dirlist builds and manipulates DirList, the ordered sequence of
// directory entries produced from a single environment-variable value or a
// single probe's output (spec.md §3, §4.2).
package dirlist

import (
	"strings"

	"github.com/gvanem/envtool/internal/canon"
)

// WarningKind tags the condition a Warning reports, so callers can filter
// or count them without string matching (spec.md §7).
type WarningKind int

const (
	WarnDuplicate WarningKind = iota
	WarnExpansionFailed
	WarnMissingDirectory
	WarnEmptyDirectory
	WarnNeedsQuotes
	WarnBareDriveLetter
	WarnDotRepeated
)

// Warning is the side-channel diagnostic accompanying a DirEntry, never an
// error: every warning kind in spec.md §7 is non-fatal.
type Warning struct {
	Kind  WarningKind
	Entry string // the raw entry text the warning concerns
	Text  string
}

// DirEntry is one element of a DirList (spec.md §3).
type DirEntry struct {
	Path canon.Path

	Exists        bool
	IsDirectory   bool
	IsCWD         bool
	IsNativeShadow bool // true for a Cygwin /usr-style entry rewritten to a native path

	// DuplicateCount is how many earlier entries in the same list have the
	// same dedup key as this one. It only ever increases as later
	// duplicates are appended (spec.md §3 invariant).
	DuplicateCount int

	// SourceLine is debug provenance: the 1-based position within the
	// original environment value, before quoting/trimming.
	SourceLine int
}

// ExpansionOK reports whether every %NAME% reference in this entry
// resolved. An entry with ExpansionOK() == false still appears in the
// list (it participates in duplicate accounting) but is excluded from the
// filesystem walk (spec.md open question, resolved in SPEC_FULL.md: warn
// and skip, consistently, in every mode).
func (e DirEntry) ExpansionOK() bool { return e.Path.ExpansionOK() }

// DirList is the ordered sequence of DirEntry produced from one
// environment variable value or one probe's output.
type DirList struct {
	Entries  []DirEntry
	Warnings []Warning
}

func (l *DirList) warn(kind WarningKind, entry, text string) {
	l.Warnings = append(l.Warnings, Warning{Kind: kind, Entry: entry, Text: text})
}

// Options configure Split's behavior; zero value is the common case
// (Windows separator, case-insensitive dedup).
type Options struct {
	// Separator is the path-list separator: ';' on Windows, ':' when
	// converting Cygwin-style values (spec.md §4.2).
	Separator byte
	// CaseSensitive controls DedupKey comparisons (spec.md §4.1).
	CaseSensitive bool
	// CygwinRoot and Native are forwarded to canon.Path.Canonicalize.
	CygwinRoot string
	Native     bool
	// CWD is the current working directory, used to set DirEntry.IsCWD.
	CWD string

	// Classify resolves a canonical path's existence/directory/CWD flags.
	// Defaults to canon.Classify (a real os.Stat). Tests inject a fake so
	// DirEntry.Exists does not depend on the real filesystem.
	Classify func(canonical, cwd string) (canon.ClassifyResult, error)
}

func (o Options) classify() func(canonical, cwd string) (canon.ClassifyResult, error) {
	if o.Classify != nil {
		return o.Classify
	}
	return canon.Classify
}

func (o Options) separator() byte {
	if o.Separator == 0 {
		return ';'
	}
	return o.Separator
}

// Split splits value (the value of the environment variable envName) into
// a DirList, per the rules of spec.md §4.2:
//   - split on Options.Separator
//   - trim matched quotation marks
//   - remove a single trailing slash unless the component is a bare drive
//   - recognize the CWD tokens ".", ".\" and "./"
//   - mark unexpanded %NAME% entries as expansion-not-ok and warn
//   - warn when a drive-letter entry lacks a trailing separator (e.g. "c:")
//   - increment DuplicateCount on later occurrences of the same dedup key
func Split(envName, value string, opts Options) *DirList {
	list := &DirList{}
	if value == "" {
		return list
	}

	sep := opts.separator()
	raw := strings.Split(value, string(sep))
	seen := map[string]int{} // dedup key -> number of entries so far with that key

	for i, component := range raw {
		sourceLine := i + 1
		text := strings.TrimSpace(component)
		if text == "" {
			continue
		}

		if needsQuotes(text) {
			list.warn(WarnNeedsQuotes, text, "entry contains spaces but is not quoted")
		}
		text = trimMatchingQuotes(text)

		if isBareDriveLetter(text) {
			list.warn(WarnBareDriveLetter, text, "drive letter without trailing separator")
		} else {
			text = trimSingleTrailingSlash(text)
		}

		text = normalizeCWDToken(text)

		p := canon.New(text).Expand()
		if !p.ExpansionOK() {
			list.warn(WarnExpansionFailed, text, "unresolved %NAME% reference")
		}
		p = p.Canonicalize(opts.CygwinRoot, opts.Native)

		key := canon.DedupKey(p.Canonical(), opts.CaseSensitive)
		dupCount := seen[key]
		if dupCount > 0 {
			list.warn(WarnDuplicate, text, "duplicate of an earlier entry")
		}
		seen[key] = dupCount + 1

		isNativeShadow := strings.HasPrefix(strings.TrimSpace(component), "/usr/") ||
			strings.HasPrefix(strings.TrimSpace(component), "/cygdrive/")

		var cls canon.ClassifyResult
		if p.ExpansionOK() {
			var err error
			cls, err = opts.classify()(p.Canonical(), opts.CWD)
			if err != nil {
				cls = canon.ClassifyResult{}
			}
		}

		list.Entries = append(list.Entries, DirEntry{
			Path:           p,
			Exists:         cls.Exists,
			IsDirectory:    cls.IsDirectory,
			IsCWD:          cls.IsCWD,
			IsNativeShadow: isNativeShadow,
			DuplicateCount: dupCount,
			SourceLine:     sourceLine,
		})
	}

	return list
}

func needsQuotes(s string) bool {
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return false
	}
	return strings.ContainsAny(s, " \t")
}

func trimMatchingQuotes(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

// isBareDriveLetter reports whether text is exactly "c:" (no trailing
// separator), the condition spec.md §4.2 warns about.
func isBareDriveLetter(text string) bool {
	return len(text) == 2 && text[1] == ':' && isASCIILetter(text[0])
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// trimSingleTrailingSlash removes exactly one trailing slash/backslash,
// unless the component is a bare drive (e.g. "c:\" keeps its separator,
// per spec.md §4.2: "unless the component is a bare drive").
func trimSingleTrailingSlash(text string) string {
	if len(text) == 3 && text[1] == ':' && (text[2] == '\\' || text[2] == '/') {
		return text // c:\ stays intact
	}
	if strings.HasSuffix(text, `\`) || strings.HasSuffix(text, `/`) {
		return text[:len(text)-1]
	}
	return text
}

func normalizeCWDToken(text string) string {
	switch text {
	case ".", `.\`, "./":
		return "."
	default:
		return text
	}
}

// AppendCWDIfAbsent prepends a "." entry when the caller wants the current
// directory implicitly searched and it is not already present.
func AppendCWDIfAbsent(list *DirList, opts Options) {
	for _, e := range list.Entries {
		if e.Path.Raw() == "." {
			return
		}
	}
	p := canon.New(".").Expand().Canonicalize(opts.CygwinRoot, opts.Native)
	cls, _ := opts.classify()(p.Canonical(), opts.CWD)
	list.Entries = append([]DirEntry{{
		Path:        p,
		Exists:      cls.Exists,
		IsDirectory: cls.IsDirectory,
		IsCWD:       true,
	}}, list.Entries...)
}

// Uniquify stably removes duplicates from list: the first occurrence of
// each dedup key wins, matching spec.md §4.2.
func Uniquify(list *DirList, caseSensitive bool) {
	seen := make(map[string]bool, len(list.Entries))
	out := list.Entries[:0]
	for _, e := range list.Entries {
		key := canon.DedupKey(e.Path.Canonical(), caseSensitive)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	list.Entries = out
}
