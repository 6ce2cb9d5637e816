// Package search implements the search driver (C5, spec.md §4.5): it
// receives a mode and a pattern, asks the relevant collaborator for a
// DirList, walks each entry, and delegates per-file presentation to the
// reporter.
package search

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/gvanem/envtool/internal/canon"
	"github.com/gvanem/envtool/internal/dirlist"
	"github.com/gvanem/envtool/internal/external"
	"github.com/gvanem/envtool/internal/haltflag"
	"github.com/gvanem/envtool/internal/report"
)

// joinWindows joins dir and name with a backslash, the canonical Windows
// separator, regardless of the host the tool happens to be built on.
func joinWindows(dir, name string) string {
	return strings.TrimRight(dir, `\`) + `\` + name
}

// baseWindows returns the final backslash-separated component of path.
func baseWindows(path string) string {
	if idx := strings.LastIndexByte(path, '\\'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// Warning is a driver-level diagnostic, distinct from dirlist.Warning
// (which is scoped to one Split call): it covers missing environment
// variables and the registry/default shadowing advisory (spec.md §7).
type Warning struct {
	Text string
}

// emptyDirWarnVars is the closed set of canonical env-vars that trigger the
// empty-directory warning (spec.md §4.5).
var emptyDirWarnVars = map[string]bool{
	"PATH":               true,
	"LIB":                true,
	"INCLUDE":            true,
	"LIBRARY_PATH":       true,
	"C_INCLUDE_PATH":     true,
	"CPLUS_INCLUDE_PATH": true,
}

// manSubdirs are the well-known sub-directories man_mode_walk additionally
// searches under each MANPATH entry (spec.md §4.5).
func manSubdirs() []string {
	var dirs []string
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		dirs = append(dirs, "cat"+n, "man"+n)
	}
	return append(dirs, "mann")
}

// Driver orchestrates one search mode's walk (spec.md §4.5).
type Driver struct {
	// Pattern is the original, unrewritten pattern text; used for the
	// dotless-prefix special case and is only meaningful in glob mode.
	Pattern       string
	GlobMode      bool
	Matcher       external.Matcher
	Walker        external.DirWalker
	Out           *report.Writer
	CaseSensitive bool

	// LibrarySearchMode, when set, excludes directories from matching
	// (spec.md §4.5: "Directories never match when the caller is in
	// library-search mode").
	LibrarySearchMode bool

	// DirectoriesOnly implements -D/--dir: only directories may match.
	DirectoriesOnly bool

	CygwinRoot string
	Native     bool
	CWD        string

	// Classify resolves a canonical path's existence/directory flags.
	// Defaults to canon.Classify (a real os.Stat); tests inject a fake.
	Classify func(canonical, cwd string) (canon.ClassifyResult, error)

	Warnings []Warning

	// Hits accumulates every reported hit across the driver's lifetime, so
	// a caller that merges several source kinds into one run (e.g. PATH
	// plus registry App Paths) can feed the combined set to
	// ConsolidateShadowing afterward.
	Hits []report.Hit
}

func (d *Driver) classify() func(canonical, cwd string) (canon.ClassifyResult, error) {
	if d.Classify != nil {
		return d.Classify
	}
	return canon.Classify
}

func (d *Driver) warn(text string) {
	d.Warnings = append(d.Warnings, Warning{Text: text})
}

func (d *Driver) splitOpts() dirlist.Options {
	return dirlist.Options{
		CaseSensitive: d.CaseSensitive,
		CygwinRoot:    d.CygwinRoot,
		Native:        d.Native,
		CWD:           d.CWD,
		Classify:      d.Classify,
	}
}

// CheckEnv reads the process environment variable envName, splits it into
// a DirList, and walks every entry (spec.md §4.5).
func (d *Driver) CheckEnv(ctx context.Context, envName string, source report.SourceKind) (int, error) {
	value, ok := os.LookupEnv(envName)
	if !ok {
		d.warn("Env-var " + envName + " not defined")
		return 0, nil
	}
	list := dirlist.Split(envName, value, d.splitOpts())
	for _, w := range list.Warnings {
		d.warn(w.Text + ": " + w.Entry)
	}

	total := 0
	for _, e := range list.Entries {
		n, err := d.Walk(ctx, envName, e, source)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Walk enumerates files in entry whose leaf matches the driver's pattern
// (spec.md §4.5). It warns about missing and empty directories; duplicated
// and expansion-not-ok entries are skipped without a warning of their own,
// since dirlist.Split already reported them.
func (d *Driver) Walk(ctx context.Context, envName string, entry dirlist.DirEntry, source report.SourceKind) (int, error) {
	if haltflag.Requested() {
		return 0, nil
	}

	if !entry.ExpansionOK() {
		// Resolved open question (SPEC_FULL.md): warn-and-skip, consistently.
		return 0, nil
	}
	if entry.DuplicateCount > 0 {
		// The first occurrence already walked this directory; spec.md §7:
		// "subsequent duplicates are skipped."
		return 0, nil
	}
	if !entry.Exists {
		d.warn("directory does not exist: " + entry.Path.Canonical())
		return 0, nil
	}

	children, err := d.Walker.ReadDir(entry.Path.Canonical())
	if err != nil {
		d.warn("cannot read directory " + entry.Path.Canonical() + ": " + err.Error())
		return 0, nil
	}

	if emptyDirWarnVars[envName] && !entry.IsCWD && len(children) == 0 {
		d.warn("directory is empty: " + entry.Path.Canonical())
	}

	count := 0
	for _, c := range children {
		if c.IsDir && (d.LibrarySearchMode) {
			continue
		}
		if d.DirectoriesOnly && !c.IsDir {
			continue
		}
		if !d.matches(c.Name) {
			continue
		}
		count++
		hit := report.Hit{
			Path:        joinWindows(entry.Path.Canonical(), c.Name),
			ModTime:     c.ModTime,
			Size:        c.Size,
			IsDirectory: c.IsDir,
			IsJunction:  c.LinkTarget != "",
			LinkTarget:  c.LinkTarget,
			Source:      source,
		}
		d.Hits = append(d.Hits, hit)
		d.Out.Report(hit)
	}
	return count, nil
}

// ReportHit records and prints a hit obtained outside the normal dirlist
// walk (e.g. a registry App Paths match), so it still feeds Hits/
// ConsolidateShadowing the same way a Walk-discovered hit does.
func (d *Driver) ReportHit(h report.Hit) {
	d.Hits = append(d.Hits, h)
	d.Out.Report(h)
}

func (d *Driver) matches(name string) bool {
	if d.Matcher.Match(name) {
		return true
	}
	if d.GlobMode && DotlessAccepts(d.Pattern, name, d.CaseSensitive) {
		return true
	}
	return false
}

// Matches reports whether name satisfies the driver's pattern, the same
// test Walk applies to directory children. Callers producing hits outside
// the dirlist walk (registry App Paths) use this to stay consistent.
func (d *Driver) Matches(name string) bool {
	return d.matches(name)
}

// ManModeWalk behaves like CheckEnv, but for each entry also searches the
// well-known sub-directories {cat1..cat9, man1..man9, mann} (spec.md
// §4.5). It warns when "." appears more than once among the expanded
// entries and, through Walk, for missing entries, in addition to CheckEnv's
// own warnings. Well-known sub-directories that do not exist are skipped
// without a warning.
func (d *Driver) ManModeWalk(ctx context.Context, envName string) (int, error) {
	value, ok := os.LookupEnv(envName)
	if !ok {
		d.warn("Env-var " + envName + " not defined")
		return 0, nil
	}
	list := dirlist.Split(envName, value, d.splitOpts())
	for _, w := range list.Warnings {
		d.warn(w.Text + ": " + w.Entry)
	}

	dotCount := 0
	for _, e := range list.Entries {
		if e.Path.Raw() == "." {
			dotCount++
		}
	}
	if dotCount > 1 {
		d.warn(`"." appears more than once in ` + envName)
	}

	total := 0
	for _, e := range list.Entries {
		n, err := d.Walk(ctx, envName, e, report.SourceManPage)
		if err != nil {
			return total, err
		}
		total += n

		for _, sub := range manSubdirs() {
			subPath := joinWindows(e.Path.Canonical(), sub)
			subEntry := dirlist.DirEntry{Path: canon.New(subPath).Expand().Canonicalize(d.CygwinRoot, d.Native)}
			cls, err := d.classify()(subEntry.Path.Canonical(), d.CWD)
			if err != nil {
				continue
			}
			subEntry.Exists = cls.Exists
			subEntry.IsDirectory = cls.IsDirectory
			if !cls.Exists {
				continue // well-known sub-dirs are silently optional
			}
			n, err := d.Walk(ctx, "", subEntry, report.SourceManPage)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// ConsolidateShadowing reports the advisory footer (spec.md §4.5/§7) when
// name was matched both via a registry source and a default-environment
// source in the same run.
func ConsolidateShadowing(hits []report.Hit) []string {
	byName := map[string][]report.SourceKind{}
	for _, h := range hits {
		name := baseWindows(h.Path)
		byName[name] = append(byName[name], h.Source)
	}
	var names []string
	for name, sources := range byName {
		var hasRegistry, hasDefault bool
		for _, s := range sources {
			if s.IsRegistrySource() {
				hasRegistry = true
			}
			if s == report.SourceEnvDefault {
				hasDefault = true
			}
		}
		if hasRegistry && hasDefault {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
