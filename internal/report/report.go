// Package report implements the reporter (C8, spec.md §4.8): it formats a
// single hit in the fixed fragment order the spec requires and keeps the
// running totals shown in the final summary.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gvanem/envtool/internal/external"
	"github.com/mattn/go-isatty"
)

// SourceKind tags where a Hit came from (spec.md §3's "source_kind"). The
// reporter dispatches on this tag to select formatting and to increment
// the right counter, per spec.md §9 Design Notes ("Heterogeneous source
// kinds... replace the polymorphic sentinel handles... with a tagged-
// variant SourceKind").
type SourceKind int

const (
	SourceEnvDefault SourceKind = iota
	SourceEnvCurrentUser
	SourceEnvLocalMachine
	SourceEnvSessionManager
	SourcePythonEgg
	SourceEverythingDB
	SourceIncludeOrLib
	SourceManPage
	SourcePkgConfig
	SourceEverythingFTP
	SourceCMakeRegistry
	SourceCMakeModule
	SourceVCPKG
)

func (k SourceKind) String() string {
	switch k {
	case SourceEnvDefault:
		return "env-default"
	case SourceEnvCurrentUser:
		return "env-current-user"
	case SourceEnvLocalMachine:
		return "env-local-machine"
	case SourceEnvSessionManager:
		return "env-session-manager"
	case SourcePythonEgg:
		return "python-egg"
	case SourceEverythingDB:
		return "everything-db"
	case SourceIncludeOrLib:
		return "include-or-lib"
	case SourceManPage:
		return "man-page"
	case SourcePkgConfig:
		return "pkgconfig"
	case SourceEverythingFTP:
		return "everything-ftp"
	case SourceCMakeRegistry:
		return "cmake-registry"
	case SourceCMakeModule:
		return "cmake-module"
	case SourceVCPKG:
		return "vcpkg"
	default:
		return "unknown"
	}
}

// IsRegistrySource reports whether k came from a registry-resident App
// Paths lookup, as opposed to a default environment variable — the
// distinction the shadowing advisory (spec.md §4.5, §7) cares about.
func (k SourceKind) IsRegistrySource() bool {
	switch k {
	case SourceEnvCurrentUser, SourceEnvLocalMachine, SourceEnvSessionManager:
		return true
	default:
		return false
	}
}

// Hit is one matched file (spec.md §3 "Hit / Report record").
type Hit struct {
	Path        string
	ModTime     time.Time
	Size        int64
	IsDirectory bool
	IsJunction  bool
	LinkTarget  string
	Source      SourceKind

	PE          *external.PEInfo
	Trust       external.TrustStatus
	Description string
	Owner       string
	PkgConfig   string // description block for pkgconfig hits
}

// Totals are the running counters the reporter maintains across a run
// (spec.md §4.8).
type Totals struct {
	HitCount          int
	TotalSize         int64
	PEVersionOKCount  int
	VerifiedCount     int
	DuplicatesRemote  int
	IgnoredCount      int
}

// Writer formats hits and accumulates Totals. It records whether out is a
// terminal (github.com/mattn/go-isatty), but the layout is the same either
// way: each optional fragment is written as its own indented line.
// Color/ANSI emission itself remains the external collaborator's job
// (spec.md §1).
type Writer struct {
	out        io.Writer
	decimal    bool // -T: decimal (not human-scaled) sizes/times
	unixSlash  bool // -u: unix-style path separators in output
	isTerminal bool

	Totals Totals
}

// NewWriter builds a Writer over out. fd, if non-negative, is the file
// descriptor backing out (used for the isatty check); pass -1 when out is
// not backed by a real fd (e.g. a bytes.Buffer in tests).
func NewWriter(out io.Writer, fd int, decimal, unixSlash bool) *Writer {
	term := false
	if fd >= 0 {
		term = isatty.IsTerminal(uintptr(fd))
	}
	return &Writer{out: out, decimal: decimal, unixSlash: unixSlash, isTerminal: term}
}

func (w *Writer) pathString(p string) string {
	if w.unixSlash {
		return filepath.ToSlash(p)
	}
	return p
}

func (w *Writer) formatSize(n int64) string {
	if w.decimal {
		return fmt.Sprintf("%d", n)
	}
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fG", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d", n)
	}
}

func (w *Writer) formatTime(t time.Time) string {
	if w.decimal {
		return fmt.Sprintf("%d", t.Unix())
	}
	return t.Format("02 Jan 2006 15:04")
}

// Report writes one hit in the fixed fragment order: note-prefix, time,
// size, owner, path, she-bang-or-link, newline — then the optional PE
// version / trust / pkg-config blocks, and updates Totals.
func (w *Writer) Report(h Hit) {
	w.Totals.HitCount++
	w.Totals.TotalSize += h.Size

	var prefix string
	if h.IsDirectory {
		prefix = "<DIR>  "
	} else {
		prefix = "       "
	}

	var line strings.Builder
	line.WriteString(prefix)
	line.WriteString(w.formatTime(h.ModTime))
	line.WriteByte(' ')
	line.WriteString(w.formatSize(h.Size))
	if h.Owner != "" {
		line.WriteByte(' ')
		line.WriteString(h.Owner)
	}
	line.WriteByte(' ')
	line.WriteString(w.pathString(h.Path))
	if h.LinkTarget != "" {
		line.WriteString(" -> ")
		line.WriteString(w.pathString(h.LinkTarget))
	}
	fmt.Fprintln(w.out, line.String())

	if h.PE != nil {
		if h.PE.ChecksumOK {
			w.Totals.PEVersionOKCount++
		}
		w.reportPE(*h.PE)
	}
	if h.Trust != external.TrustUnknown {
		w.Totals.VerifiedCount++
		w.reportTrust(h.Trust)
	}
	if h.Description != "" {
		fmt.Fprintf(w.out, "         %s\n", h.Description)
	}
	if h.PkgConfig != "" {
		fmt.Fprintf(w.out, "         %s\n", h.PkgConfig)
	}
}

func (w *Writer) reportPE(info external.PEInfo) {
	bitness := "unknown"
	switch info.Bitness {
	case external.PE32:
		bitness = "32-bit"
	case external.PE64:
		bitness = "64-bit"
	}
	fmt.Fprintf(w.out, "         ver %d.%d.%d.%d (%s)\n",
		info.Version[0], info.Version[1], info.Version[2], info.Version[3], bitness)
}

func (w *Writer) reportTrust(t external.TrustStatus) {
	switch t {
	case external.TrustSigned:
		fmt.Fprintln(w.out, "         (signed)")
	case external.TrustUnsigned:
		fmt.Fprintln(w.out, "         (not signed)")
	}
}

// ReportShadowAdvisory appends the consolidated footer spec.md §4.5/§7
// requires when the same match was found via both a registry source and a
// default-environment source in one run.
func (w *Writer) ReportShadowAdvisory(name string) {
	fmt.Fprintf(w.out, "\nNote: %s was found via both the registry and the default environment;\n"+
		"launching it from the Start menu may run a different binary than from the shell.\n", name)
}

// IgnoreHit records a hit that was suppressed (e.g. by an --owner
// negation filter) without printing it.
func (w *Writer) IgnoreHit() {
	w.Totals.IgnoredCount++
}

// CountRemoteDuplicate records a hit already reported locally that also
// showed up via a remote Everything query.
func (w *Writer) CountRemoteDuplicate() {
	w.Totals.DuplicatesRemote++
}

// Summary writes the final totals line.
func (w *Writer) Summary() {
	fmt.Fprintf(w.out, "\n%d match(es) found, total size %s.\n", w.Totals.HitCount, w.formatSize(w.Totals.TotalSize))
}
