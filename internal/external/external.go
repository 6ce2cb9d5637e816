// Package external models the out-of-scope collaborators enumerated in
// spec.md §1/§6 as narrow interfaces: the regex engine, the PE-image
// parser, signature verification, the Python interpreter probe, the
// FTP-based "Everything" remote query, and the opendir-equivalent
// directory-listing primitive. The core components (search, compiler,
// vcpkg, report) accept these interfaces rather than concrete
// implementations, so they can be exercised and tested without a real
// Windows host, a real PE parser, or network access.
package external

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Matcher applies exactly one pattern mode (glob or regex, spec.md
// testable property 3) and reports whether name matches.
type Matcher interface {
	Match(name string) bool
}

// PEBitness is the architecture a PE image was built for.
type PEBitness int

const (
	PEUnknown PEBitness = iota
	PE32
	PE64
)

// VersionQuad is a four-part file/product version, as stored in a PE
// resource section.
type VersionQuad [4]uint16

// PEInfo is what the external PE parser reports about one file.
type PEInfo struct {
	Bitness     PEBitness
	ChecksumOK  bool
	Version     VersionQuad
	Description string
}

// PEInspector is consumed only when the user enabled --pe (spec.md §4.8).
type PEInspector interface {
	Inspect(path string) (PEInfo, error)
}

// TrustStatus is the tri-state result of signature verification
// (spec.md §4.8: "all, only-signed, only-unsigned").
type TrustStatus int

const (
	TrustUnknown TrustStatus = iota
	TrustSigned
	TrustUnsigned
)

// SignatureVerifier is consumed only when --signed was requested.
type SignatureVerifier interface {
	Verify(path string) (TrustStatus, error)
}

// PythonProbe resolves Python's own search paths (sys.path) for the
// --python mode.
type PythonProbe interface {
	Probe(ctx context.Context) ([]string, error)
}

// EverythingHit is one result from a local or remote "Everything" query.
type EverythingHit struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// EverythingClient performs the --evry mode's local UI-message exchange
// or remote FTP-protocol query.
type EverythingClient interface {
	Query(ctx context.Context, pattern string) ([]EverythingHit, error)
}

// DirEntryInfo is what DirWalker reports about one filesystem entry,
// independent of the os.DirEntry the default implementation happens to use
// (so a future Win32 FindFirstFile-based walker can satisfy the same
// interface without an os.DirEntry to wrap).
type DirEntryInfo struct {
	Name      string
	IsDir     bool
	ModTime   time.Time
	Size      int64
	LinkTarget string // non-empty if this entry is a symlink/junction
}

// DirWalker is the opendir-equivalent primitive internal/search delegates
// to for listing one directory's immediate children.
type DirWalker interface {
	ReadDir(dir string) ([]DirEntryInfo, error)
}

// OSDirWalker is the default DirWalker, backed by os.ReadDir. It is not a
// faithful Win32 FindFirstFile implementation (it pays for one extra Lstat
// per entry to resolve symlink targets) but it satisfies the interface on
// every platform this repository's tests run on.
type OSDirWalker struct{}

func (OSDirWalker) ReadDir(dir string) ([]DirEntryInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntryInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if target, err := os.Readlink(filepath.Join(dir, e.Name())); err == nil {
				link = target
			}
		}
		out = append(out, DirEntryInfo{
			Name:       e.Name(),
			IsDir:      e.IsDir(),
			ModTime:    info.ModTime(),
			Size:       info.Size(),
			LinkTarget: link,
		})
	}
	return out, nil
}
