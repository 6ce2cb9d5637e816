// Package registry implements the registry adapter (C4, spec.md §4.4):
// it enumerates the Windows registry keys envtool cares about (App Paths,
// Session Manager Environment, user Environment, Kitware/CMake packages)
// and yields structured records. All access is read-only.
package registry

import (
	"sort"
	"strings"
	"time"
)

// Hive identifies which registry hive a lookup targets.
type Hive int

const (
	HKCU Hive = iota
	HKLM
)

func (h Hive) String() string {
	if h == HKLM {
		return "HKEY_LOCAL_MACHINE"
	}
	return "HKEY_CURRENT_USER"
}

const appPathsKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`
const kitwarePackagesKey = `Software\Kitware\CMake\Packages`
const sessionManagerEnvKey = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
const userEnvKey = `Environment`

// Record is the structured result of an App Paths lookup (spec.md §3
// "RegistryRecord").
type Record struct {
	ParentKey    Hive
	FriendlyName string // the App Paths sub-key name, e.g. "notepad.exe"
	Filename     string // resolved payload, with REG_EXPAND_SZ aliasing honored
	Directory    string
	ModTime      time.Time
	Size         int64
	Exists       bool
}

// KitwarePackage is one (package, uuid) -> path triple found under
// Software\Kitware\CMake\Packages.
type KitwarePackage struct {
	Package string
	UUID    string
	Path    string
}

// EnvVars is the result of ScanEnvironment: the PATH/INCLUDE/LIB values
// stored in one hive's Environment key (spec.md §4.4).
type EnvVars struct {
	Path    string
	Include string
	Lib     string
}

// Reader is the registry-access abstraction C4 exposes. A real
// implementation (registry_windows.go) is backed by
// golang.org/x/sys/windows/registry; tests and non-Windows builds use a
// stub or fake that returns empty results, matching spec.md §7's policy
// that a missing key is silent (treated as empty).
type Reader interface {
	EnumerateAppPaths(hive Hive, caseSensitive bool) ([]Record, error)
	ScanEnvironment(hive Hive) (EnvVars, error)
	EnumerateKitwarePackages(hive Hive) ([]KitwarePackage, error)
}

// StatFunc resolves a resolved App Paths filename to its existence/size/
// modtime, matching spec.md §4.4 ("the registry only names a file; envtool
// itself decides whether it is actually there"). Tests inject a fake so
// Resolve does not depend on the real filesystem.
type StatFunc func(path string) (exists bool, size int64, modTime time.Time)

// Resolve fills in Exists/Size/ModTime for each record by calling stat on
// its resolved path (Directory+Filename, or bare Filename when Directory
// is empty).
func Resolve(records []Record, stat StatFunc) {
	for i := range records {
		path := records[i].Filename
		if records[i].Directory != "" {
			path = strings.TrimRight(records[i].Directory, `\`) + `\` + records[i].Filename
		}
		exists, size, modTime := stat(path)
		records[i].Exists = exists
		records[i].Size = size
		records[i].ModTime = modTime
	}
}

// sortRecords sorts records by path-plus-real-name, honoring the
// case-sensitivity policy, per spec.md §4.4.
func sortRecords(records []Record, caseSensitive bool) {
	key := func(r Record) string {
		k := r.Directory + r.FriendlyName
		if !caseSensitive {
			k = strings.ToLower(k)
		}
		return k
	}
	sort.Slice(records, func(i, j int) bool { return key(records[i]) < key(records[j]) })
}
