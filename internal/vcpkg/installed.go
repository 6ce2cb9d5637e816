package vcpkg

import (
	"bufio"
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

// InstalledPackage is one accepted record from the installed-status file
// (spec.md §3).
type InstalledPackage struct {
	Name     string
	Version  string
	Triplet  string
	ABI      string
	Status   string
	Features []string
	Files    []string // relative paths under <arch>/{bin,lib,include}
}

// PlatformBits reports which of the x86/x64/arm/static tokens appear in
// the triplet, used by the 32/64-bit restriction filter (spec.md §4.7
// "Platform filter", testable property 7).
func (p InstalledPackage) PlatformBits() map[Qualifier]bool {
	bits := map[Qualifier]bool{}
	for _, part := range strings.Split(p.Triplet, "-") {
		if q, ok := qualifierNames[part]; ok {
			bits[q] = true
		}
	}
	return bits
}

// ParseInstalledStatus parses <root>/installed/vcpkg/status (spec.md §4.7
// "Installed index"): blank-line-separated RFC-822-style records. Records
// whose Status doesn't start with "install ok installed", or that lack an
// Architecture, are dropped. Repeated (package, architecture) records
// (base package plus per-feature records) have their Feature values
// merged into the set stored on the first record.
func ParseInstalledStatus(text string) []InstalledPackage {
	var records []map[string]string
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		records = append(records, parseRFC822Fields(current.String()))
		current.Reset()
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	byKey := map[string]int{} // "pkg\x00arch" -> index in out
	var out []InstalledPackage
	for _, f := range records {
		status := f["Status"]
		arch := f["Architecture"]
		if !strings.HasPrefix(status, "install ok installed") || arch == "" {
			continue
		}
		key := f["Package"] + "\x00" + arch
		feature := f["Feature"]

		if idx, ok := byKey[key]; ok {
			if feature != "" {
				out[idx].Features = append(out[idx].Features, feature)
			}
			continue
		}

		pkg := InstalledPackage{
			Name:    f["Package"],
			Version: f["Version"],
			Triplet: arch,
			ABI:     f["Abi"],
			Status:  status,
		}
		if feature != "" {
			pkg.Features = append(pkg.Features, feature)
		}
		if df := f["Default-Features"]; df != "" {
			pkg.Features = append(pkg.Features, splitFeatureList(df)...)
		}
		byKey[key] = len(out)
		out = append(out, pkg)
	}
	return out
}

// maybeV prefixes v with "v" if it lacks one, the form golang.org/x/mod's
// semver package requires.
func maybeV(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// SortByVersion orders packages newest-version-first within each name,
// the stability testable property 8 expects for --vcpkg output: when every
// package's Version is valid semver (after a "v" prefix is added, since
// vcpkg versions are rarely written with one), semver.Compare breaks ties;
// otherwise, a reverse string sort is used, grounded on the same fallback
// the teacher's checkupstream.go applies when upstream version strings
// don't parse as semver.
func SortByVersion(packages []InstalledPackage) {
	allSemver := true
	for _, p := range packages {
		if !semver.IsValid(maybeV(p.Version)) {
			allSemver = false
			break
		}
	}
	sort.SliceStable(packages, func(i, j int) bool {
		if packages[i].Name != packages[j].Name {
			return packages[i].Name < packages[j].Name
		}
		if allSemver {
			return semver.Compare(maybeV(packages[i].Version), maybeV(packages[j].Version)) > 0
		}
		return packages[i].Version > packages[j].Version
	})
}

// ParseInfoList filters a <pkg>_<ver>_<arch>.list file's lines to those
// under <arch>/bin, <arch>/lib, or <arch>/include (spec.md §4.7).
func ParseInfoList(triplet, text string) []string {
	prefixes := []string{triplet + "/bin", triplet + "/lib", triplet + "/include"}
	var files []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				files = append(files, line)
				break
			}
		}
	}
	return files
}

// FilterByBitness implements the 32/64-bit restriction (spec.md §4.7,
// testable property 7): want64 selects x64, !want64 selects x86; a package
// whose triplet lacks the requested bit is excluded, including triplets
// that carry neither token (e.g. arm-windows).
func FilterByBitness(packages []InstalledPackage, want64 bool) []InstalledPackage {
	want := QX86
	if want64 {
		want = QX64
	}
	var out []InstalledPackage
	for _, p := range packages {
		if !p.PlatformBits()[want] {
			continue
		}
		out = append(out, p)
	}
	return out
}
