package vcpkg

import (
	"context"
	"sort"
	"testing"
)

func TestParseCONTROLBasic(t *testing.T) {
	text := "Source: zlib\n" +
		"Version: 1.2.11\n" +
		"Homepage: https://zlib.net\n" +
		"Description: A compression library\n" +
		"Build-Depends: vcpkg-cmake, vcpkg-cmake-config\n"
	node := ParseCONTROL(text)
	if !node.HasCONTROL {
		t.Fatal("expected HasCONTROL")
	}
	if node.Version != "1.2.11" || node.Homepage != "https://zlib.net" {
		t.Errorf("got %+v", node)
	}
	if len(node.Dependencies) != 2 {
		t.Fatalf("got deps %+v", node.Dependencies)
	}
}

func TestParseCONTROLDependencyQualifier(t *testing.T) {
	text := "Source: foo\nBuild-Depends: bar (windows & !uwp), baz\n"
	node := ParseCONTROL(text)
	if len(node.Dependencies) != 2 {
		t.Fatalf("got %+v", node.Dependencies)
	}
	bar := node.Dependencies[0]
	if bar.Name != "bar" || bar.Expr == nil {
		t.Fatalf("got %+v", bar)
	}
	if !bar.Expr.Evaluate(map[Qualifier]bool{QWindows: true}) {
		t.Error("expected bar to apply on windows without uwp")
	}
	if bar.Expr.Evaluate(map[Qualifier]bool{QWindows: true, QUWP: true}) {
		t.Error("expected bar to not apply on windows+uwp")
	}
}

func TestParseVcpkgJSONArrayDescription(t *testing.T) {
	data := []byte(`{"name":"fmt","version":"9.1.0","description":["A formatting","library"],"dependencies":["vcpkg-cmake"]}`)
	node, err := ParseVcpkgJSON(data)
	if err != nil {
		t.Fatalf("ParseVcpkgJSON: %v", err)
	}
	if node.Description != "A formatting library" {
		t.Errorf("got %q", node.Description)
	}
	if len(node.Dependencies) != 1 || node.Dependencies[0].Name != "vcpkg-cmake" {
		t.Errorf("got %+v", node.Dependencies)
	}
}

func TestExtractGitHubHomepage(t *testing.T) {
	portfile := `
vcpkg_from_github(
    OUT_SOURCE_PATH SOURCE_PATH
    REPO fmtlib/fmt
    REF 9.1.0
)
`
	homepage, ok := ExtractGitHubHomepage(portfile)
	if !ok || homepage != "https://github.com/fmtlib/fmt" {
		t.Errorf("got %q, %v", homepage, ok)
	}
}

func TestParseInstalledStatusMergesFeatures(t *testing.T) {
	text := `Package: zlib
Architecture: x64-windows
Version: 1.2.11
Status: install ok installed

Package: zlib
Feature: tools
Architecture: x64-windows
Status: install ok installed
`
	packages := ParseInstalledStatus(text)
	if len(packages) != 1 {
		t.Fatalf("got %d packages, want 1 merged record", len(packages))
	}
	if len(packages[0].Features) != 1 || packages[0].Features[0] != "tools" {
		t.Errorf("got features %v", packages[0].Features)
	}
}

func TestParseInstalledStatusRejectsNotInstalled(t *testing.T) {
	text := "Package: foo\nArchitecture: x64-windows\nStatus: install ok half-installed\n"
	packages := ParseInstalledStatus(text)
	if len(packages) != 0 {
		t.Errorf("got %d, want 0", len(packages))
	}
}

func TestFilterByBitness(t *testing.T) {
	packages := []InstalledPackage{
		{Name: "a", Triplet: "x86-windows"},
		{Name: "b", Triplet: "x64-windows"},
		{Name: "c", Triplet: "arm-windows"},
	}
	got32 := FilterByBitness(packages, false)
	if len(got32) != 1 || got32[0].Name != "a" { // only a (x86); c (arm) lacks x86
		t.Errorf("got %v for 32-bit, want only a", got32)
	}
	got64 := FilterByBitness(packages, true)
	if len(got64) != 1 || got64[0].Name != "b" { // only b (x64); c (arm) lacks x64
		t.Errorf("got %v for 64-bit, want only b", got64)
	}
}

type fakePortReader struct {
	portDirs map[string][]string
	files    map[string]string // root/name/filename -> text
	status   map[string]string
}

func (f *fakePortReader) ListPortDirs(root string) ([]string, error) {
	return f.portDirs[root], nil
}

func (f *fakePortReader) ReadPortFile(root, name, filename string) (string, bool) {
	text, ok := f.files[root+"/"+name+"/"+filename]
	return text, ok
}

func (f *fakePortReader) ReadInstalledStatus(root string) (string, bool) {
	text, ok := f.status[root]
	return text, ok
}

func (f *fakePortReader) ReadInfoList(root, pkg, version, arch string) (string, bool) {
	return "", false
}

// TestFindZlibWithTwoDependencies is scenario S3: a ports directory
// contains zlib/CONTROL with Build-Depends: vcpkg-cmake,
// vcpkg-cmake-config; find("zlib") returns one top-level hit plus both
// direct dependencies, and the visited set prevents re-expanding shared
// sub-deps.
func TestFindZlibWithTwoDependencies(t *testing.T) {
	reader := &fakePortReader{
		portDirs: map[string][]string{
			"/vcpkg": {"zlib", "vcpkg-cmake", "vcpkg-cmake-config"},
		},
		files: map[string]string{
			"/vcpkg/zlib/CONTROL":              "Source: zlib\nBuild-Depends: vcpkg-cmake, vcpkg-cmake-config\n",
			"/vcpkg/vcpkg-cmake/CONTROL":        "Source: vcpkg-cmake\nBuild-Depends: vcpkg-cmake-config\n",
			"/vcpkg/vcpkg-cmake-config/CONTROL": "Source: vcpkg-cmake-config\n",
		},
	}
	cat, err := BuildCatalog(context.Background(), reader, "/vcpkg")
	if err != nil {
		t.Fatalf("BuildCatalog: %v", err)
	}
	if len(cat.Ports) != 3 {
		t.Fatalf("got %d ports, want 3", len(cat.Ports))
	}

	direct, err := cat.DirectDependencies("zlib")
	if err != nil {
		t.Fatalf("DirectDependencies: %v", err)
	}
	sort.Strings(direct)
	if len(direct) != 2 || direct[0] != "vcpkg-cmake" || direct[1] != "vcpkg-cmake-config" {
		t.Errorf("got %v", direct)
	}

	resolved, err := cat.Find("zlib")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	// zlib, vcpkg-cmake, vcpkg-cmake-config; vcpkg-cmake-config must not
	// appear twice even though both zlib and vcpkg-cmake depend on it.
	if len(resolved) != 3 {
		t.Fatalf("got %v, want 3 entries with no duplicate of the shared dep", resolved)
	}
}

func TestFindUnknownPort(t *testing.T) {
	cat := &Catalog{Ports: map[string]*PortNode{}}
	if _, err := cat.Find("missing"); err == nil {
		t.Error("expected an error for an unknown port")
	}
}

func TestOrphanedArchives(t *testing.T) {
	installed := []InstalledPackage{{ABI: "abc123"}}
	orphans := OrphanedArchives(installed, []string{"abc123", "def456"})
	if len(orphans) != 1 || orphans[0] != "def456" {
		t.Errorf("got %v", orphans)
	}
}

func TestArchivePath(t *testing.T) {
	got := ArchivePath(`C:\cache`, "abcdef123")
	want := `C:\cache\ab\abcdef123.zip`
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestSortByVersionSemver(t *testing.T) {
	packages := []InstalledPackage{
		{Name: "zlib", Version: "1.2.11"},
		{Name: "zlib", Version: "1.3.0"},
		{Name: "fmt", Version: "9.1.0"},
	}
	SortByVersion(packages)
	if packages[0].Name != "fmt" {
		t.Fatalf("got %+v, want fmt sorted before zlib", packages)
	}
	if packages[1].Version != "1.3.0" || packages[2].Version != "1.2.11" {
		t.Errorf("got %+v, want 1.3.0 before 1.2.11 within zlib", packages[1:])
	}
}

func TestSortByVersionNonSemverFallsBackToStringSort(t *testing.T) {
	packages := []InstalledPackage{
		{Name: "p", Version: "2021-09-01"},
		{Name: "p", Version: "2022-01-01"},
	}
	SortByVersion(packages)
	if packages[0].Version != "2022-01-01" {
		t.Errorf("got %+v, want the lexicographically larger date first", packages)
	}
}

func TestBinaryCacheRootPrecedence(t *testing.T) {
	env := map[string]string{"LOCALAPPDATA": `C:\Users\me\AppData\Local`, "APPDATA": `C:\Users\me\AppData\Roaming`}
	lookup := func(name string) (string, bool) { v, ok := env[name]; return v, ok }
	root, ok := BinaryCacheRoot(lookup)
	if !ok || root != `C:\Users\me\AppData\Local\vcpkg\archives` {
		t.Errorf("got %q, %v", root, ok)
	}
}
