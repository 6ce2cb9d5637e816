package vcpkg

import (
	"context"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/gvanem/envtool/internal/cache"
)

// PortReader is the filesystem abstraction this package needs to discover
// and read port manifests, injected so Catalog construction is testable
// without a real VCPKG checkout (spec.md §10).
type PortReader interface {
	// ListPortDirs returns the immediate sub-directory names of
	// <root>/ports.
	ListPortDirs(root string) ([]string, error)
	// ReadPortFile reads one of CONTROL, vcpkg.json, portfile.cmake under
	// <root>/ports/<name>/, returning ("", false) if absent.
	ReadPortFile(root, name, filename string) (string, bool)
	// ReadInstalledStatus reads <root>/installed/vcpkg/status.
	ReadInstalledStatus(root string) (string, bool)
	// ReadInfoList reads <root>/installed/vcpkg/info/<pkg>_<ver>_<arch>.list.
	ReadInfoList(root, pkg, version, arch string) (string, bool)
}

// Catalog is the in-memory VCPKG catalog C7 exposes to the search driver
// and reporter.
type Catalog struct {
	Root      string
	Ports     map[string]*PortNode // keyed by package name
	Installed []InstalledPackage
}

// scanPort reads one port directory's manifest files into a PortNode,
// grounded on spec.md §4.7 points 1-4.
func scanPort(reader PortReader, root, name string) *PortNode {
	if text, ok := reader.ReadPortFile(root, name, "CONTROL"); ok {
		node := ParseCONTROL(text)
		node.Name = name
		fillPortfileHomepage(reader, root, name, &node)
		return &node
	}
	if text, ok := reader.ReadPortFile(root, name, "vcpkg.json"); ok {
		node, err := ParseVcpkgJSON([]byte(text))
		if err != nil {
			// Debug-level trace in the real CLI (spec.md §7); here the
			// port is recorded minimally filled, matching the documented
			// degraded behavior.
			node = PortNode{HasJSON: true, Name: name}
			return &node
		}
		node.Name = name
		fillPortfileHomepage(reader, root, name, &node)
		return &node
	}
	node := PortNode{Name: name}
	if _, ok := reader.ReadPortFile(root, name, "portfile.cmake"); ok {
		node.HasPortfile = true
	}
	return &node
}

func fillPortfileHomepage(reader PortReader, root, name string, node *PortNode) {
	portfile, ok := reader.ReadPortFile(root, name, "portfile.cmake")
	if !ok {
		return
	}
	node.HasPortfile = true
	if node.Homepage == "" {
		if homepage, ok := ExtractGitHubHomepage(portfile); ok {
			node.Homepage = homepage
		}
	}
}

// BuildCatalog discovers every port under root and parses its manifest,
// fanning the per-port parse out across a bounded worker pool (spec.md
// §4.7 "Addition": port scanning is leaf-level, independent CPU work, so a
// golang.org/x/sync/errgroup pool capped at runtime.NumCPU() parses ports
// concurrently — unlike the single-threaded *probe* sequencing contract
// the rest of the driver follows).
func BuildCatalog(ctx context.Context, reader PortReader, root string) (*Catalog, error) {
	names, err := reader.ListPortDirs(root)
	if err != nil {
		return nil, xerrors.Errorf("vcpkg: list ports under %s: %w", root, err)
	}

	nodes := make([]*PortNode, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			nodes[i] = scanPort(reader, root, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ports := make(map[string]*PortNode, len(names))
	for i, name := range names {
		ports[name] = nodes[i]
	}

	cat := &Catalog{Root: root, Ports: ports}
	if statusText, ok := reader.ReadInstalledStatus(root); ok {
		installed := ParseInstalledStatus(statusText)
		for i := range installed {
			if listText, ok := reader.ReadInfoList(root, installed[i].Name, installed[i].Version, installed[i].Triplet); ok {
				installed[i].Files = ParseInfoList(installed[i].Triplet, listText)
			}
		}
		SortByVersion(installed)
		cat.Installed = installed
	}
	return cat, nil
}

// Find returns the transitive closure of pkg's Build-Depends, grounded on
// the teacher's resolve1/Resolve (internal/build/resolve.go): a per-query
// visited set makes the walk cycle-safe and prevents re-expanding shared
// sub-dependencies (spec.md testable property 4, scenario S3).
func (c *Catalog) Find(pkg string) ([]string, error) {
	seen := map[string]bool{pkg: true}
	return c.find1(pkg, seen)
}

func (c *Catalog) find1(pkg string, seen map[string]bool) ([]string, error) {
	node, ok := c.Ports[pkg]
	if !ok {
		return nil, xerrors.Errorf("vcpkg: no such port %q", pkg)
	}
	resolved := []string{pkg}
	for _, dep := range node.Dependencies {
		if seen[dep.Name] {
			continue
		}
		seen[dep.Name] = true
		sub, err := c.find1(dep.Name, seen)
		if err != nil {
			continue // an unresolvable transitive dep degrades gracefully
		}
		resolved = append(resolved, sub...)
	}
	return resolved, nil
}

// DirectDependencies returns pkg's immediate Build-Depends names, without
// recursing — the "non-verbose printing lists the two dependencies once"
// behavior of scenario S3.
func (c *Catalog) DirectDependencies(pkg string) ([]string, error) {
	node, ok := c.Ports[pkg]
	if !ok {
		return nil, xerrors.Errorf("vcpkg: no such port %q", pkg)
	}
	names := make([]string, len(node.Dependencies))
	for i, d := range node.Dependencies {
		names[i] = d.Name
	}
	return names, nil
}

// BinaryCacheRoot resolves the archive cache root, first-present among
// VCPKG_DEFAULT_BINARY_CACHE, %LOCALAPPDATA%\vcpkg\archives,
// %APPDATA%\vcpkg\archives (spec.md §4.7 "Binary-archive introspection").
func BinaryCacheRoot(env func(string) (string, bool)) (string, bool) {
	if v, ok := env("VCPKG_DEFAULT_BINARY_CACHE"); ok && v != "" {
		return v, true
	}
	if v, ok := env("LOCALAPPDATA"); ok && v != "" {
		return v + `\vcpkg\archives`, true
	}
	if v, ok := env("APPDATA"); ok && v != "" {
		return v + `\vcpkg\archives`, true
	}
	return "", false
}

// ArchivePath computes the archive path for an ABI hash: <cache_root>\XX\<ABI>.zip
// where XX is the ABI's first two characters (spec.md §4.7).
func ArchivePath(cacheRoot, abi string) string {
	if len(abi) < 2 {
		return cacheRoot + `\` + abi + `.zip`
	}
	return cacheRoot + `\` + abi[:2] + `\` + abi + `.zip`
}

// OrphanedArchives reports which of archiveABIs (the ABI hash of each zip
// file found under the cache root) belongs to no installed package
// (spec.md §4.7: "A zip whose ABI belongs to no installed package is
// reported as orphaned").
func OrphanedArchives(installed []InstalledPackage, archiveABIs []string) []string {
	known := map[string]bool{}
	for _, p := range installed {
		known[strings.ToLower(p.ABI)] = true
	}
	var orphans []string
	for _, abi := range archiveABIs {
		if !known[strings.ToLower(abi)] {
			orphans = append(orphans, abi)
		}
	}
	return orphans
}

// cacheSection stores and loads the ports_list record in the cache's
// "vcpkg" section, mirroring the teacher's cmake cache section pattern.
// Only ports_list is covered: per-port dependency and feature arrays and
// the available/installed views are not written to the cache, and
// BuildCatalog does not use this section.
type cacheSection struct{ c *cache.Cache }

func newCacheSection(c *cache.Cache) cacheSection { return cacheSection{c: c} }

func (s cacheSection) storePortsList(names []string) {
	if s.c == nil {
		return
	}
	s.c.Put("vcpkg", "ports_list = %s", strings.Join(names, "|"))
}

func (s cacheSection) loadPortsList() ([]string, bool) {
	if s.c == nil {
		return nil, false
	}
	var joined string
	n, err := s.c.Get("vcpkg", "ports_list = %s", &joined)
	if err != nil || n != 1 {
		return nil, false
	}
	if joined == "" {
		return nil, false
	}
	return strings.Split(joined, "|"), true
}
