// Command envtool is the CLI entrypoint (spec.md §6): it parses flags,
// splices ENVTOOL_OPTIONS ahead of the command line the same way the
// teacher's cmd/distri verb dispatch applies environment-sourced
// defaults, then wires the collaborator packages together for one run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gvanem/envtool/internal/cache"
	"github.com/gvanem/envtool/internal/cleanup"
	"github.com/gvanem/envtool/internal/compiler"
	"github.com/gvanem/envtool/internal/config"
	"github.com/gvanem/envtool/internal/external"
	"github.com/gvanem/envtool/internal/haltflag"
	"github.com/gvanem/envtool/internal/registry"
	"github.com/gvanem/envtool/internal/report"
	"github.com/gvanem/envtool/internal/search"
	"github.com/gvanem/envtool/internal/vcpkg"
)

var (
	modePath    = flag.Bool("path", false, "search PATH")
	modeLib     = flag.Bool("lib", false, "search LIB and LIBRARY_PATH")
	modeInclude = flag.Bool("include", false, "search INCLUDE, C_INCLUDE_PATH, CPLUS_INCLUDE_PATH")
	modeMan     = flag.Bool("man", false, "search MANPATH")
	modeCmake   = flag.Bool("cmake", false, "search CMAKE_MODULE_PATH and the Kitware/CMake package registry")
	modePkg     = flag.Bool("pkg", false, "search PKG_CONFIG_PATH for .pc files")
	modeVcpkg   = flag.String("vcpkg", "", "search the VCPKG catalog for a package name (use -vcpkg=all to list every port)")
	modeCheck   = flag.Bool("check", false, "diagnostic-only mode; must be used alone")

	caseSensitive = flag.Bool("c", false, "case-sensitive matching")
	useRegex      = flag.Bool("r", false, "treat the pattern as a regular expression")
	dirsOnly      = flag.Bool("D", false, "directories only")
	bits64        = flag.Bool("64", false, "select -m64 in the GNU compiler probe options; VCPKG results are not filtered")
	bits32        = flag.Bool("32", false, "override -64 in the GNU compiler probe options; VCPKG results are not filtered")
	decimal       = flag.Bool("T", false, "decimal (not human-scaled) sizes/times")
	unixSlash     = flag.Bool("u", false, "print Unix-style path separators")
	quiet         = flag.Bool("q", false, "suppress warnings")

	noGCC    = flag.Bool("no-gcc", false, "skip the GNU gcc probe")
	noGXX    = flag.Bool("no-g++", false, "skip the GNU g++ probe")
	noPrefix = flag.Bool("no-prefix", false, "skip prefixed GNU gcc/g++ variants")
	noClang  = flag.Bool("no-clang", false, "skip the Clang probe")
	noBCC    = flag.Bool("no-borland", false, "skip the Borland probe")
	noWatcom = flag.Bool("no-watcom", false, "skip the Watcom probe")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	argv := config.SpliceEnvtoolOptions(os.Args[1:], os.Getenv("ENVTOOL_OPTIONS"))
	flag.CommandLine.Parse(argv)
	args := flag.Args()

	if *modeCheck {
		if len(args) != 0 || anyModeSet() {
			return fmt.Errorf("--check must be used alone")
		}
		return runCheck()
	}

	if !anyModeSet() {
		return fmt.Errorf("at least one mode flag is required (--path, --lib, --include, --man, --cmake, --pkg, --vcpkg)")
	}
	if len(args) != 1 && *modeVcpkg == "" {
		return fmt.Errorf("exactly one pattern is required")
	}

	stop := haltflag.Watch()
	defer stop()

	cachePath := filepath.Join(envOr("TEMP", os.TempDir()), "envtool.cache")
	c := cache.Open(cachePath)
	cleanup.Register(c.Flush)
	defer runCleanup()

	cfgPath := filepath.Join(envOr("APPDATA", "."), "envtool.cfg")
	cfg := config.Load(cfgPath)

	ctx := context.Background()
	out := report.NewWriter(os.Stdout, int(os.Stdout.Fd()), *decimal, *unixSlash)

	var total int
	var err error
	switch {
	case *modePath:
		total, err = searchMode(ctx, out, args[0])
	case *modeLib:
		total, err = searchEnvList(ctx, out, args[0], []string{"LIB", "LIBRARY_PATH"})
	case *modeInclude:
		total, err = searchEnvList(ctx, out, args[0], []string{"INCLUDE", "C_INCLUDE_PATH", "CPLUS_INCLUDE_PATH"})
	case *modeMan:
		total, err = manMode(ctx, out, args[0])
	case *modeCmake:
		total, err = cmakeMode(ctx, out, args[0])
	case *modePkg:
		total, err = pkgMode(ctx, out, args[0])
	case *modeVcpkg != "":
		total, err = vcpkgMode(ctx, out)
	}
	if err != nil {
		return err
	}

	runCompilerProbes(ctx, cfg, c)

	out.Summary()
	if total == 0 {
		os.Exit(1)
	}
	return nil
}

func anyModeSet() bool {
	return *modePath || *modeLib || *modeInclude || *modeMan || *modeCmake || *modePkg || *modeVcpkg != ""
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}

func runCleanup() {
	if haltflag.SkipCleanup() {
		return
	}
	if err := cleanup.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "warning: cleanup:", err)
	}
}

func newDriver(out *report.Writer, pattern string, ext search.ExtensionDefault) (*search.Driver, error) {
	var matcher external.Matcher
	var err error
	globMode := !*useRegex
	if globMode {
		matcher, err = search.CompileGlob(search.AppendDefaultExtension(pattern, ext), *caseSensitive)
	} else {
		matcher, err = search.CompileRegex(pattern, *caseSensitive)
	}
	if err != nil {
		return nil, err
	}
	cwd, _ := os.Getwd()
	return &search.Driver{
		Pattern:         pattern,
		GlobMode:        globMode,
		Matcher:         matcher,
		Walker:          external.OSDirWalker{},
		Out:             out,
		CaseSensitive:   *caseSensitive,
		DirectoriesOnly: *dirsOnly,
		CWD:             cwd,
	}, nil
}

func searchMode(ctx context.Context, out *report.Writer, pattern string) (int, error) {
	d, err := newDriver(out, pattern, search.ExtDefault)
	if err != nil {
		return 0, err
	}
	n, err := d.CheckEnv(ctx, "PATH", report.SourceEnvDefault)
	if err != nil {
		printWarnings(d.Warnings)
		return n, err
	}

	regN, err := searchAppPaths(d)
	if err != nil && !*quiet {
		fmt.Fprintln(os.Stderr, "warning: registry App Paths:", err)
	}
	n += regN

	printWarnings(d.Warnings)
	for _, name := range search.ConsolidateShadowing(d.Hits) {
		out.ReportShadowAdvisory(name)
	}
	return n, nil
}

// searchAppPaths enumerates HKCU then HKLM App Paths (C4, spec.md §4.4) and
// reports every resolved entry matching the driver's pattern, tagged by
// hive so ConsolidateShadowing can later flag a name also found on PATH.
func searchAppPaths(d *search.Driver) (int, error) {
	reader := registry.WindowsReader{}
	hives := []struct {
		hive   registry.Hive
		source report.SourceKind
	}{
		{registry.HKCU, report.SourceEnvCurrentUser},
		{registry.HKLM, report.SourceEnvLocalMachine},
	}

	total := 0
	for _, h := range hives {
		records, err := reader.EnumerateAppPaths(h.hive, *caseSensitive)
		if err != nil {
			return total, err
		}
		registry.Resolve(records, statAppPath)
		for _, rec := range records {
			if !rec.Exists || !d.Matches(rec.FriendlyName) {
				continue
			}
			path := rec.Filename
			if rec.Directory != "" {
				path = strings.TrimRight(rec.Directory, `\`) + `\` + rec.Filename
			}
			d.ReportHit(report.Hit{
				Path:    path,
				ModTime: rec.ModTime,
				Size:    rec.Size,
				Source:  h.source,
			})
			total++
		}
	}
	return total, nil
}

func statAppPath(path string) (exists bool, size int64, modTime time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, time.Time{}
	}
	return true, info.Size(), info.ModTime()
}

func searchEnvList(ctx context.Context, out *report.Writer, pattern string, envNames []string) (int, error) {
	d, err := newDriver(out, pattern, search.ExtDefault)
	if err != nil {
		return 0, err
	}
	d.LibrarySearchMode = true
	total := 0
	for _, name := range envNames {
		n, err := d.CheckEnv(ctx, name, report.SourceIncludeOrLib)
		if err != nil {
			return total, err
		}
		total += n
	}
	printWarnings(d.Warnings)
	return total, nil
}

func manMode(ctx context.Context, out *report.Writer, pattern string) (int, error) {
	d, err := newDriver(out, pattern, search.ExtDefault)
	if err != nil {
		return 0, err
	}
	n, err := d.ManModeWalk(ctx, "MANPATH")
	printWarnings(d.Warnings)
	return n, err
}

// cmakeMode searches CMAKE_MODULE_PATH (spec.md §4.4/§4.5) and, since a
// CMake config-mode package install is registered there too, the Kitware
// package registry under both hives.
func cmakeMode(ctx context.Context, out *report.Writer, pattern string) (int, error) {
	d, err := newDriver(out, pattern, search.ExtDefault)
	if err != nil {
		return 0, err
	}
	n, err := d.CheckEnv(ctx, "CMAKE_MODULE_PATH", report.SourceCMakeModule)
	if err != nil {
		printWarnings(d.Warnings)
		return n, err
	}

	regN, err := searchKitwarePackages(d)
	if err != nil && !*quiet {
		fmt.Fprintln(os.Stderr, "warning: registry Kitware packages:", err)
	}
	n += regN

	printWarnings(d.Warnings)
	return n, nil
}

// searchKitwarePackages enumerates Software\Kitware\CMake\Packages under
// both hives and reports every package name matching the driver's pattern
// (spec.md §4.4's enumerate_kitware_packages).
func searchKitwarePackages(d *search.Driver) (int, error) {
	reader := registry.WindowsReader{}
	total := 0
	for _, hive := range []registry.Hive{registry.HKCU, registry.HKLM} {
		pkgs, err := reader.EnumerateKitwarePackages(hive)
		if err != nil {
			return total, err
		}
		for _, p := range pkgs {
			if !d.Matches(p.Package) {
				continue
			}
			var modTime time.Time
			var size int64
			if info, err := os.Stat(p.Path); err == nil {
				modTime = info.ModTime()
				size = info.Size()
			}
			d.ReportHit(report.Hit{
				Path:    p.Path,
				ModTime: modTime,
				Size:    size,
				Source:  report.SourceCMakeRegistry,
			})
			total++
		}
	}
	return total, nil
}

// pkgMode searches PKG_CONFIG_PATH for .pc files (spec.md §4.4/§4.5): a
// pattern without an extension defaults to ".pc*" rather than ".*".
func pkgMode(ctx context.Context, out *report.Writer, pattern string) (int, error) {
	d, err := newDriver(out, pattern, search.ExtPkgConfig)
	if err != nil {
		return 0, err
	}
	n, err := d.CheckEnv(ctx, "PKG_CONFIG_PATH", report.SourcePkgConfig)
	printWarnings(d.Warnings)
	return n, err
}

// vcpkgMode builds the catalog from VCPKG_ROOT and reports either every
// port (-vcpkg=all) or the single port whose name equals the flag value.
// Each hit carries the port's homepage; its dependencies are not listed.
func vcpkgMode(ctx context.Context, out *report.Writer) (int, error) {
	root, ok := os.LookupEnv("VCPKG_ROOT")
	if !ok || root == "" {
		return 0, fmt.Errorf("--vcpkg requires VCPKG_ROOT to be set")
	}

	cat, err := vcpkg.BuildCatalog(ctx, vcpkg.FSPortReader{}, root)
	if err != nil {
		return 0, err
	}

	var names []string
	if *modeVcpkg == "all" {
		for name := range cat.Ports {
			names = append(names, name)
		}
	} else {
		if _, ok := cat.Ports[*modeVcpkg]; !ok {
			return 0, fmt.Errorf("--vcpkg: no such port %q", *modeVcpkg)
		}
		names = []string{*modeVcpkg}
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		node := cat.Ports[name]
		out.Report(report.Hit{
			Path:        name,
			Source:      report.SourceVCPKG,
			Description: node.Homepage,
		})
		total++
	}
	return total, nil
}

// runCompilerProbes runs the configured GNU probe and reports failures,
// memoizing results through c (spec.md §4.6); the resulting include/library
// directories are not yet threaded into the -include/-lib search driver
// (tracked in DESIGN.md as follow-up wiring).
func runCompilerProbes(ctx context.Context, cfg *config.Config, c *cache.Cache) {
	opts := compiler.ProbeOptions{
		Resolver:  pathResolver{},
		Runner:    processRunner{},
		Stat:      statMTime,
		ReadFile:  readFileLines,
		Env:       os.LookupEnv,
		DirExists: dirExists,
		Cache:     c,
		Want64Bit: *bits64 && !*bits32,
	}
	ignore := compiler.IgnoreOptions{
		NoKind: map[compiler.Kind]bool{
			compiler.GNUCC:   *noGCC,
			compiler.GNUCXX:  *noGXX,
			compiler.Clang:   *noClang,
			compiler.Borland: *noBCC,
			compiler.Watcom:  *noWatcom,
		},
		NoPrefix:   *noPrefix,
		IgnoreList: cfg.IgnoreList("Compiler"),
	}

	if ignore.NoKind[compiler.GNUCC] {
		return
	}
	toolchains, _, err := compiler.DetectGCCVariants(ctx, opts, false)
	if err != nil && !*quiet {
		fmt.Fprintln(os.Stderr, "warning: gcc probe:", err)
	}
	for _, tc := range toolchains {
		if compiler.ShouldIgnore(tc, ignore) {
			continue
		}
	}
}

func printWarnings(warnings []search.Warning) {
	if *quiet {
		return
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w.Text)
	}
}

func runCheck() error {
	fmt.Println("envtool: configuration and cache paths")
	fmt.Println("  cache:  ", filepath.Join(envOr("TEMP", os.TempDir()), "envtool.cache"))
	fmt.Println("  config: ", filepath.Join(envOr("APPDATA", "."), "envtool.cfg"))
	for _, name := range []string{"PATH", "LIB", "INCLUDE", "MANPATH", "VCPKG_ROOT"} {
		v, ok := os.LookupEnv(name)
		status := "unset"
		if ok {
			status = fmt.Sprintf("%d byte(s)", len(v))
		}
		fmt.Printf("  %-12s %s\n", name, status)
	}
	return nil
}

// pathResolver searches os.Getenv("PATH") for an executable, satisfying
// compiler.Resolver without depending on exec.LookPath's PATHEXT
// assumptions (this tool runs its search logic identically whether or not
// the host is actually Windows).
type pathResolver struct{}

func (pathResolver) Resolve(name string) (string, bool) {
	pathVar := os.Getenv("PATH")
	for _, dir := range strings.Split(pathVar, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := strings.TrimRight(dir, `\/`) + string(os.PathSeparator) + name
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func statMTime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readFileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// processRunner implements compiler.Runner the way the teacher's
// findShlibDeps (internal/build/shlibdeps.go) spawns an external tool:
// exec.CommandContext plus captured combined output, split into lines.
type processRunner struct{}

func (processRunner) Run(ctx context.Context, exe string, argv []string, stdin string) ([]string, error) {
	cmd := exec.CommandContext(ctx, exe, argv...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, err
		}
	}
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(string(output)))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, nil
}
