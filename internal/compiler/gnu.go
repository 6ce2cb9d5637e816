package compiler

import (
	"context"
	"strings"
)

const includeSearchStart = "#include <...> search starts here:"
const includeSearchEnd = "End of search list."
const libraryPathPrefix = "LIBRARY_PATH="

func kindFor(cxx bool) Kind {
	if cxx {
		return GNUCXX
	}
	return GNUCC
}

// DetectGCCVariants probes every built-in GNU prefix (spec.md §4.6) for
// either the C or the C++ compiler and returns the toolchains that
// resolved on PATH, each paired with its include-search DirList entries.
func DetectGCCVariants(ctx context.Context, opts ProbeOptions, cxx bool) ([]Toolchain, map[string][]string, error) {
	var toolchains []Toolchain
	dirsByName := map[string][]string{}

	for _, prefix := range builtinGCCPrefixes {
		name := prefixedName(prefix, kindFor(cxx))
		path, ok := opts.Resolver.Resolve(name)
		if !ok {
			continue
		}
		tc := Toolchain{ShortName: name, FullPath: path, Kind: kindFor(cxx)}
		dirs, err := probeGCCIncludes(ctx, opts, tc)
		if err != nil {
			return toolchains, dirsByName, err
		}
		toolchains = append(toolchains, tc)
		dirsByName[name] = dirs
	}
	return toolchains, dirsByName, nil
}

func probeGCCIncludes(ctx context.Context, opts ProbeOptions, tc Toolchain) ([]string, error) {
	section := opts.cacheSection()
	if mtime, ok := opts.statMTime(tc.FullPath); ok {
		if cached, ok := section.load(tc.Kind, tc.FullPath, mtime); ok {
			return cached, nil
		}
	}

	lines, err := opts.Runner.Run(ctx, tc.FullPath, []string{"-v", "-dM", "-xc", "-c", "-"}, "")
	if err != nil {
		return nil, err
	}

	dirs := extractIncludeSearchPaths(lines)
	if tc.Kind == GNUCXX {
		dirs = appendCXXSubdir(dirs, opts)
	}
	dirs = canonicalizeAll(dirs, opts)
	dirs = dedupNormalized(dirs)

	if mtime, ok := opts.statMTime(tc.FullPath); ok {
		section.store(tc.Kind, tc.FullPath, mtime, dirs)
	}
	return dirs, nil
}

// extractIncludeSearchPaths parses the region between
// "#include <...> search starts here:" and "End of search list." (spec.md
// §4.6): each non-blank line in between is a candidate include directory.
func extractIncludeSearchPaths(lines []string) []string {
	var dirs []string
	inRegion := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(trimmed, includeSearchStart):
			inRegion = true
		case strings.Contains(trimmed, includeSearchEnd):
			inRegion = false
		case inRegion && trimmed != "":
			dirs = append(dirs, trimmed)
		}
	}
	return dirs
}

// appendCXXSubdir implements spec.md §4.6's g++-only rule: "if any
// returned include directory has a c++ sub-directory, that sub-directory
// is appended."
func appendCXXSubdir(dirs []string, opts ProbeOptions) []string {
	out := append([]string(nil), dirs...)
	for _, d := range dirs {
		sub := strings.TrimRight(d, `\/`) + `\c++`
		if opts.dirExists(sub) {
			out = append(out, sub)
		}
	}
	return out
}

func canonicalizeAll(dirs []string, opts ProbeOptions) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = canonicalizeCygwinLine(d, opts.CygwinRoot, opts.Native)
	}
	return out
}

// ProbeGCCLibraryPath invokes tc again with the bitness-matching -m32/-m64
// flag and parses the LIBRARY_PATH= line (spec.md §4.6).
func ProbeGCCLibraryPath(ctx context.Context, opts ProbeOptions, tc Toolchain) ([]string, error) {
	bitnessFlag := "-m32"
	if opts.Want64Bit {
		bitnessFlag = "-m64"
	}
	lines, err := opts.Runner.Run(ctx, tc.FullPath, []string{bitnessFlag, "-v", "-dM", "-xc", "-c", "-"}, "")
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, libraryPathPrefix) {
			continue
		}
		value := strings.TrimPrefix(trimmed, libraryPathPrefix)
		for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ':' || r == ';' }) {
			if part == "" {
				continue
			}
			dirs = append(dirs, canonicalizeCygwinLine(part, opts.CygwinRoot, opts.Native))
		}
	}
	return dedupNormalized(dirs), nil
}

// ProbeClang runs `<clang> -print-search-dirs` and parses the
// "libraries: =..." line (spec.md §4.6).
func ProbeClang(ctx context.Context, opts ProbeOptions) (Toolchain, []string, error) {
	path, ok := opts.Resolver.Resolve("clang.exe")
	if !ok {
		return Toolchain{}, nil, nil
	}
	tc := Toolchain{ShortName: "clang.exe", FullPath: path, Kind: Clang}

	section := opts.cacheSection()
	if mtime, ok := opts.statMTime(path); ok {
		if cached, ok := section.load(Clang, path, mtime); ok {
			return tc, cached, nil
		}
	}

	lines, err := opts.Runner.Run(ctx, path, []string{"-print-search-dirs"}, "")
	if err != nil {
		return tc, nil, err
	}
	var dirs []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		const prefix = "libraries: ="
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		value := strings.TrimPrefix(trimmed, prefix)
		for _, part := range strings.Split(value, ";") {
			if part == "" {
				continue
			}
			// Each entry derives two library directories (spec.md §4.6):
			// <entry>\lib\windows and <entry>\..\.., both canonicalized.
			trimmedPart := strings.TrimRight(part, `\/`)
			dirs = append(dirs,
				canonicalizeCygwinLine(trimmedPart+`\lib\windows`, opts.CygwinRoot, opts.Native),
				canonicalizeCygwinLine(trimmedPart+`\..\..`, opts.CygwinRoot, opts.Native),
			)
		}
	}
	dirs = dedupNormalized(dirs)
	if mtime, ok := opts.statMTime(path); ok {
		section.store(Clang, path, mtime, dirs)
	}
	return tc, dirs, nil
}
