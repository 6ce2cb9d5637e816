package compiler

import "strings"

// ProbeBorland implements spec.md §4.6's Borland rule: read the compiler's
// .cfg file alongside the executable. Lines starting with "-isystem @\..\"
// or "-L@\..\" resolve relative to the compiler root; lines starting with
// "-I" or "-L" are split on ";" and treated as an embedded path variable.
func ProbeBorland(opts ProbeOptions, variant string) (Toolchain, []string, []string, error) {
	exeName := variant + ".exe"
	path, ok := opts.Resolver.Resolve(exeName)
	if !ok {
		return Toolchain{}, nil, nil, nil
	}
	tc := Toolchain{ShortName: exeName, FullPath: path, Kind: Borland}

	cfgPath := exeDir(path) + variant + ".cfg"
	lines, err := opts.readFile(cfgPath)
	if err != nil {
		// A missing .cfg means an empty, but not erroneous, result
		// (spec.md §7: probe failures are warnings, not fatal errors).
		return tc, nil, nil, nil
	}

	root := parentDir(exeDir(path)) + `\`
	var includes, libs []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, `-isystem @\..\`):
			includes = append(includes, root+strings.TrimPrefix(trimmed, `-isystem @\..\`))
		case strings.HasPrefix(trimmed, `-L@\..\`):
			libs = append(libs, root+strings.TrimPrefix(trimmed, `-L@\..\`))
		case strings.HasPrefix(trimmed, "-I"):
			for _, p := range strings.Split(strings.TrimPrefix(trimmed, "-I"), ";") {
				if p != "" {
					includes = append(includes, p)
				}
			}
		case strings.HasPrefix(trimmed, "-L"):
			for _, p := range strings.Split(strings.TrimPrefix(trimmed, "-L"), ";") {
				if p != "" {
					libs = append(libs, p)
				}
			}
		}
	}
	return tc, dedupNormalized(includes), dedupNormalized(libs), nil
}

func exeDir(path string) string {
	if idx := strings.LastIndexByte(path, '\\'); idx >= 0 {
		return path[:idx+1]
	}
	return ""
}

func parentDir(dirWithTrailingSlash string) string {
	trimmed := strings.TrimRight(dirWithTrailingSlash, `\`)
	if idx := strings.LastIndexByte(trimmed, '\\'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// ProbeWatcom implements spec.md §4.6's Watcom rule: no spawn, directories
// are fixed expansions of %WATCOM% and %NT_INCLUDE%.
func ProbeWatcom(opts ProbeOptions, variant string) (Toolchain, []string, []string) {
	exeName := variant + ".exe"
	path, ok := opts.Resolver.Resolve(exeName)
	if !ok {
		return Toolchain{}, nil, nil
	}
	tc := Toolchain{ShortName: exeName, FullPath: path, Kind: Watcom}

	watcom, _ := opts.lookupEnv("WATCOM")
	ntInclude, hasNT := opts.lookupEnv("NT_INCLUDE")

	var includes []string
	if watcom != "" {
		includes = append(includes, watcom+`\h`, watcom+`\h\nt`, watcom+`\lh`)
	}
	if hasNT && ntInclude != "" {
		includes = append(includes, ntInclude)
	}

	var libs []string
	if watcom != "" {
		libs = append(libs, watcom+`\lib386`, watcom+`\lib386\nt`, watcom+`\lib386\linux`)
	}
	return tc, includes, libs
}

// ProbeMSVC implements spec.md §4.6's MSVC rule: resolve cl.exe on PATH
// and consume the process INCLUDE/LIB variables verbatim (their
// directory-list splitting is the caller's dirlist.Split job, same as any
// other ';'-joined variable).
func ProbeMSVC(opts ProbeOptions) (Toolchain, string, string) {
	path, ok := opts.Resolver.Resolve("cl.exe")
	if !ok {
		return Toolchain{}, "", ""
	}
	tc := Toolchain{ShortName: "cl.exe", FullPath: path, Kind: MSVC}
	include, _ := opts.lookupEnv("INCLUDE")
	lib, _ := opts.lookupEnv("LIB")
	return tc, include, lib
}
