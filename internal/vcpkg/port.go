// Package vcpkg implements the VCPKG catalog (C7, spec.md §4.7): port
// manifest parsing (CONTROL, vcpkg.json, portfile.cmake), the
// installed-status index, the dependency graph, and binary-archive orphan
// detection.
package vcpkg

import "strings"

// Qualifier is one token from the closed platform-qualifier set spec.md §3
// names for PortNode.
type Qualifier int

const (
	QWindows Qualifier = iota
	QUWP
	QLinux
	QOSX
	QAndroid
	QX86
	QX64
	QArm
	QStatic
)

var qualifierNames = map[string]Qualifier{
	"windows": QWindows,
	"uwp":     QUWP,
	"linux":   QLinux,
	"osx":     QOSX,
	"android": QAndroid,
	"x86":     QX86,
	"x64":     QX64,
	"arm":     QArm,
	"static":  QStatic,
}

// Dependency is one Build-Depends entry: a package name plus an optional
// platform-qualifier expression gating when it applies (spec.md §4.7). A
// nil Expr means the dependency always applies.
type Dependency struct {
	Name string
	Expr *QualifierExpr
}

// PortNode is one catalog entry (spec.md §3).
type PortNode struct {
	Name        string
	Version     string
	Homepage    string
	Description string

	HasCONTROL  bool
	HasJSON     bool
	HasPortfile bool

	// SupportedPlatforms is the parsed "Supports" expression (spec.md §4.7
	// Supports field); nil means unconstrained.
	SupportedPlatforms *QualifierExpr

	Dependencies []Dependency
	Features     []string
}

// parseDependencyList splits a comma-separated Build-Depends value into
// Dependency entries, extracting each entry's optional "(qualifier_expr)"
// suffix (spec.md §4.7 point 2).
func parseDependencyList(value string) []Dependency {
	var deps []Dependency
	for _, raw := range splitTopLevelComma(value) {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		name := entry
		var expr string
		if idx := strings.IndexByte(entry, '('); idx >= 0 && strings.HasSuffix(entry, ")") {
			name = strings.TrimSpace(entry[:idx])
			expr = entry[idx+1 : len(entry)-1]
		}
		dep := Dependency{Name: name}
		if expr != "" {
			if e, err := ParseQualifierExpr(expr); err == nil {
				dep.Expr = e
			}
		}
		deps = append(deps, dep)
	}
	return deps
}

// splitTopLevelComma splits on commas that are not nested inside
// parentheses, since a qualifier expression like "(windows & !static)" may
// itself be comma-adjacent to sibling dependencies.
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func splitFeatureList(value string) []string {
	var out []string
	for _, f := range strings.Split(value, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
