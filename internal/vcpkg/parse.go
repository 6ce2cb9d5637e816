package vcpkg

import (
	"bufio"
	"encoding/json"
	"regexp"
	"strings"
)

// ParseCONTROL parses a CONTROL-format port manifest (spec.md §4.7 point
// 2): RFC-822-style "Field: value" lines, with continuation lines
// indented by at least one space belonging to the previous field.
func ParseCONTROL(text string) PortNode {
	fields := parseRFC822Fields(text)
	node := PortNode{HasCONTROL: true}
	node.Name = fields["Package"]
	node.Version = fields["Version"]
	node.Homepage = fields["Homepage"]
	node.Description = fields["Description"]
	if deps := fields["Build-Depends"]; deps != "" {
		node.Dependencies = parseDependencyList(deps)
	}
	if feats := fields["Default-Features"]; feats != "" {
		node.Features = splitFeatureList(feats)
	}
	if supports := fields["Supports"]; supports != "" {
		if e, err := ParseQualifierExpr(supports); err == nil {
			node.SupportedPlatforms = e
		}
	}
	return node
}

func parseRFC822Fields(text string) map[string]string {
	fields := map[string]string{}
	var currentKey string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && currentKey != "" {
			fields[currentKey] += " " + strings.TrimSpace(line)
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
		currentKey = key
	}
	return fields
}

// vcpkgJSON mirrors the subset of vcpkg.json's schema spec.md §4.7 point 3
// requires.
type vcpkgJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	VersionDate     string            `json:"version-date"`
	Homepage        string            `json:"homepage"`
	Description     json.RawMessage   `json:"description"`
	Dependencies    []json.RawMessage `json:"dependencies"`
	DefaultFeatures []string          `json:"default-features"`
	Supports        string            `json:"supports"`
}

// ParseVcpkgJSON parses a vcpkg.json manifest (spec.md §4.7 point 3):
// "Descriptions given as an array are joined with spaces."
func ParseVcpkgJSON(data []byte) (PortNode, error) {
	var raw vcpkgJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return PortNode{}, err
	}
	node := PortNode{HasJSON: true}
	node.Name = raw.Name
	node.Version = raw.Version
	if node.Version == "" {
		node.Version = raw.VersionDate
	}
	node.Homepage = raw.Homepage
	node.Description = joinJSONDescription(raw.Description)
	node.Features = raw.DefaultFeatures
	if raw.Supports != "" {
		if e, err := ParseQualifierExpr(raw.Supports); err == nil {
			node.SupportedPlatforms = e
		}
	}
	for _, rawDep := range raw.Dependencies {
		node.Dependencies = append(node.Dependencies, parseJSONDependency(rawDep))
	}
	return node, nil
}

func joinJSONDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return strings.Join(asArray, " ")
	}
	return ""
}

// parseJSONDependency handles both the bare-string and the
// {"name":..., "platform":...} object forms vcpkg.json allows.
func parseJSONDependency(raw json.RawMessage) Dependency {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return Dependency{Name: asString}
	}
	var asObject struct {
		Name     string `json:"name"`
		Platform string `json:"platform"`
	}
	if err := json.Unmarshal(raw, &asObject); err == nil {
		dep := Dependency{Name: asObject.Name}
		if asObject.Platform != "" {
			if e, err := ParseQualifierExpr(asObject.Platform); err == nil {
				dep.Expr = e
			}
		}
		return dep
	}
	return Dependency{}
}

var githubRepoRe = regexp.MustCompile(`vcpkg_from_github\s*\(([^)]*)\)`)
var repoFieldRe = regexp.MustCompile(`REPO\s+([^\s)]+)`)

// ExtractGitHubHomepage implements spec.md §4.7 point 4: when no homepage
// is set, synthesize one from a portfile.cmake's
// vcpkg_from_github( ... REPO "org/name" ... ) call.
func ExtractGitHubHomepage(portfileText string) (string, bool) {
	m := githubRepoRe.FindStringSubmatch(portfileText)
	if m == nil {
		return "", false
	}
	repoMatch := repoFieldRe.FindStringSubmatch(m[1])
	if repoMatch == nil {
		return "", false
	}
	repo := strings.Trim(repoMatch[1], `"`)
	return "https://github.com/" + repo, true
}
