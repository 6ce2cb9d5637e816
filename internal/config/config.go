// Package config implements the ambient configuration layer (spec.md §6,
// §7): the `%APPDATA%\envtool.cfg` file and `ENVTOOL_OPTIONS` argument
// splicing. The file format mirrors internal/cache's own hand-rolled
// section scanner rather than a third-party INI library, because this
// format allows a key to repeat within a section (one line per ignored
// pattern) which the common Go INI libraries model as last-value-wins,
// not an accumulating list — the one property this file actually needs.
package config

import (
	"bufio"
	"os"
	"strings"
)

// entry is one "key = value" line, order-preserving within its section so
// a repeated key (e.g. multiple "ignore = " lines) keeps every value.
type entry struct {
	key   string
	value string
}

// Config is the parsed contents of envtool.cfg (spec.md §7): sections
// [Compiler], [Registry], [Python], [PE-resources], [EveryThing],
// [Login], plus un-sectioned beep.*/ETP.* keys stored under the empty
// section name.
type Config struct {
	sections map[string][]entry
}

// Load reads path, if it exists. A missing or unreadable file degrades to
// an empty Config (spec.md §7: "Failures to read are non-fatal", the same
// policy internal/cache.Open follows).
func Load(path string) *Config {
	c := &Config{sections: map[string][]entry{}}
	f, err := os.Open(path)
	if err != nil {
		return c
	}
	defer f.Close()

	var section string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		c.sections[section] = append(c.sections[section], entry{key: key, value: value})
	}
	return c
}

// Get returns the last value stored under (section, key), and whether it
// was present at all.
func (c *Config) Get(section, key string) (string, bool) {
	var value string
	found := false
	for _, e := range c.sections[section] {
		if e.key == key {
			value = e.value
			found = true
		}
	}
	return value, found
}

// GetAll returns every value stored under (section, key), in file order —
// the accessor the `[Compiler]`/`[Registry]`/etc. ignore lists use (spec.md
// §9 "Configuration-driven ignore lists").
func (c *Config) GetAll(section, key string) []string {
	var values []string
	for _, e := range c.sections[section] {
		if e.key == key {
			values = append(values, e.value)
		}
	}
	return values
}

// IgnoreList returns every "ignore = " value configured for section
// (one of Compiler, Registry, Python, PE-resources, EveryThing), matching
// spec.md §4.6/§9's ignore-list lookups.
func (c *Config) IgnoreList(section string) []string {
	return c.GetAll(section, "ignore")
}

// SpliceEnvtoolOptions implements spec.md §6's "ENVTOOL_OPTIONS
// (auto-applied before the command line)": the value is split the same
// way a shell would split a single word list (whitespace-separated,
// double-quoted segments kept intact) and prepended to argv, the same
// splicing point the teacher's cmd/distri verb dispatch uses for
// environment-sourced defaults.
func SpliceEnvtoolOptions(argv []string, envValue string) []string {
	extra := splitShellWords(envValue)
	if len(extra) == 0 {
		return argv
	}
	out := make([]string, 0, len(extra)+len(argv))
	out = append(out, extra...)
	out = append(out, argv...)
	return out
}

func splitShellWords(s string) []string {
	var words []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
