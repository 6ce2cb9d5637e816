// Package cache implements the section-partitioned key/value metadata
// cache (C3, spec.md §4.3): a textual file that memoizes expensive probes
// (compiler version, package lists, registry scans) across runs.
//
// A cache key is addressed by a "format template" such as
// "cmake_version = %d,%d,%d" — the part before " = " is the key, the part
// after is both the fmt.Sprintf template used by Put and the fmt.Sscanf
// template used by Get. The format doubling as the parse grammar is the
// whole point: there is exactly one place that knows how a value is
// spelled.
package cache

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/renameio"
	"golang.org/x/xerrors"
)

type record struct {
	key   string
	value string
}

// Cache is a process-wide singleton in the source this repository is
// grounded on (spec.md §9 Design Notes, "ad-hoc global state"); here it is
// an explicit value created by Open and persisted by Flush, so tests can
// create independent instances.
type Cache struct {
	mu       sync.Mutex
	path     string
	dirty    bool
	sections map[string][]record // preserves insertion order within a section
	order    []string            // section names, in first-seen order
}

// Open reads path, if it exists, into a new Cache. A missing or unreadable
// file degrades to an empty cache (spec.md §4.3, §7: "Failures to read are
// non-fatal").
func Open(path string) *Cache {
	c := &Cache{path: path, sections: map[string][]record{}}
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
			if _, ok := c.sections[section]; !ok {
				c.order = append(c.order, section)
				c.sections[section] = nil
			}
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 || section == "" {
			continue // malformed line; cache degrades gracefully
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		c.sections[section] = append(c.sections[section], record{key: key, value: value})
	}
	return c
}

// splitTemplate separates "key = format" into its key and format halves.
func splitTemplate(template string) (key, format string, err error) {
	idx := strings.Index(template, "=")
	if idx < 0 {
		return "", "", xerrors.Errorf("cache: malformed template %q (want \"key = format\")", template)
	}
	return strings.TrimSpace(template[:idx]), strings.TrimSpace(template[idx+1:]), nil
}

// Get decodes the value stored under template's key into out, using
// template's format half as the Sscanf grammar. It returns how many
// fields were decoded; a return less than len(out) means a miss (spec.md
// §4.3).
func (c *Cache) Get(section, template string, out ...interface{}) (int, error) {
	key, format, err := splitTemplate(template)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	value, ok := c.lookup(section, key)
	c.mu.Unlock()
	if !ok {
		return 0, nil
	}
	n, err := fmt.Sscanf(value, format, out...)
	if err != nil && n == 0 {
		return 0, nil
	}
	return n, nil
}

func (c *Cache) lookup(section, key string) (string, bool) {
	for _, r := range c.sections[section] {
		if r.key == key {
			return r.value, true
		}
	}
	return "", false
}

// Put installs or replaces the value stored under template's key, encoding
// in with template's format half via fmt.Sprintf.
func (c *Cache) Put(section, template string, in ...interface{}) error {
	key, format, err := splitTemplate(template)
	if err != nil {
		return err
	}
	value := fmt.Sprintf(format, in...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sections[section]; !ok {
		c.order = append(c.order, section)
	}
	recs := c.sections[section]
	for i, r := range recs {
		if r.key == key {
			recs[i].value = value
			c.sections[section] = recs
			c.dirty = true
			return nil
		}
	}
	c.sections[section] = append(recs, record{key: key, value: value})
	c.dirty = true
	return nil
}

// Del removes one record. Per spec.md testable property 5, a subsequent
// Get for that key must report a miss.
func (c *Cache) Del(section, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	recs := c.sections[section]
	for i, r := range recs {
		if r.key == key {
			c.sections[section] = append(recs[:i], recs[i+1:]...)
			c.dirty = true
			return
		}
	}
}

// Refresh implements the cache-coherency discipline of spec.md §4.3: the
// caller supplies the filename the cached record depends on; if that file
// no longer exists, Refresh deletes the stale key and the caller retries
// its probe. Refresh reports whether the key was stale (and thus deleted).
func (c *Cache) Refresh(section, key, backingFile string) (stale bool) {
	if backingFile == "" {
		return false
	}
	if _, err := os.Stat(backingFile); err == nil {
		return false
	}
	c.Del(section, key)
	return true
}

// Dirty reports whether any Put/Del has happened since Open (or the last
// Flush), so callers can skip writing an unmodified cache.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush persists the cache to its backing file atomically (temp file +
// rename via renameio), so a crash mid-write never corrupts the on-disk
// cache. Flush is a no-op if nothing changed since Open.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}

	var b strings.Builder
	b.WriteString("# envtool metadata cache - machine-generated, do not edit\n")
	for _, section := range c.order {
		fmt.Fprintf(&b, "[%s]\n", section)
		for _, r := range c.sections[section] {
			fmt.Fprintf(&b, "%s = %s\n", r.key, r.value)
		}
	}
	if err := renameio.WriteFile(c.path, []byte(b.String()), 0644); err != nil {
		return xerrors.Errorf("cache: flush %s: %w", c.path, err)
	}
	c.dirty = false
	return nil
}
