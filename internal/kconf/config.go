// Package kconf parses kismet.conf-style configuration files: line
// oriented key=value pairs with append (+=), comments, recursive
// include, glob-expanded optional include, and a deferred override
// pass.
package kconf

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// entry is one raw value assigned to a key, tagged with whether it was
// an append (+=) assignment so overrides can tell "all appends" from
// "at least one replace".
type entry struct {
	value  string
	append bool
}

// Config holds the parsed key/value multimap. Keys are case-folded to
// lower, matching the original's str_lower(directive).
type Config struct {
	values map[string][]entry
}

// Load parses path and any include=/opt_include=/opt_override=
// directives it names, returning the merged configuration.
func Load(path string) (*Config, error) {
	c := &Config{values: make(map[string][]entry)}
	var overrides []string
	if err := c.parseFile(path, &overrides); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		if err := c.applyOverride(o); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Config) parseFile(path string, overrides *[]string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("kconf: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 8192), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		directive, value, isAppend, hasEq := splitDirective(line)
		if !hasEq {
			continue
		}
		if value == "" {
			return fmt.Errorf("kconf: illegal config option in %s line %d: %q", path, lineNo, line)
		}

		switch directive {
		case "include":
			if err := c.parseFile(value, overrides); err != nil {
				return err
			}
		case "opt_include":
			matches, _ := filepath.Glob(value)
			for _, m := range matches {
				info, err := os.Stat(m)
				if err != nil || info.IsDir() {
					continue
				}
				if err := c.parseFile(m, overrides); err != nil {
					return fmt.Errorf("kconf: optional sub-config %s failed: %w", m, err)
				}
			}
		case "opt_override":
			*overrides = append(*overrides, value)
		default:
			key := strings.ToLower(directive)
			c.values[key] = append(c.values[key], entry{value: value, append: isAppend})
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("kconf: read %s: %w", path, err)
	}
	return nil
}

// splitDirective mirrors the original's eq-position scan: a line with
// no '=' is a bare directive (empty value, not an error by itself); a
// trailing '+' immediately before '=' marks an append assignment.
func splitDirective(line string) (directive, value string, isAppend, hasEq bool) {
	eq := strings.IndexByte(line, '=')
	if eq <= 0 {
		return strings.TrimSpace(line), "", false, false
	}
	if line[eq-1] == '+' {
		return strings.TrimSpace(line[:eq-1]), strings.TrimSpace(line[eq+1:]), true, true
	}
	return strings.TrimSpace(line[:eq]), strings.TrimSpace(line[eq+1:]), false, true
}

// applyOverride loads path as its own sub-config and merges it in:
// a key is replaced wholesale unless every entry the override supplies
// for that key uses +=, in which case the values are appended instead.
func (c *Config) applyOverride(path string) error {
	matches, err := filepath.Glob(path)
	if err != nil {
		return fmt.Errorf("kconf: bad override glob %s: %w", path, err)
	}
	if len(matches) == 0 {
		return nil
	}

	for _, m := range matches {
		var overrides []string
		sub := &Config{values: make(map[string][]entry)}
		if err := sub.parseFile(m, &overrides); err != nil {
			return fmt.Errorf("kconf: override %s: %w", m, err)
		}
		for key, entries := range sub.values {
			allAppend := true
			for _, e := range entries {
				if !e.append {
					allAppend = false
					break
				}
			}
			if allAppend {
				c.values[key] = append(c.values[key], entries...)
			} else {
				c.values[key] = entries
			}
		}
	}
	return nil
}

// FetchOpt returns the last (non-append-merged winner's final) value
// assigned to key, or "" if unset.
func (c *Config) FetchOpt(key string) string {
	vals := c.values[strings.ToLower(key)]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1].value
}

// FetchOptDefault returns FetchOpt(key), or dfl if the key is unset.
func (c *Config) FetchOptDefault(key, dfl string) string {
	if v := c.FetchOpt(key); v != "" {
		return v
	}
	return dfl
}

// FetchOptVec returns every value assigned to key, in file order,
// covering both plain and += assignments.
func (c *Config) FetchOptVec(key string) []string {
	vals := c.values[strings.ToLower(key)]
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.value
	}
	return out
}

// FetchOptBool parses key as a boolean (true/yes/1 are true; anything
// else false), defaulting to dfl when unset.
func (c *Config) FetchOptBool(key string, dfl bool) bool {
	v := strings.ToLower(c.FetchOpt(key))
	switch v {
	case "":
		return dfl
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

// FetchOptInt parses key as an integer, defaulting to dfl on absence or
// parse failure.
func (c *Config) FetchOptInt(key string, dfl int) int {
	v := c.FetchOpt(key)
	if v == "" {
		return dfl
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return dfl
	}
	return n
}
