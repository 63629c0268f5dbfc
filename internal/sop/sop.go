// Package sop implements C6: a pattern table mapping tool-call context to
// Standard Operating Procedure documents, loaded from a directory and
// hot-reloaded via fsnotify (internal/config.Watcher covers the main config
// file; this package watches the SOP directory independently since SOPs
// change on a different cadence).
package sop

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Pattern is one row of the detection table: a regex matched against a
// lowercase serialization of tool params, mapped to an SOP file and priority.
type Pattern struct {
	Regexp   *regexp.Regexp
	Label    string
	FileName string
	Priority int
}

// Match is C6's output for a single matched pattern.
type Match struct {
	Label          string
	Path           string
	Content        string
	Priority       int
	MatchedPattern string
	Sections       map[string]string
}

// Enhancer holds the pattern table and the loaded SOP directory.
type Enhancer struct {
	dir      string
	patterns []Pattern
	log      *zap.Logger

	mu    sync.RWMutex
	cache map[string]string // filename -> raw content
}

// New builds an Enhancer over a directory of SOP text files and a pattern
// table. Missing or unreadable SOP files are non-fatal.
func New(dir string, patterns []Pattern, log *zap.Logger) *Enhancer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enhancer{dir: dir, patterns: patterns, log: log, cache: map[string]string{}}
}

// FindMatches evaluates paramsStr against every pattern, returning matches
// ordered by descending priority.
func (e *Enhancer) FindMatches(paramsStr string) []Match {
	lower := strings.ToLower(paramsStr)

	var matches []Match
	for _, p := range e.patterns {
		loc := p.Regexp.FindString(lower)
		if loc == "" {
			continue
		}
		content, err := e.load(p.FileName)
		if err != nil {
			e.log.Warn("sop file unreadable", zap.String("file", p.FileName), zap.Error(err))
			continue
		}
		matches = append(matches, Match{
			Label: p.Label, Path: filepath.Join(e.dir, p.FileName), Content: content,
			Priority: p.Priority, MatchedPattern: loc, Sections: parseSections(content),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Priority > matches[j].Priority })
	return matches
}

func (e *Enhancer) load(fileName string) (string, error) {
	e.mu.RLock()
	if c, ok := e.cache[fileName]; ok {
		e.mu.RUnlock()
		return c, nil
	}
	e.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(e.dir, fileName))
	if err != nil {
		return "", fmt.Errorf("sop: read %s: %w", fileName, err)
	}
	content := string(data)

	e.mu.Lock()
	e.cache[fileName] = content
	e.mu.Unlock()
	return content, nil
}

// Invalidate drops a cached SOP body, forcing a re-read on next match
// (called by the fsnotify watcher on file change).
func (e *Enhancer) Invalidate(fileName string) {
	e.mu.Lock()
	delete(e.cache, fileName)
	e.mu.Unlock()
}

// sectionHeader matches a top-level key line like "preflight:" followed by
// an indented body.
var sectionHeader = regexp.MustCompile(`(?m)^(\S[\w-]*):\s*$`)

// parseSections extracts named top-level sections (conventionally
// "preflight", "gotchas", "credentials") by locating header lines and
// collecting subsequent indented lines as the body.
func parseSections(content string) map[string]string {
	sections := map[string]string{}
	lines := strings.Split(content, "\n")

	var currentKey string
	var body []string
	flush := func() {
		if currentKey != "" {
			sections[currentKey] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = nil
	}

	for _, line := range lines {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			flush()
			currentKey = strings.ToLower(m[1])
			continue
		}
		if currentKey != "" {
			if strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t") || strings.TrimSpace(line) == "" {
				body = append(body, strings.TrimPrefix(strings.TrimPrefix(line, "\t"), "  "))
			} else {
				flush()
				currentKey = ""
			}
		}
	}
	flush()
	return sections
}
