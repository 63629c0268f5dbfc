// Package category implements C4: category registration and keyword-based
// detection, layered over the store's category table.
package category

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cortexmind/cortex/internal/store"
)

// defaultCategory is returned by Detect when no keyword matches.
const defaultCategory = "general"

// Manager loads categories from the store and detects category membership
// for new content via a compiled keyword-alternation regex per category.
type Manager struct {
	mu    sync.RWMutex
	store *store.Store
	cats  map[string]*store.Category
	regex map[string]*regexp.Regexp
}

// New loads the manager from persisted categories.
func New(s *store.Store) (*Manager, error) {
	m := &Manager{store: s, cats: map[string]*store.Category{}, regex: map[string]*regexp.Regexp{}}
	existing, err := s.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("category: load: %w", err)
	}
	for _, c := range existing {
		m.index(c)
	}
	if _, ok := m.cats[defaultCategory]; !ok {
		if err := m.Add(defaultCategory, "uncategorized content", nil); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) index(c *store.Category) {
	m.cats[c.Name] = c
	if len(c.Keywords) > 0 {
		m.regex[c.Name] = compileAlternation(c.Keywords)
	}
}

func compileAlternation(keywords []string) *regexp.Regexp {
	escaped := make([]string, len(keywords))
	for i, k := range keywords {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(k))
	}
	return regexp.MustCompile(`\b(` + strings.Join(escaped, "|") + `)\b`)
}

// Add registers a new category. Names are normalized to lowercase
// snake_case; the add is rejected if the name already exists or any keyword
// is already claimed by another category.
func (m *Manager) Add(name, description string, keywords []string) error {
	norm := normalize(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cats[norm]; exists {
		return store.ErrUniqueViolation
	}
	for existingName, existingCat := range m.cats {
		for _, kw := range keywords {
			for _, existingKw := range existingCat.Keywords {
				if strings.EqualFold(kw, existingKw) {
					return fmt.Errorf("category: keyword %q already claimed by %q", kw, existingName)
				}
			}
		}
	}

	c := &store.Category{Name: norm, Description: description, Keywords: keywords}
	if err := m.store.AddCategory(c); err != nil {
		return fmt.Errorf("category: add: %w", err)
	}
	m.index(c)
	return nil
}

// List returns all registered categories.
func (m *Manager) List() []*store.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*store.Category, 0, len(m.cats))
	for _, c := range m.cats {
		out = append(out, c)
	}
	return out
}

// Detect returns the ordered set of categories whose keyword pattern
// matches content, or {"general"} if none match.
func (m *Manager) Detect(content string) []string {
	lower := strings.ToLower(content)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []string
	for name, re := range m.regex {
		if re.MatchString(lower) {
			matched = append(matched, name)
		}
	}
	if len(matched) == 0 {
		return []string{defaultCategory}
	}
	return matched
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}
