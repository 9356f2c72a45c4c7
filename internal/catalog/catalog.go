// Package catalog provides the static software catalog loaded at startup.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	goversion "github.com/hashicorp/go-version"
)

// Record describes one downloadable software item.
// Records are immutable once loaded from the catalog document.
type Record struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Size        int64    `json:"size,omitempty"`
	Hash        string   `json:"hash,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	Category    string   `json:"category,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Mirrors     []string `json:"mirrors,omitempty"`
}

// Catalog holds the loaded software records keyed by name.
type Catalog struct {
	records map[string]*Record
	order   []string
	mu      sync.RWMutex
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		records: make(map[string]*Record),
	}
}

// Load reads a catalog from a JSON document.
// Two shapes are accepted: an array of records, or an object mapping
// name to record (the record name falls back to the map key).
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse parses catalog JSON.
func Parse(data []byte) (*Catalog, error) {
	c := New()

	// Try array form first
	var list []Record
	if err := json.Unmarshal(data, &list); err == nil {
		for i := range list {
			if err := c.add(&list[i]); err != nil {
				return nil, err
			}
		}
		return c, nil
	}

	// Object form: name -> record
	var byName map[string]Record
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rec := byName[key]
		if rec.Name == "" {
			rec.Name = key
		}
		if err := c.add(&rec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// add inserts a record. When a record with the same name already exists,
// the newer version wins; unparseable versions compare lexically.
func (c *Catalog) add(rec *Record) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("catalog record without a name")
	}
	if strings.TrimSpace(rec.URL) == "" {
		return fmt.Errorf("catalog record %q without a URL", rec.Name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.records[rec.Name]
	if !ok {
		c.records[rec.Name] = rec
		c.order = append(c.order, rec.Name)
		return nil
	}

	if newerVersion(rec.Version, existing.Version) {
		c.records[rec.Name] = rec
	}
	return nil
}

// newerVersion reports whether a is newer than b.
func newerVersion(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return va.GreaterThan(vb)
}

// Get returns the record with the given name.
func (c *Catalog) Get(name string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[name]
	return rec, ok
}

// Names returns all record names in catalog order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Records returns all records in catalog order.
func (c *Catalog) Records() []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records := make([]*Record, 0, len(c.order))
	for _, name := range c.order {
		records = append(records, c.records[name])
	}
	return records
}

// Categories returns the distinct category labels, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	var cats []string
	for _, rec := range c.records {
		if rec.Category == "" {
			continue
		}
		if _, ok := seen[rec.Category]; !ok {
			seen[rec.Category] = struct{}{}
			cats = append(cats, rec.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// ByCategory returns the records with the given category label.
func (c *Catalog) ByCategory(category string) []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Record
	for _, name := range c.order {
		rec := c.records[name]
		if strings.EqualFold(rec.Category, category) {
			out = append(out, rec)
		}
	}
	return out
}

// Search returns records whose name, category or description contains
// the query, case-insensitively.
func (c *Catalog) Search(query string) []*Record {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.Records()
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Record
	for _, name := range c.order {
		rec := c.records[name]
		if strings.Contains(strings.ToLower(rec.Name), query) ||
			strings.Contains(strings.ToLower(rec.Category), query) ||
			strings.Contains(strings.ToLower(rec.Description), query) {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// TotalSize returns the sum of declared sizes of the given records.
// Records without a declared size contribute zero.
func TotalSize(records []*Record) int64 {
	var total int64
	for _, rec := range records {
		if rec.Size > 0 {
			total += rec.Size
		}
	}
	return total
}
