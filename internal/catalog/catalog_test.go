package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const arrayDoc = `[
  {"name": "7-Zip", "url": "https://example.com/7z2409-x64.exe", "size": 1500000, "category": "tools"},
  {"name": "Firefox", "url": "https://example.com/firefox.msi", "hash": "sha256:abc1", "category": "browsers"},
  {"name": "Notepad++", "url": "https://example.com/npp.exe", "category": "tools", "description": "text editor"}
]`

const objectDoc = `{
  "7-Zip": {"url": "https://example.com/7z.exe"},
  "Firefox": {"name": "Firefox", "url": "https://example.com/ff.msi"}
}`

func TestParse_ArrayForm(t *testing.T) {
	c, err := Parse([]byte(arrayDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	rec, ok := c.Get("Firefox")
	if !ok {
		t.Fatal("Get(Firefox) not found")
	}
	if rec.URL != "https://example.com/firefox.msi" {
		t.Errorf("URL = %s", rec.URL)
	}
	if rec.Hash != "sha256:abc1" {
		t.Errorf("Hash = %s", rec.Hash)
	}

	// Records keep document order
	names := c.Names()
	want := []string{"7-Zip", "Firefox", "Notepad++"}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Names[%d] = %s, want %s", i, names[i], name)
		}
	}
}

func TestParse_ObjectForm(t *testing.T) {
	c, err := Parse([]byte(objectDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}

	// Name falls back to the map key
	rec, ok := c.Get("7-Zip")
	if !ok {
		t.Fatal("Get(7-Zip) not found")
	}
	if rec.Name != "7-Zip" {
		t.Errorf("Name = %s, want 7-Zip", rec.Name)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", "{{{"},
		{"record without name", `[{"url": "https://example.com/a.exe"}]`},
		{"record without url", `[{"name": "App"}]`},
		{"blank name", `[{"name": "  ", "url": "https://example.com/a.exe"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse(%s) expected error", tt.doc)
			}
		})
	}
}

func TestParse_DuplicateNewerVersionWins(t *testing.T) {
	doc := `[
  {"name": "App", "url": "https://example.com/app-1.2.exe", "version": "1.2"},
  {"name": "App", "url": "https://example.com/app-1.10.exe", "version": "1.10"},
  {"name": "App", "url": "https://example.com/app-1.3.exe", "version": "1.3"}
]`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}

	// Semantic comparison: 1.10 > 1.3 > 1.2
	rec, _ := c.Get("App")
	if rec.Version != "1.10" {
		t.Errorf("kept version %s, want 1.10", rec.Version)
	}
}

func TestParse_DuplicateWithoutVersionKeepsFirst(t *testing.T) {
	doc := `[
  {"name": "App", "url": "https://example.com/first.exe"},
  {"name": "App", "url": "https://example.com/second.exe"}
]`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rec, _ := c.Get("App")
	if rec.URL != "https://example.com/first.exe" {
		t.Errorf("kept URL %s, want the first record", rec.URL)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(arrayDoc), 0644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load on missing file expected error")
	}
}

func TestCatalog_Search(t *testing.T) {
	c, err := Parse([]byte(arrayDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"fire", 1},
		{"TOOLS", 2},     // category match, case-insensitive
		{"text edit", 1}, // description match
		{"nothing-here", 0},
		{"", 3}, // empty query returns everything
	}

	for _, tt := range tests {
		if got := len(c.Search(tt.query)); got != tt.want {
			t.Errorf("Search(%q) returned %d records, want %d", tt.query, got, tt.want)
		}
	}
}

func TestCatalog_Categories(t *testing.T) {
	c, err := Parse([]byte(arrayDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cats := c.Categories()
	if len(cats) != 2 || cats[0] != "browsers" || cats[1] != "tools" {
		t.Errorf("Categories = %v, want [browsers tools]", cats)
	}

	if got := len(c.ByCategory("Tools")); got != 2 {
		t.Errorf("ByCategory(Tools) returned %d records, want 2", got)
	}
}

func TestTotalSize(t *testing.T) {
	c, err := Parse([]byte(arrayDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// Only 7-Zip declares a size; the others contribute zero.
	if got := TotalSize(c.Records()); got != 1500000 {
		t.Errorf("TotalSize = %d, want 1500000", got)
	}
}
