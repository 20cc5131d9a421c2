package orderflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	want := []CanvasSize{
		{Label: "45x30 cm", Price: 45},
		{Label: "60x40 cm", Price: 55},
		{Label: "80x54 cm", Price: 68},
		{Label: "90x60 cm", Price: 75},
	}

	if len(catalog) != len(want) {
		t.Fatalf("catalog has %d sizes, want %d", len(catalog), len(want))
	}
	for i, size := range want {
		if catalog[i] != size {
			t.Errorf("catalog[%d] = %+v, want %+v", i, catalog[i], size)
		}
	}
}

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog file: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalogFile(t, `
sizes:
  - label: "30x20 cm"
    price: 35
  - label: "100x70 cm"
    price: 95
`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("expected 2 sizes, got %d", len(catalog))
	}
	if catalog[0].Label != "30x20 cm" || catalog[0].Price != 35 {
		t.Errorf("catalog[0] = %+v", catalog[0])
	}
	if catalog[1].Label != "100x70 cm" || catalog[1].Price != 95 {
		t.Errorf("catalog[1] = %+v", catalog[1])
	}
}

func TestLoadCatalogEmptyPathUsesDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(catalog) != len(DefaultCatalog()) {
		t.Errorf("expected the default catalog, got %d sizes", len(catalog))
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "sizes: ["},
		{"no sizes", "sizes: []"},
		{"missing label", "sizes:\n  - price: 45"},
		{"zero price", "sizes:\n  - label: x\n    price: 0"},
		{"duplicate label", "sizes:\n  - label: x\n    price: 1\n  - label: x\n    price: 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalogFile(t, tt.content)
			if _, err := LoadCatalog(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindSize(t *testing.T) {
	catalog := DefaultCatalog()

	size, ok := FindSize(catalog, "60x40 cm")
	if !ok {
		t.Fatal("size not found")
	}
	if size.Price != 55 {
		t.Errorf("Price = %d", size.Price)
	}

	if _, ok := FindSize(catalog, "10x10 cm"); ok {
		t.Error("unknown size should not be found")
	}
}
