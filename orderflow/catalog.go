// Package orderflow owns the order draft state machine and the canvas
// size catalog, and drives the upload-to-checkout pipeline.
package orderflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CanvasSize is one orderable canvas format.
type CanvasSize struct {
	// Label is the customer-facing size, e.g. "60x40 cm".
	Label string `yaml:"label"`

	// Price is in major currency units (whole euros).
	Price int64 `yaml:"price"`
}

// DefaultCatalog returns the built-in canvas size catalog.
func DefaultCatalog() []CanvasSize {
	return []CanvasSize{
		{Label: "45x30 cm", Price: 45},
		{Label: "60x40 cm", Price: 55},
		{Label: "80x54 cm", Price: 68},
		{Label: "90x60 cm", Price: 75},
	}
}

// catalogFile is the on-disk catalog override shape.
type catalogFile struct {
	Sizes []CanvasSize `yaml:"sizes"`
}

// LoadCatalog reads a catalog override from a YAML file. An empty path
// returns the built-in catalog.
func LoadCatalog(path string) ([]CanvasSize, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("orderflow: failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("orderflow: malformed catalog file: %w", err)
	}
	if len(file.Sizes) == 0 {
		return nil, fmt.Errorf("orderflow: catalog file %s defines no sizes", path)
	}

	seen := make(map[string]bool, len(file.Sizes))
	for i, size := range file.Sizes {
		if size.Label == "" {
			return nil, fmt.Errorf("orderflow: catalog entry %d has no label", i)
		}
		if size.Price <= 0 {
			return nil, fmt.Errorf("orderflow: catalog size %q has non-positive price %d", size.Label, size.Price)
		}
		if seen[size.Label] {
			return nil, fmt.Errorf("orderflow: duplicate catalog size %q", size.Label)
		}
		seen[size.Label] = true
	}

	return file.Sizes, nil
}

// FindSize looks a size up by label.
func FindSize(catalog []CanvasSize, label string) (CanvasSize, bool) {
	for _, size := range catalog {
		if size.Label == label {
			return size, true
		}
	}
	return CanvasSize{}, false
}
