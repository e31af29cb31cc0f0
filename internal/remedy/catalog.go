// Package remedy holds the treatment handbook consulted for accepted diagnoses.
package remedy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/krishak/internal/diagnosis"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrEmptyCatalog is returned when a catalog resource contains no entries.
var ErrEmptyCatalog = errors.New("remedy: catalog has no entries")

// Catalog is an immutable label to remedy mapping.
type Catalog struct {
	entries map[string]diagnosis.Remedy
}

// Default returns the handbook bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile replaces the bundled handbook with the YAML file at path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read remedy catalog: %w", err)
	}
	return Parse(data)
}

// Load returns the catalog at path, or the bundled one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes a YAML document keyed by exact classifier label.
func Parse(data []byte) (*Catalog, error) {
	entries := make(map[string]diagnosis.Remedy)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode remedy catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{entries: entries}, nil
}

// Lookup returns the remedy recorded for label.
func (c *Catalog) Lookup(label string) (diagnosis.Remedy, bool) {
	if c == nil {
		return diagnosis.Remedy{}, false
	}
	r, ok := c.entries[label]
	return r, ok
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Labels lists the catalog keys in sorted order.
func (c *Catalog) Labels() []string {
	if c == nil {
		return nil
	}
	labels := make([]string, 0, len(c.entries))
	for label := range c.entries {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
