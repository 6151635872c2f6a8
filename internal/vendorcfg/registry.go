package vendorcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry holds the validated mapping specs for all configured vendors,
// keyed by source_vendor. Specs are added at load time and never mutated
// afterwards; reads may happen from concurrent ingestion workers.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

// NewRegistry creates and returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Add registers a spec under its source_vendor.
func (r *Registry) Add(spec *Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if spec.SourceVendor == "" {
		return fmt.Errorf("spec source_vendor cannot be empty")
	}
	if _, ok := r.specs[spec.SourceVendor]; ok {
		return fmt.Errorf("duplicate spec for vendor %q", spec.SourceVendor)
	}
	r.specs[spec.SourceVendor] = spec
	return nil
}

// Get retrieves the spec for one vendor.
func (r *Registry) Get(vendor string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[vendor]
	return spec, ok
}

// Vendors returns all registered vendor names in sorted order.
func (r *Registry) Vendors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for v := range r.specs {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Specs returns all registered specs ordered by vendor name, which keeps
// run summaries deterministic.
func (r *Registry) Specs() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		list = append(list, spec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SourceVendor < list[j].SourceVendor })
	return list
}

// Len returns the number of registered vendors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// LoadDir loads every .yaml/.yml vendor spec in dir into a new Registry.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read vendor spec dir: %w", err)
	}

	registry := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		spec, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := registry.Add(spec); err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("no vendor specs found in %s", dir)
	}
	return registry, nil
}
