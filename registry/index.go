package registry

import "sort"

// Index maps interface binary names to the binary names of their providers.
// No interface maps to an empty set.
type Index struct {
	providers map[string]map[string]struct{}
}

// Entry is one interface and its providers, sorted.
type Entry struct {
	Interface    string
	Implementers []string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{providers: map[string]map[string]struct{}{}}
}

// Add records impl as a provider of iface. Adding the same pair again has no
// effect.
func (idx *Index) Add(iface, impl string) {
	impls := idx.providers[iface]
	if impls == nil {
		impls = map[string]struct{}{}
		idx.providers[iface] = impls
	}
	impls[impl] = struct{}{}
}

// Len returns the number of interfaces in the index.
func (idx *Index) Len() int {
	return len(idx.providers)
}

// Implementers returns the providers of iface as a set. The returned map must
// not be modified.
func (idx *Index) Implementers(iface string) map[string]struct{} {
	return idx.providers[iface]
}

// Entries returns all interfaces and their providers, sorted by interface
// name.
func (idx *Index) Entries() []Entry {
	entries := make([]Entry, 0, len(idx.providers))
	for iface, impls := range idx.providers {
		entries = append(entries, Entry{Interface: iface, Implementers: SortedNames(impls)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Interface < entries[j].Interface
	})
	return entries
}
