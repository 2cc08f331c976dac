// Package dedup tracks which leads were already collected, by prior runs or
// earlier in this one.
package dedup

import (
	"fmt"

	"supplier_leads_scraper/internal/lead"
	"supplier_leads_scraper/internal/output"
)

// Index is a set of lead keys. It is not safe for concurrent use.
type Index struct {
	keys   map[lead.Key]struct{}
	source string
}

// New returns an empty index.
func New() *Index {
	return &Index{keys: make(map[lead.Key]struct{})}
}

// Load builds an index from the most recent prior output file in dir. A missing
// directory or file yields an empty index. A file that cannot be parsed is an error.
func Load(dir, prefix string) (*Index, error) {
	idx := New()

	path, err := output.Latest(dir, prefix)
	if err != nil {
		return nil, fmt.Errorf("find prior output: %w", err)
	}
	if path == "" {
		return idx, nil
	}

	records, err := output.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load prior output: %w", err)
	}
	for _, r := range records {
		idx.Add(r.Key())
	}
	idx.source = path
	return idx, nil
}

// Contains reports whether k is known.
func (i *Index) Contains(k lead.Key) bool {
	_, ok := i.keys[k]
	return ok
}

// Add records k. It reports whether k was new.
func (i *Index) Add(k lead.Key) bool {
	if i.Contains(k) {
		return false
	}
	i.keys[k] = struct{}{}
	return true
}

// Seed merges keys from another history source and returns how many were new.
func (i *Index) Seed(keys []lead.Key) int {
	added := 0
	for _, k := range keys {
		if i.Add(k) {
			added++
		}
	}
	return added
}

// Len is the number of known keys.
func (i *Index) Len() int {
	return len(i.keys)
}

// Source is the file the index was loaded from, or "".
func (i *Index) Source() string {
	return i.source
}
