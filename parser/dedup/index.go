// Package dedup groups byte-identical files by content hash and
// reconciles the groups against durable duplicate-group state.
package dedup

import (
	"github.com/bluefinx/foremost-parser/store"
)

// GroupByHash partitions hash index entries by hash and keeps only
// hashes shared by at least two files. One linear pass; singleton hashes
// are not duplicates and are dropped.
func GroupByHash(entries []store.HashEntry) map[string][]store.HashEntry {
	groups := map[string][]store.HashEntry{}
	for _, e := range entries {
		if e.Hash == "" {
			continue
		}
		groups[e.Hash] = append(groups[e.Hash], e)
	}
	for hash, members := range groups {
		if len(members) < 2 {
			delete(groups, hash)
		}
	}
	return groups
}
