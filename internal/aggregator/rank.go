package aggregator

import (
	"sort"

	"github.com/atikulmunna/logrank/internal/model"
)

// Rank turns a count map into entries sorted by count descending.
// Equal counts are ordered by key ascending so output is deterministic.
func Rank(counts map[string]int64) []model.Entry {
	entries := make([]model.Entry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, model.Entry{Key: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}
