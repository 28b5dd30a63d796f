package model

// Entry is a (key, count) pair in a ranked report.
type Entry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Report is a count-descending sequence of entries for one aggregation
// dimension. It is built once by an aggregator's Finalize and must not be
// mutated afterwards.
type Report struct {
	Name        string  `json:"name"`
	KeyColumn   string  `json:"key_column"`
	CountColumn string  `json:"count_column"`
	Entries     []Entry `json:"entries"`
}

// Total returns the sum of all counts in the report.
func (r Report) Total() int64 {
	var n int64
	for _, e := range r.Entries {
		n += e.Count
	}
	return n
}

// Top returns at most n leading entries. n <= 0 returns all of them.
func (r Report) Top(n int) []Entry {
	if n <= 0 || n >= len(r.Entries) {
		return r.Entries
	}
	return r.Entries[:n]
}
