package aggregator

import (
	"context"
	"strconv"
	"sync"

	"github.com/atikulmunna/logrank/internal/model"
)

// DefaultErrorThreshold is the lowest status value counted as an error.
const DefaultErrorThreshold = 400

// Report names and column headers.
const (
	StatusReport  = "status"
	ErrorIPReport = "error-ips"
)

// Aggregator is a single-pass reducer over the record stream.
// Observe may be called from multiple goroutines. Finalize ranks what has
// been observed so far and returns a report the caller owns.
type Aggregator interface {
	Observe(rec model.Record)
	Finalize() model.Report
}

// Consume feeds records into a until the channel is closed or ctx is cancelled.
// It returns ctx.Err() on cancellation.
func Consume(ctx context.Context, a Aggregator, records <-chan model.Record) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			a.Observe(rec)
		}
	}
}

// counter is a mutex-guarded count map shared by both aggregators.
type counter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newCounter() counter {
	return counter{counts: make(map[string]int64)}
}

func (c *counter) inc(key string) {
	c.mu.Lock()
	c.counts[key]++
	c.mu.Unlock()
}

func (c *counter) rank() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Rank(c.counts)
}

// ---------------------------------------------------------------------------
// Status aggregator
// ---------------------------------------------------------------------------

// StatusAggregator counts records per exact status code text.
type StatusAggregator struct {
	c counter
}

func NewStatus() *StatusAggregator {
	return &StatusAggregator{c: newCounter()}
}

func (a *StatusAggregator) Observe(rec model.Record) {
	a.c.inc(rec.StatusCode)
}

func (a *StatusAggregator) Finalize() model.Report {
	return model.Report{
		Name:        StatusReport,
		KeyColumn:   "status_code",
		CountColumn: "count",
		Entries:     a.c.rank(),
	}
}

// ---------------------------------------------------------------------------
// Error-IP aggregator
// ---------------------------------------------------------------------------

// ErrorIPAggregator counts records per client address whose status value is
// at or above the threshold. Records with a non-numeric status are skipped.
type ErrorIPAggregator struct {
	threshold int
	c         counter
}

func NewErrorIP(threshold int) *ErrorIPAggregator {
	return &ErrorIPAggregator{threshold: threshold, c: newCounter()}
}

func (a *ErrorIPAggregator) Observe(rec model.Record) {
	v, ok := StatusValue(rec.StatusCode)
	if !ok || v < a.threshold {
		return
	}
	a.c.inc(rec.ClientAddress)
}

func (a *ErrorIPAggregator) Finalize() model.Report {
	return model.Report{
		Name:        ErrorIPReport,
		KeyColumn:   "ip",
		CountColumn: "error_count",
		Entries:     a.c.rank(),
	}
}

// StatusValue converts a status code to its base-10 value.
// ok is false when code is not a decimal integer.
func StatusValue(code string) (int, bool) {
	v, err := strconv.Atoi(code)
	if err != nil {
		return 0, false
	}
	return v, true
}
