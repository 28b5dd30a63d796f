package hub

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/atikulmunna/logrank/internal/model"
	"github.com/atikulmunna/logrank/internal/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const subscriberBuffer = 1024

// Stats counts lines seen by the hub. Once Start returns,
// Lines == Accepted + Rejected.
type Stats struct {
	Lines    int64 `json:"lines"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Hub receives raw lines, parses them on a pool of workers, and delivers every
// accepted Record to all subscribers. Unlike a live feed it never drops:
// a slow subscriber applies backpressure to the workers.
type Hub struct {
	parser  parser.Parser
	input   <-chan model.RawLine
	workers int
	logger  *zap.SugaredLogger

	mu          sync.RWMutex
	subscribers []chan model.Record

	lines    atomic.Int64
	accepted atomic.Int64
	rejected atomic.Int64
}

// New creates a Hub that reads from input and parses with p using the given
// number of workers (minimum 1).
func New(input <-chan model.RawLine, p parser.Parser, workers int, logger *zap.SugaredLogger) *Hub {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		parser:  p,
		input:   input,
		workers: workers,
		logger:  logger,
	}
}

// Subscribe returns a buffered channel that will receive every parsed record.
// Subscribers must be registered before Start.
func (h *Hub) Subscribe() <-chan model.Record {
	ch := make(chan model.Record, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Stats returns the current line counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Lines:    h.lines.Load(),
		Accepted: h.accepted.Load(),
		Rejected: h.rejected.Load(),
	}
}

// Start reads the input until it is closed, parsing and broadcasting.
// Subscriber channels are closed when Start returns. The returned error is
// non-nil only if ctx was cancelled.
func (h *Hub) Start(ctx context.Context) error {
	defer h.closeAll()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < h.workers; i++ {
		g.Go(func() error { return h.work(ctx) })
	}
	return g.Wait()
}

// work is one parser worker.
func (h *Hub) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-h.input:
			if !ok {
				return nil
			}
			h.lines.Add(1)

			rec, ok := h.parser.Parse(raw)
			if !ok {
				h.rejected.Add(1)
				h.logger.Debugw("line rejected", "source", raw.Source, "line", raw.Number)
				continue
			}
			h.accepted.Add(1)

			if err := h.broadcast(ctx, rec); err != nil {
				return err
			}
		}
	}
}

// broadcast sends a record to all subscribers, blocking on full channels.
func (h *Hub) broadcast(ctx context.Context, rec model.Record) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
