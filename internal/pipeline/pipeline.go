package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/hub"
	"github.com/atikulmunna/logrank/internal/model"
	"github.com/atikulmunna/logrank/internal/parser"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the output of one pipeline run.
type Result struct {
	Status   model.Report  `json:"status"`
	ErrorIPs model.Report  `json:"error_ips"`
	Stats    hub.Stats     `json:"stats"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Pipeline parses a bounded stream of lines and ranks status codes and
// error-producing client addresses. A Pipeline holds no state between runs
// and may be reused.
type Pipeline struct {
	parser    parser.Parser
	workers   int
	threshold int
	logger    *zap.SugaredLogger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the number of parser goroutines.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithErrorThreshold sets the lowest status value counted as an error.
func WithErrorThreshold(n int) Option {
	return func(p *Pipeline) { p.threshold = n }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline using p to parse lines.
func New(p parser.Parser, opts ...Option) *Pipeline {
	pl := &Pipeline{
		parser:    p,
		workers:   runtime.NumCPU(),
		threshold: aggregator.DefaultErrorThreshold,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

// Run consumes lines until the channel is closed, then finalizes both
// reports. The only error is cancellation of ctx.
func (p *Pipeline) Run(ctx context.Context, lines <-chan model.RawLine) (*Result, error) {
	start := time.Now()

	status := aggregator.NewStatus()
	errorIPs := aggregator.NewErrorIP(p.threshold)

	h := hub.New(lines, p.parser, p.workers, p.logger)
	statusCh := h.Subscribe()
	errorCh := h.Subscribe()

	// Phase 1: accumulate.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Start(gctx) })
	g.Go(func() error { return aggregator.Consume(gctx, status, statusCh) })
	g.Go(func() error { return aggregator.Consume(gctx, errorIPs, errorCh) })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline aborted: %w", err)
	}
	// The input may have been closed because ctx was cancelled upstream.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline aborted: %w", err)
	}

	// Phase 2: finalize and rank.
	res := &Result{
		Status:   status.Finalize(),
		ErrorIPs: errorIPs.Finalize(),
		Stats:    h.Stats(),
		Elapsed:  time.Since(start),
	}

	p.logger.Infow("pipeline complete",
		"lines", res.Stats.Lines,
		"accepted", res.Stats.Accepted,
		"rejected", res.Stats.Rejected,
		"status_codes", len(res.Status.Entries),
		"error_ips", len(res.ErrorIPs.Entries),
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// RunLines runs the pipeline over an in-memory slice of lines.
func (p *Pipeline) RunLines(ctx context.Context, source string, lines []string) (*Result, error) {
	ch := make(chan model.RawLine)
	go func() {
		defer close(ch)
		for i, text := range lines {
			select {
			case ch <- model.RawLine{Text: text, Source: source, Number: i + 1}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return p.Run(ctx, ch)
}
