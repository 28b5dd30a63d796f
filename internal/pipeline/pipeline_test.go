package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/model"
	"github.com/atikulmunna/logrank/internal/parser"
	"github.com/google/go-cmp/cmp"
)

func accessLine(ip, status string) string {
	return fmt.Sprintf(`%s - - [10/Oct/2020:13:55:36 -0700] "GET /index.html HTTP/1.1" %s 2326`, ip, status)
}

// scenario mirrors A(200), A(404), B(500), malformed, A(404).
func scenario() []string {
	return []string{
		accessLine("A", "200"),
		accessLine("A", "404"),
		accessLine("B", "500"),
		"malformed-line",
		accessLine("A", "404"),
	}
}

func TestRunScenario(t *testing.T) {
	p := New(parser.NewAccessLogParser(), WithWorkers(2))

	res, err := p.RunLines(context.Background(), "test.log", scenario())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStatus := []model.Entry{{Key: "404", Count: 2}, {Key: "200", Count: 1}, {Key: "500", Count: 1}}
	if diff := cmp.Diff(wantStatus, res.Status.Entries); diff != "" {
		t.Errorf("status report mismatch (-want +got):\n%s", diff)
	}

	wantErrors := []model.Entry{{Key: "A", Count: 2}, {Key: "B", Count: 1}}
	if diff := cmp.Diff(wantErrors, res.ErrorIPs.Entries); diff != "" {
		t.Errorf("error-ip report mismatch (-want +got):\n%s", diff)
	}

	if res.Stats.Lines != 5 || res.Stats.Accepted != 4 || res.Stats.Rejected != 1 {
		t.Errorf("expected stats {5 4 1}, got %+v", res.Stats)
	}
}

func TestRunToyFormat(t *testing.T) {
	rp, err := parser.NewRegexParser(`^(?P<ip>\S+) (?P<status>\S+)$`)
	if err != nil {
		t.Fatal(err)
	}

	res, err := New(rp).RunLines(context.Background(), "toy", []string{"A 200", "A 404", "B 500", "malformed-line", "A 404"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]model.Entry{{Key: "A", Count: 2}, {Key: "B", Count: 1}}, res.ErrorIPs.Entries); diff != "" {
		t.Errorf("error-ip report mismatch (-want +got):\n%s", diff)
	}
}

func TestRunEmpty(t *testing.T) {
	res, err := New(parser.NewAccessLogParser()).RunLines(context.Background(), "empty.log", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Status.Entries) != 0 || len(res.ErrorIPs.Entries) != 0 {
		t.Errorf("expected empty reports, got %v and %v", res.Status.Entries, res.ErrorIPs.Entries)
	}
	if res.Stats.Lines != 0 {
		t.Errorf("expected 0 lines, got %d", res.Stats.Lines)
	}
}

func TestRunLaws(t *testing.T) {
	lines := generate(2000)
	res, err := New(parser.NewAccessLogParser(), WithWorkers(4)).RunLines(context.Background(), "gen.log", lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Sum law.
	if got := res.Status.Total(); got != res.Stats.Accepted {
		t.Errorf("status counts sum to %d, expected %d accepted records", got, res.Stats.Accepted)
	}
	if res.Stats.Lines != res.Stats.Accepted+res.Stats.Rejected {
		t.Errorf("lines %d != accepted %d + rejected %d", res.Stats.Lines, res.Stats.Accepted, res.Stats.Rejected)
	}

	// Subset law.
	p := parser.NewAccessLogParser()
	erroring := make(map[string]bool)
	for _, l := range lines {
		rec, ok := p.Parse(model.RawLine{Text: l})
		if !ok {
			continue
		}
		if v, ok := aggregator.StatusValue(rec.StatusCode); ok && v >= 400 {
			erroring[rec.ClientAddress] = true
		}
	}
	for _, e := range res.ErrorIPs.Entries {
		if !erroring[e.Key] {
			t.Errorf("address %s reported without an error record", e.Key)
		}
	}
	if len(res.ErrorIPs.Entries) != len(erroring) {
		t.Errorf("expected %d erroring addresses, got %d", len(erroring), len(res.ErrorIPs.Entries))
	}

	// Ordering.
	for i := 1; i < len(res.Status.Entries); i++ {
		if res.Status.Entries[i-1].Count < res.Status.Entries[i].Count {
			t.Fatalf("status report not count-descending at %d", i)
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	lines := generate(3000)

	seq, err := New(parser.NewAccessLogParser(), WithWorkers(1)).RunLines(context.Background(), "gen.log", lines)
	if err != nil {
		t.Fatal(err)
	}
	par, err := New(parser.NewAccessLogParser(), WithWorkers(8)).RunLines(context.Background(), "gen.log", lines)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(seq.Status, par.Status); diff != "" {
		t.Errorf("status report differs between runs (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seq.ErrorIPs, par.ErrorIPs); diff != "" {
		t.Errorf("error-ip report differs between runs (-seq +par):\n%s", diff)
	}
}

func TestRunThreshold(t *testing.T) {
	res, err := New(parser.NewAccessLogParser(), WithErrorThreshold(500)).RunLines(context.Background(), "test.log", scenario())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]model.Entry{{Key: "B", Count: 1}}, res.ErrorIPs.Entries); diff != "" {
		t.Errorf("error-ip report mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Never closed: only cancellation can end the run.
	lines := make(chan model.RawLine)
	_, err := New(parser.NewAccessLogParser()).Run(ctx, lines)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// generate builds a deterministic mix of good, error and malformed lines.
func generate(n int) []string {
	statuses := []string{"200", "200", "301", "404", "500", "503"}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if i%17 == 0 {
			lines = append(lines, fmt.Sprintf("garbage %d", i))
			continue
		}
		ip := fmt.Sprintf("10.0.%d.%d", i%7, i%13)
		lines = append(lines, accessLine(ip, statuses[i%len(statuses)]))
	}
	return lines
}
