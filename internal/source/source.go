package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"

	"github.com/atikulmunna/logrank/internal/model"
	"github.com/bitfield/script"
)

// StdinName is the path that selects standard input.
const StdinName = "-"

// bareCR matches carriage returns left inside a line once CRLF endings are
// stripped. They are treated as line breaks.
var bareCR = regexp.MustCompile(`\r`)

// ErrNotFound is returned by Open when the input file does not exist.
var ErrNotFound = errors.New("input not found")

// Source reads one bounded input and emits its lines as RawLine values.
type Source struct {
	name string
	pipe *script.Pipe
	out  chan model.RawLine
}

// Open returns a Source for path, or standard input when path is "-".
// A missing file is reported as ErrNotFound before anything is read.
func Open(path string) (*Source, error) {
	if path == StdinName {
		return newSource(StdinName, script.Stdin()), nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("input file %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("input file %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input file %q is a directory", path)
	}
	return newSource(path, script.File(path)), nil
}

// FromReader returns a Source reading r, labelled with name.
func FromReader(name string, r io.Reader) *Source {
	return newSource(name, script.NewPipe().WithReader(r))
}

func newSource(name string, p *script.Pipe) *Source {
	return &Source{
		name: name,
		pipe: p,
		out:  make(chan model.RawLine, 512),
	}
}

// Name returns the path or label of the input.
func (s *Source) Name() string {
	return s.name
}

// Lines returns the channel where lines are sent. It is closed when Start returns.
func (s *Source) Lines() <-chan model.RawLine {
	return s.out
}

// Start reads the input to the end. It blocks until every line has been
// delivered, the input fails, or ctx is cancelled. Lines end at "\n", "\r\n"
// or a lone "\r" and have no length limit.
func (s *Source) Start(ctx context.Context) error {
	defer close(s.out)

	if err := s.pipe.Error(); err != nil {
		return fmt.Errorf("open %s: %w", s.name, err)
	}

	n := 0
	cancelled := false
	_, err := s.pipe.
		ReplaceRegexp(bareCR, "\n").
		FilterScan(func(line string, _ io.Writer) {
			if cancelled {
				return
			}
			n++
			select {
			case s.out <- model.RawLine{Text: line, Source: s.name, Number: n}:
			case <-ctx.Done():
				cancelled = true
			}
		}).
		String()
	if cancelled {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.name, err)
	}
	return nil
}
