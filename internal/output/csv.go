package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/atikulmunna/logrank/internal/model"
)

// Default report file names.
const (
	DefaultStatusFile  = "operational_patterns.csv"
	DefaultErrorIPFile = "ip_anomalies.csv"
)

// CSVSink persists the two reports as comma-delimited files with a header row.
type CSVSink struct {
	Dir         string
	StatusFile  string
	ErrorIPFile string
}

// NewCSVSink returns a sink writing the default file names into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{
		Dir:         dir,
		StatusFile:  DefaultStatusFile,
		ErrorIPFile: DefaultErrorIPFile,
	}
}

// Write stores both reports and returns the paths written, status first.
func (s *CSVSink) Write(status, errorIPs model.Report) ([]string, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	var written []string
	for _, item := range []struct {
		name string
		rep  model.Report
	}{
		{s.StatusFile, status},
		{s.ErrorIPFile, errorIPs},
	} {
		path := filepath.Join(s.Dir, item.name)
		if err := writeFile(path, item.rep); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// writeFile writes rep to a temp file and renames it into place.
func writeFile(path string, rep model.Report) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteCSV(f, rep); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

// WriteCSV writes the header row followed by one row per entry in report order.
func WriteCSV(w io.Writer, rep model.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{rep.KeyColumn, rep.CountColumn}); err != nil {
		return err
	}
	for _, e := range rep.Entries {
		if err := cw.Write([]string{e.Key, strconv.FormatInt(e.Count, 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
