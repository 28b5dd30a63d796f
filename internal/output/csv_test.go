package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/atikulmunna/logrank/internal/aggregator"
	"github.com/atikulmunna/logrank/internal/model"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult().Status); err != nil {
		t.Fatal(err)
	}

	want := "status_code,count\n404,2\n200,1\n500,1\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestWriteCSVQuotesKeys(t *testing.T) {
	var buf bytes.Buffer
	rep := model.Report{KeyColumn: "ip", CountColumn: "error_count", Entries: []model.Entry{{Key: "a,b", Count: 1}}}
	if err := WriteCSV(&buf, rep); err != nil {
		t.Fatal(err)
	}

	want := "ip,error_count\n\"a,b\",1\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestCSVSinkWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	sink := NewCSVSink(dir)

	res := sampleResult()
	paths, err := sink.Write(res.Status, res.ErrorIPs)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}

	raw, err := os.ReadFile(filepath.Join(dir, DefaultErrorIPFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "ip,error_count\n10.0.0.1,2\n10.0.0.2,1\n"
	if string(raw) != want {
		t.Errorf("expected %q, got %q", want, string(raw))
	}

	if _, err := os.Stat(filepath.Join(dir, DefaultStatusFile+".tmp")); !os.IsNotExist(err) {
		t.Error("expected temp file to be renamed away")
	}
}

func TestCSVSinkEmptyReports(t *testing.T) {
	dir := t.TempDir()
	sink := NewCSVSink(dir)

	status := aggregator.NewStatus().Finalize()
	errorIPs := aggregator.NewErrorIP(aggregator.DefaultErrorThreshold).Finalize()
	if _, err := sink.Write(status, errorIPs); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]string{
		DefaultStatusFile:  "status_code,count\n",
		DefaultErrorIPFile: "ip,error_count\n",
	} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(raw) != want {
			t.Errorf("%s: expected header-only %q, got %q", name, want, string(raw))
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Step("Loading %s", "access.log")
	p.Done("complete", "a.csv", "b.csv")

	out := buf.String()
	for _, want := range []string{"Loading access.log", "complete", "• a.csv", "• b.csv"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in %q", want, out)
		}
	}

	var silent *Progress
	silent.Step("ignored")
}
