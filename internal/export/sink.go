package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// RowWriter is the serialization sink for export rows. Implementations are
// not safe for concurrent use; the driver serializes writes.
type RowWriter interface {
	WriteHeader(columns []string) error
	WriteRow(row Row) error
	Close() error
}

// Filename builds the timestamped output filename for a run. Colons and dots
// in the timestamp are replaced so the name is valid on Windows.
func Filename(flavor, ext string, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "_", ".", "_").Replace(ts)
	return fmt.Sprintf("export-%s-%s.%s", flavor, ts, ext)
}

// CSVSink streams rows to a UTF-8 CSV file.
type CSVSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates the output file and returns a sink writing to it.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: create %s", path)
	}
	return &CSVSink{f: f, w: csv.NewWriter(f)}, nil
}

func (s *CSVSink) WriteHeader(columns []string) error {
	return eris.Wrap(s.w.Write(columns), "export: write csv header")
}

func (s *CSVSink) WriteRow(row Row) error {
	return eris.Wrap(s.w.Write(row), "export: write csv row")
}

// Close flushes buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.f.Close()
		return eris.Wrap(err, "export: flush csv")
	}
	return eris.Wrap(s.f.Close(), "export: close csv")
}

// XLSXSink collects rows into a single-sheet workbook and saves it on Close.
// tealeg/xlsx builds the workbook in memory, so unlike the CSV sink nothing
// hits disk until the run completes.
type XLSXSink struct {
	path  string
	file  *xlsx.File
	sheet *xlsx.Sheet
}

// NewXLSXSink returns a sink that will save a workbook to path on Close.
func NewXLSXSink(path string) (*XLSXSink, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Agreements")
	if err != nil {
		return nil, eris.Wrap(err, "export: add xlsx sheet")
	}
	return &XLSXSink{path: path, file: f, sheet: sheet}, nil
}

func (s *XLSXSink) WriteHeader(columns []string) error {
	s.appendRow(columns)
	return nil
}

func (s *XLSXSink) WriteRow(row Row) error {
	s.appendRow(row)
	return nil
}

func (s *XLSXSink) appendRow(values []string) {
	r := s.sheet.AddRow()
	for _, v := range values {
		r.AddCell().Value = v
	}
}

func (s *XLSXSink) Close() error {
	return eris.Wrapf(s.file.Save(s.path), "export: save %s", s.path)
}
