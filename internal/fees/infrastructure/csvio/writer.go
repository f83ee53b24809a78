package csvio

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"

	fees "library-fees/internal/fees/domain"
)

// WriteReport writes the header and one row per patron in report order.
func WriteReport(w io.Writer, report fees.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{fees.ColumnPatronID, fees.ColumnLateFees}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{row.PatronID, row.FormattedLateFees()}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeReport renders report as CSV bytes.
func EncodeReport(report fees.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileSink replaces the contents of a file with a report. The file is
// created only when a report is written.
type FileSink struct {
	path string
}

// NewFileSink constructs a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the output path.
func (s *FileSink) Path() string {
	return s.path
}

// WriteReport truncates the file and writes report. A failure part way
// leaves the partially written file in place.
func (s *FileSink) WriteReport(ctx context.Context, report fees.Report) (err error) {
	_ = ctx
	file, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteReport(file, report)
}

// BufferSink keeps the encoded report in memory.
type BufferSink struct {
	buf bytes.Buffer
}

// WriteReport replaces the buffered contents with report.
func (s *BufferSink) WriteReport(ctx context.Context, report fees.Report) error {
	_ = ctx
	s.buf.Reset()
	return WriteReport(&s.buf, report)
}

// Bytes returns the buffered CSV.
func (s *BufferSink) Bytes() []byte {
	return s.buf.Bytes()
}
