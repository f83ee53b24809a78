package csvio

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"os"
	"strings"

	fees "library-fees/internal/fees/domain"
)

// Reader reads loan records from CSV input with a header row.
type Reader struct {
	csv     *csv.Reader
	hash    hash.Hash
	columns map[string]int
	done    bool
}

// NewReader reads and validates the header. A header without every
// required column fails with a MissingFieldError before any row is read.
func NewReader(r io.Reader) (*Reader, error) {
	h := sha256.New()
	reader := csv.NewReader(io.TeeReader(r, h))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &fees.MissingFieldError{Field: fees.ColumnPatronID}
	}
	if err != nil {
		return nil, malformed(err, header)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := columns[name]; !ok {
			columns[name] = i
		}
	}
	for _, required := range fees.RequiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, &fees.MissingFieldError{Field: required}
		}
	}

	return &Reader{csv: reader, hash: h, columns: columns}, nil
}

// Next returns the next row, or io.EOF once the input is exhausted.
func (r *Reader) Next() (fees.RawLoanRecord, error) {
	if r.done {
		return fees.RawLoanRecord{}, io.EOF
	}
	row, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return fees.RawLoanRecord{}, io.EOF
	}
	if err != nil {
		return fees.RawLoanRecord{}, malformed(err, row)
	}
	line, _ := r.csv.FieldPos(0)
	return fees.RawLoanRecord{
		Line:         line,
		PatronID:     row[r.columns[fees.ColumnPatronID]],
		DateDue:      row[r.columns[fees.ColumnDateDue]],
		DateReturned: row[r.columns[fees.ColumnDateReturned]],
		Row:          encodeRow(row),
	}, nil
}

// Digest returns the hex SHA-256 of the bytes consumed so far. After Next
// has returned io.EOF it covers the whole input.
func (r *Reader) Digest() string {
	return hex.EncodeToString(r.hash.Sum(nil))
}

func malformed(err error, row []string) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return &fees.MalformedRecordError{
			Line:   parseErr.Line,
			Row:    encodeRow(row),
			Reason: parseErr.Err.Error(),
		}
	}
	return err
}

// encodeRow renders row as one CSV line, quoting fields where needed.
func encodeRow(row []string) string {
	if len(row) == 0 {
		return ""
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(row)
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// FileReader is a Reader over an open file.
type FileReader struct {
	*Reader
	file *os.File
}

// OpenFile opens path for reading. A missing or unreadable path fails with
// an InputNotFoundError.
func OpenFile(path string) (*FileReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &fees.InputNotFoundError{Path: path, Err: err}
	}
	if info, err := file.Stat(); err != nil || info.IsDir() {
		_ = file.Close()
		if err == nil {
			err = errors.New("is a directory")
		}
		return nil, &fees.InputNotFoundError{Path: path, Err: err}
	}
	reader, err := NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &FileReader{Reader: reader, file: file}, nil
}

// Close releases the file handle.
func (f *FileReader) Close() error {
	if f == nil || f.file == nil {
		return nil
	}
	return f.file.Close()
}
