package cvr

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"cvranon/internal/logging"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"
)

const (
	headerRows     = 4
	terminatorScan = 1024
	utf8BOM        = "\ufeff"
)

// DetectLineTerminator inspects the first KiB of data for the record separator.
func DetectLineTerminator(head []byte) string {
	if len(head) > terminatorScan {
		head = head[:terminatorScan]
	}
	switch {
	case bytes.Contains(head, []byte("\r\n")):
		return "\r\n"
	case bytes.Contains(head, []byte("\n")):
		return "\n"
	case bytes.Contains(head, []byte("\r")):
		return "\r"
	default:
		return "\n"
	}
}

// ReadCSV parses a CVR table from CSV bytes.
func ReadCSV(data []byte) (*Table, error) {
	term := DetectLineTerminator(data)
	if term == "\r" {
		// encoding/csv only splits on \n
		data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	// Exports carry bare quotes in choice names, e.g. Robert "Bob" Smith.
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) < headerRows {
		return nil, fmt.Errorf("%w: expected %d header rows, found %d rows", ErrMalformedLayout, headerRows, len(records))
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}

	t := &Table{
		Version:        records[0],
		Contests:       records[1],
		Choices:        records[2],
		Headers:        records[3],
		LineTerminator: term,
	}
	for _, rec := range records[headerRows:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadCSVFile reads a CVR table from a CSV file.
func ReadCSVFile(path string) (*Table, error) {
	timer := logging.StartTimer(logging.CategoryIO, "ReadCSVFile")
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t, err := ReadCSV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Get(logging.CategoryIO).Debug("read CSV table",
		zap.String("path", path),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(t.Headers)),
		zap.String("terminator", fmt.Sprintf("%q", t.LineTerminator)))
	return t, nil
}

// WriteCSV writes the table, terminating each record with term.
func WriteCSV(w io.Writer, t *Table, term string) error {
	if term == "" {
		term = "\n"
	}
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	writeRecord := func(rec []string) error {
		buf.Reset()
		if err := cw.Write(rec); err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		line := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
		if _, err := w.Write(line); err != nil {
			return err
		}
		_, err := io.WriteString(w, term)
		return err
	}

	for _, rec := range [][]string{t.Version, t.Contests, t.Choices, t.Headers} {
		if err := writeRecord(rec); err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}
	}
	for i, rec := range t.Rows {
		if err := writeRecord(rec); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

// SaveCSVFile writes the table atomically: the destination only appears
// once the whole file is on disk.
func SaveCSVFile(path string, t *Table, preserveTerminator bool) error {
	timer := logging.StartTimer(logging.CategoryIO, "SaveCSVFile")
	defer timer.Stop()

	term := "\n"
	if preserveTerminator && t.LineTerminator != "" {
		term = t.LineTerminator
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer pf.Cleanup()

	if err := WriteCSV(pf, t, term); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}

	logging.Get(logging.CategoryIO).Debug("wrote CSV table", zap.String("path", path), zap.Int("rows", len(t.Rows)))
	return nil
}
