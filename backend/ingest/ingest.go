// Package ingest decodes contract spreadsheets into a model.Sheet.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/AnTengye/contractvigency/backend/model"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
	ErrEmptySheet        = errors.New("spreadsheet has no header row")
	ErrMalformed         = errors.New("malformed spreadsheet")
)

// FormatFromFilename picks the decoder from the file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// ContentType returns the MIME type stored alongside uploaded files.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Options tune decoding.
type Options struct {
	// Sheet selects a worksheet by name; empty means the first one.
	Sheet string
}

// Decode reads the whole spreadsheet. Trailing empty rows are dropped and every
// data row is padded to the header width.
func Decode(r io.Reader, format Format, opts Options) (model.Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatXLSX:
		rows, err = readXLSX(r, opts.Sheet)
	case FormatCSV:
		rows, err = readCSV(r)
	default:
		return model.Sheet{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return model.Sheet{}, err
	}
	return toSheet(rows)
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	// Raw values keep date cells as serial numbers instead of locale formatted text.
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %w", ErrMalformed, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", ErrMalformed, sheet, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(first) == 0 {
		return nil, ErrEmptySheet
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", ErrMalformed, err)
	}
	return rows, nil
}

// sniffDelimiter prefers ';' when the header line has more of them than ','.
func sniffDelimiter(head []byte) rune {
	line, _, _ := bytes.Cut(head, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func toSheet(rows [][]string) (model.Sheet, error) {
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 || blank(rows[0]) {
		return model.Sheet{}, ErrEmptySheet
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		data = append(data, row)
	}
	return model.Sheet{Header: header, Rows: data}, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
