package stockimport

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParsedFile is the raw content of an upload: one header row followed by
// candidate stock records. No fixed column order is assumed.
type ParsedFile struct {
	Headers []string
	Records [][]string
}

// ParseUpload reads an uploaded purchase file. Excel workbooks are detected
// by extension; everything else is treated as delimited text.
func ParseUpload(filename string, r io.Reader) (ParsedFile, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseXLSX(r)
	}
	return ParseCSV(r)
}

// ParseCSV reads delimited text. The delimiter is sniffed from the header
// line: tab and semicolon are common in supplier exports alongside commas.
func ParseCSV(r io.Reader) (ParsedFile, error) {
	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return ParsedFile{}, fmt.Errorf("stockimport: read upload: %w", err)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = sniffDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return ParsedFile{}, fmt.Errorf("stockimport: parse delimited file: %w", err)
	}
	return splitHeader(rows)
}

// ParseXLSX reads the first sheet of an Excel workbook.
func ParseXLSX(r io.Reader) (ParsedFile, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return ParsedFile{}, fmt.Errorf("stockimport: open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return ParsedFile{}, ErrEmptyFile
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return ParsedFile{}, fmt.Errorf("stockimport: read sheet: %w", err)
	}
	return splitHeader(rows)
}

func splitHeader(rows [][]string) (ParsedFile, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ParsedFile{}, ErrEmptyFile
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return ParsedFile{Headers: headers, Records: rows[1:]}, nil
}

func sniffDelimiter(head []byte) rune {
	line := string(head)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	switch {
	case strings.ContainsRune(line, '\t'):
		return '\t'
	case strings.ContainsRune(line, ';') && !strings.ContainsRune(line, ','):
		return ';'
	default:
		return ','
	}
}

// BuildRows projects raw records through a column mapping. A field key is set
// only when its column is mapped and the record actually has that cell, so
// later stages can distinguish "explicitly blank" from "not supplied". Line
// numbers count from the top of the file, the header being line 1.
func BuildRows(file ParsedFile, mapping ColumnMapping) []RowValues {
	index := make(map[Field]int, len(mapping))
	for field, column := range mapping {
		if column == "" {
			continue
		}
		for i, header := range file.Headers {
			if header == column {
				index[field] = i
				break
			}
		}
	}

	rows := make([]RowValues, 0, len(file.Records))
	for _, record := range file.Records {
		values := make(RowValues, len(index))
		for field, i := range index {
			if i < len(record) {
				values[field] = record[i]
			}
		}
		rows = append(rows, values)
	}
	return rows
}
