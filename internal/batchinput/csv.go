package batchinput

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ammly/AdbSms/internal/domain"
)

const (
	ColumnPhone   = "phone_number"
	ColumnMessage = "message"
)

var (
	ErrEmptyInput     = errors.New("batch input is empty")
	ErrMissingColumns = errors.New("batch input must have phone_number and message columns")
	ErrTooManyRows    = errors.New("batch input has too many rows")
)

// Row is one data line. Line is the 1-based line number in the source file;
// Err is set when the row cannot be dispatched.
type Row struct {
	Line        int
	PhoneNumber string
	Message     string
	Err         error
}

func (r Row) Valid() bool {
	return r.Err == nil
}

// Parse reads CSV with a header row. Column order is free and extra columns
// are ignored. maxRows <= 0 disables the row limit.
func Parse(r io.Reader, maxRows int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	phoneIdx, msgIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case ColumnPhone:
			phoneIdx = i
		case ColumnMessage:
			msgIdx = i
		}
	}
	if phoneIdx < 0 || msgIdx < 0 {
		return nil, ErrMissingColumns
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.Line
			}
			rows = append(rows, Row{Line: line, Err: fmt.Errorf("%w: %v", domain.ErrValidation, err)})
		} else {
			line, _ := reader.FieldPos(0)
			rows = append(rows, parseRecord(line, record, phoneIdx, msgIdx))
		}

		if maxRows > 0 && len(rows) > maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, maxRows)
		}
	}

	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	return rows, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string, maxRows int) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f, maxRows)
}

func parseRecord(line int, record []string, phoneIdx, msgIdx int) Row {
	row := Row{Line: line}

	if len(record) <= phoneIdx || len(record) <= msgIdx {
		row.Err = fmt.Errorf("%w: expected at least %d columns, got %d", domain.ErrValidation, max(phoneIdx, msgIdx)+1, len(record))
		return row
	}

	row.PhoneNumber = strings.TrimSpace(record[phoneIdx])
	row.Message = strings.TrimSpace(record[msgIdx])

	switch {
	case row.PhoneNumber == "":
		row.Err = fmt.Errorf("%w: missing %s", domain.ErrValidation, ColumnPhone)
	case row.Message == "":
		row.Err = fmt.Errorf("%w: missing %s", domain.ErrValidation, ColumnMessage)
	}

	return row
}
