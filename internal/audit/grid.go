package audit

import (
	"context"
	"errors"
)

var (
	ErrTableExists   = errors.New("audit table already exists")
	ErrTableNotFound = errors.New("audit table not found")
	ErrMalformed     = errors.New("audit table header is malformed")
	ErrRowMissing    = errors.New("attendee row missing from audit table")
	ErrEmptyEntry    = errors.New("audit entry must not be empty")
)

// Grid is a spreadsheet-shaped store. Tables are addressed by title, cells by
// zero-based row and column; row 0 is the header. Rows may be ragged: a cell
// past the end of a row reads as empty.
type Grid interface {
	CreateSheet(ctx context.Context, title string, header []string) error
	ReadSheet(ctx context.Context, title string) ([][]string, error)
	AppendRow(ctx context.Context, title string, values []string) error
	SetCell(ctx context.Context, title string, row, col int, value string) error
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
