package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/metrics"
)

const (
	CredentialColumn = "QR_ID"
	StatusColumn     = "Status"
	TimestampColumn  = "Timestamp"

	// StatusPrefix selects status columns: the initial "Status" column and
	// every allocated "Status N" column.
	StatusPrefix = "Status"

	TimestampLayout = "2006-01-02 15:04:05"
)

// IdentityRow is the first write for an attendee: declared field values, the
// credential and the initial status.
type IdentityRow struct {
	Key          string
	Fields       map[string]string
	Status       string
	RegisteredAt time.Time
}

// Log is an append-only columnar log over a Grid. Each key owns one row and
// every appended entry lands in that row's leftmost empty status column,
// allocating a new "Status N" column when none is empty. All mutations of a
// table run under a lock keyed by the table title.
type Log struct {
	grid   Grid
	locker Locker
}

func NewLog(grid Grid, locker Locker) *Log {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Log{grid: grid, locker: locker}
}

// IdentityHeader is the header of a new table for the given declared fields.
func IdentityHeader(fields []string) []string {
	header := make([]string, 0, len(fields)+3)
	header = append(header, fields...)
	return append(header, CredentialColumn, StatusColumn, TimestampColumn)
}

// StatusHeader names the status column with the given 1-based ordinal.
func StatusHeader(ordinal int) string {
	return StatusPrefix + " " + strconv.Itoa(ordinal)
}

// StatusColumns returns the header positions whose text starts with "Status",
// in header order.
func StatusColumns(header []string) []int {
	var cols []int
	for i, h := range header {
		if strings.HasPrefix(h, StatusPrefix) {
			cols = append(cols, i)
		}
	}
	return cols
}

// IsReservedField reports whether a declared field name would clash with the
// columns the log manages.
func IsReservedField(name string) bool {
	return name == CredentialColumn || name == TimestampColumn || strings.HasPrefix(name, StatusPrefix)
}

func (l *Log) CreateTable(ctx context.Context, table string, fields []string) error {
	unlock, err := l.lock(ctx, table)
	if err != nil {
		return err
	}
	defer unlock()

	return l.grid.CreateSheet(ctx, table, IdentityHeader(fields))
}

// EnsureRow appends the identity row for r.Key unless the table already has one.
func (l *Log) EnsureRow(ctx context.Context, table string, r IdentityRow) error {
	unlock, err := l.lock(ctx, table)
	if err != nil {
		return err
	}
	defer unlock()

	sheet, keyCol, err := l.read(ctx, table)
	if err != nil {
		return err
	}
	if findRow(sheet, keyCol, r.Key) >= 0 {
		return nil
	}

	header := sheet[0]
	row := make([]string, len(header))
	for i, h := range header {
		switch {
		case i == keyCol:
			row[i] = r.Key
		case h == StatusColumn:
			row[i] = r.Status
		case h == TimestampColumn:
			row[i] = r.RegisteredAt.Format(TimestampLayout)
		case strings.HasPrefix(h, StatusPrefix):
			// allocated by other rows; stays empty until this row needs it
		default:
			row[i] = r.Fields[h]
		}
	}
	return l.grid.AppendRow(ctx, table, row)
}

// AppendEntry records value in the key's row and returns the 1-based ordinal
// of the status column it landed in. A written cell is never overwritten.
func (l *Log) AppendEntry(ctx context.Context, table, key, value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, ErrEmptyEntry
	}

	unlock, err := l.lock(ctx, table)
	if err != nil {
		return 0, err
	}
	defer unlock()

	sheet, keyCol, err := l.read(ctx, table)
	if err != nil {
		return 0, err
	}
	rowIdx := findRow(sheet, keyCol, key)
	if rowIdx < 0 {
		return 0, fmt.Errorf("%w: %s in %q", ErrRowMissing, key, table)
	}

	header, row := sheet[0], sheet[rowIdx]
	statusCols := StatusColumns(header)

	target, ordinal := -1, 0
	for i, col := range statusCols {
		if cell(row, col) == "" {
			target, ordinal = col, i+1
			break
		}
	}

	if target < 0 {
		ordinal = len(statusCols) + 1
		target = len(header)
		if err := l.grid.SetCell(ctx, table, 0, target, StatusHeader(ordinal)); err != nil {
			return 0, fmt.Errorf("allocate %s in %q: %w", StatusHeader(ordinal), table, err)
		}
		metrics.StatusColumnsAllocated.Inc()
	}

	if err := l.grid.SetCell(ctx, table, rowIdx, target, value); err != nil {
		return 0, fmt.Errorf("write status for %s in %q: %w", key, table, err)
	}
	return ordinal, nil
}

// Trail returns the key's non-empty status cells in column order.
func (l *Log) Trail(ctx context.Context, table, key string) ([]string, error) {
	sheet, keyCol, err := l.read(ctx, table)
	if err != nil {
		return nil, err
	}
	rowIdx := findRow(sheet, keyCol, key)
	if rowIdx < 0 {
		return nil, fmt.Errorf("%w: %s in %q", ErrRowMissing, key, table)
	}

	var trail []string
	for _, col := range StatusColumns(sheet[0]) {
		if v := cell(sheet[rowIdx], col); v != "" {
			trail = append(trail, v)
		}
	}
	return trail, nil
}

func (l *Log) lock(ctx context.Context, table string) (func(), error) {
	unlock, err := l.locker.Lock(ctx, "audit:"+table)
	if err != nil {
		return nil, fmt.Errorf("lock audit table %q: %w", table, err)
	}
	return unlock, nil
}

// read fetches the whole table fresh; no schema is cached between calls.
func (l *Log) read(ctx context.Context, table string) ([][]string, int, error) {
	sheet, err := l.grid.ReadSheet(ctx, table)
	if err != nil {
		return nil, -1, err
	}
	if len(sheet) == 0 {
		return nil, -1, fmt.Errorf("%w: %q has no header row", ErrMalformed, table)
	}
	keyCol := indexOf(sheet[0], CredentialColumn)
	if keyCol < 0 {
		return nil, -1, fmt.Errorf("%w: %q has no %s column", ErrMalformed, table, CredentialColumn)
	}
	return sheet, keyCol, nil
}

func findRow(sheet [][]string, keyCol int, key string) int {
	for i := 1; i < len(sheet); i++ {
		if cell(sheet[i], keyCol) == key {
			return i
		}
	}
	return -1
}
