package audit

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGrid keeps tables in process memory. It backs the "memory" mirror
// backend and the tests.
type MemoryGrid struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

func NewMemoryGrid() *MemoryGrid {
	return &MemoryGrid{sheets: make(map[string][][]string)}
}

func (g *MemoryGrid) CreateSheet(_ context.Context, title string, header []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.sheets[title]; ok {
		return fmt.Errorf("%w: %q", ErrTableExists, title)
	}
	g.sheets[title] = [][]string{append([]string(nil), header...)}
	return nil
}

func (g *MemoryGrid) ReadSheet(_ context.Context, title string) ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rows, ok := g.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, title)
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (g *MemoryGrid) AppendRow(_ context.Context, title string, values []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, ok := g.sheets[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, title)
	}
	g.sheets[title] = append(rows, append([]string(nil), values...))
	return nil
}

func (g *MemoryGrid) SetCell(_ context.Context, title string, row, col int, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rows, ok := g.sheets[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, title)
	}
	if row < 0 || row >= len(rows) || col < 0 {
		return fmt.Errorf("cell (%d,%d) out of range in %q", row, col, title)
	}
	for len(rows[row]) <= col {
		rows[row] = append(rows[row], "")
	}
	rows[row][col] = value
	return nil
}
