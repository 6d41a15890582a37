package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registeredAt = time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

func newGalaTable(t *testing.T) (*Log, *MemoryGrid) {
	t.Helper()
	grid := NewMemoryGrid()
	log := NewLog(grid, nil)
	require.NoError(t, log.CreateTable(context.Background(), "Gala", []string{"Name", "Phone"}))
	return log, grid
}

func register(t *testing.T, log *Log, key, name string) {
	t.Helper()
	require.NoError(t, log.EnsureRow(context.Background(), "Gala", IdentityRow{
		Key:          key,
		Fields:       map[string]string{"Name": name, "Phone": "555"},
		Status:       "Registered",
		RegisteredAt: registeredAt,
	}))
}

func readSheet(t *testing.T, grid *MemoryGrid) [][]string {
	t.Helper()
	sheet, err := grid.ReadSheet(context.Background(), "Gala")
	require.NoError(t, err)
	return sheet
}

func TestCreateTable_Header(t *testing.T) {
	_, grid := newGalaTable(t)

	sheet := readSheet(t, grid)
	assert.Equal(t, [][]string{{"Name", "Phone", "QR_ID", "Status", "Timestamp"}}, sheet)
}

func TestCreateTable_AlreadyExists(t *testing.T) {
	log, _ := newGalaTable(t)

	err := log.CreateTable(context.Background(), "Gala", []string{"Name"})
	assert.ErrorIs(t, err, ErrTableExists)
}

func TestEnsureRow_WritesIdentity(t *testing.T) {
	log, grid := newGalaTable(t)
	register(t, log, "QR-A", "Kai")

	sheet := readSheet(t, grid)
	require.Len(t, sheet, 2)
	assert.Equal(t, []string{"Kai", "555", "QR-A", "Registered", "2026-03-01 18:30:00"}, sheet[1])
}

func TestEnsureRow_Idempotent(t *testing.T) {
	log, grid := newGalaTable(t)
	register(t, log, "QR-A", "Kai")
	register(t, log, "QR-A", "Kai")

	assert.Len(t, readSheet(t, grid), 2)
}

func TestEnsureRow_LeavesAllocatedStatusColumnsEmpty(t *testing.T) {
	log, grid := newGalaTable(t)
	ctx := context.Background()
	register(t, log, "QR-A", "Kai")
	_, err := log.AppendEntry(ctx, "Gala", "QR-A", "Enter")
	require.NoError(t, err)

	register(t, log, "QR-B", "Mo")

	sheet := readSheet(t, grid)
	assert.Equal(t, []string{"Mo", "555", "QR-B", "Registered", "2026-03-01 18:30:00", ""}, sheet[2])
}

func TestEnsureRow_TableNotFound(t *testing.T) {
	log := NewLog(NewMemoryGrid(), nil)

	err := log.EnsureRow(context.Background(), "Missing", IdentityRow{Key: "QR-A"})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestAppendEntry_FillsLegacyStatusFirst(t *testing.T) {
	grid := NewMemoryGrid()
	log := NewLog(grid, nil)
	ctx := context.Background()
	require.NoError(t, grid.CreateSheet(ctx, "Gala", []string{"Name", "QR_ID", "Status"}))
	require.NoError(t, grid.AppendRow(ctx, "Gala", []string{"Kai", "QR-A"}))

	actions := []string{"Entered", "Break", "Entered", "Exited"}
	for i, action := range actions {
		ordinal, err := log.AppendEntry(ctx, "Gala", "QR-A", action)
		require.NoError(t, err)
		assert.Equal(t, i+1, ordinal)
	}

	sheet := readSheet(t, grid)
	assert.Equal(t, []string{"Name", "QR_ID", "Status", "Status 2", "Status 3", "Status 4"}, sheet[0])
	assert.Len(t, StatusColumns(sheet[0]), len(actions))

	trail, err := log.Trail(ctx, "Gala", "QR-A")
	require.NoError(t, err)
	assert.Equal(t, actions, trail)
}

func TestAppendEntry_AfterRegistrationAllocatesStatus2(t *testing.T) {
	log, grid := newGalaTable(t)
	register(t, log, "QR-A", "Kai")

	ordinal, err := log.AppendEntry(context.Background(), "Gala", "QR-A", "Enter To Event")
	require.NoError(t, err)
	assert.Equal(t, 2, ordinal)

	sheet := readSheet(t, grid)
	assert.Equal(t, []string{"Name", "Phone", "QR_ID", "Status", "Timestamp", "Status 2"}, sheet[0])
	assert.Equal(t, "Registered", sheet[1][3])
	assert.Equal(t, "Enter To Event", sheet[1][5])
}

func TestAppendEntry_NeverOverwrites(t *testing.T) {
	log, grid := newGalaTable(t)
	ctx := context.Background()
	register(t, log, "QR-A", "Kai")

	var snapshots [][]string
	for i := 0; i < 5; i++ {
		_, err := log.AppendEntry(ctx, "Gala", "QR-A", fmt.Sprintf("step-%d", i))
		require.NoError(t, err)
		snapshots = append(snapshots, readSheet(t, grid)[1])
	}

	for i := 1; i < len(snapshots); i++ {
		prev, cur := snapshots[i-1], snapshots[i]
		for col, v := range prev {
			if v != "" {
				assert.Equal(t, v, cur[col], "cell %d changed after call %d", col, i)
			}
		}
	}

	trail, err := log.Trail(ctx, "Gala", "QR-A")
	require.NoError(t, err)
	assert.Equal(t, []string{"Registered", "step-0", "step-1", "step-2", "step-3", "step-4"}, trail)
}

func TestAppendEntry_RowsAreIndependent(t *testing.T) {
	log, grid := newGalaTable(t)
	ctx := context.Background()
	register(t, log, "QR-A", "Kai")
	register(t, log, "QR-B", "Mo")

	for _, a := range []string{"Entered", "Break", "Entered"} {
		_, err := log.AppendEntry(ctx, "Gala", "QR-A", a)
		require.NoError(t, err)
	}

	ordinal, err := log.AppendEntry(ctx, "Gala", "QR-B", "Entered")
	require.NoError(t, err)
	assert.Equal(t, 2, ordinal, "B reuses the column A allocated")

	sheet := readSheet(t, grid)
	assert.Equal(t, []string{"Name", "Phone", "QR_ID", "Status", "Timestamp", "Status 2", "Status 3", "Status 4"}, sheet[0])

	trailA, err := log.Trail(ctx, "Gala", "QR-A")
	require.NoError(t, err)
	trailB, err := log.Trail(ctx, "Gala", "QR-B")
	require.NoError(t, err)
	assert.Equal(t, []string{"Registered", "Entered", "Break", "Entered"}, trailA)
	assert.Equal(t, []string{"Registered", "Entered"}, trailB)
}

func TestAppendEntry_RowMissing(t *testing.T) {
	log, _ := newGalaTable(t)

	_, err := log.AppendEntry(context.Background(), "Gala", "QR-unknown", "Entered")
	assert.ErrorIs(t, err, ErrRowMissing)
}

func TestAppendEntry_EmptyValue(t *testing.T) {
	log, _ := newGalaTable(t)
	register(t, log, "QR-A", "Kai")

	_, err := log.AppendEntry(context.Background(), "Gala", "QR-A", "   ")
	assert.ErrorIs(t, err, ErrEmptyEntry)
}

func TestAppendEntry_MalformedTable(t *testing.T) {
	grid := NewMemoryGrid()
	ctx := context.Background()
	require.NoError(t, grid.CreateSheet(ctx, "Gala", []string{"Name", "Status"}))

	_, err := NewLog(grid, nil).AppendEntry(ctx, "Gala", "QR-A", "Entered")
	assert.ErrorIs(t, err, ErrMalformed)
}

type failingGrid struct {
	*MemoryGrid
	failRow int
}

func (g *failingGrid) SetCell(ctx context.Context, title string, row, col int, value string) error {
	if row == g.failRow {
		return errors.New("quota exceeded")
	}
	return g.MemoryGrid.SetCell(ctx, title, row, col, value)
}

func TestAppendEntry_HeaderWriteFailure(t *testing.T) {
	grid := &failingGrid{MemoryGrid: NewMemoryGrid(), failRow: 0}
	log := NewLog(grid, nil)
	ctx := context.Background()
	require.NoError(t, log.CreateTable(ctx, "Gala", []string{"Name"}))
	require.NoError(t, log.EnsureRow(ctx, "Gala", IdentityRow{Key: "QR-A", Status: "Registered"}))

	_, err := log.AppendEntry(ctx, "Gala", "QR-A", "Entered")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allocate Status 2")

	sheet, err := grid.ReadSheet(ctx, "Gala")
	require.NoError(t, err)
	assert.Len(t, sheet[0], 4, "header unchanged")
}

func TestAppendEntry_ConcurrentSameKeyLosesNothing(t *testing.T) {
	log, _ := newGalaTable(t)
	ctx := context.Background()
	register(t, log, "QR-A", "Kai")

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := log.AppendEntry(ctx, "Gala", "QR-A", fmt.Sprintf("scan-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	trail, err := log.Trail(ctx, "Gala", "QR-A")
	require.NoError(t, err)
	assert.Len(t, trail, n+1)
}

func TestStatusHeaderAndColumns(t *testing.T) {
	assert.Equal(t, "Status 7", StatusHeader(7))
	assert.Equal(t, []int{3, 5}, StatusColumns([]string{"Name", "Phone", "QR_ID", "Status", "Timestamp", "Status 2"}))
	assert.Empty(t, StatusColumns([]string{"Name", "QR_ID"}))
}

func TestIsReservedField(t *testing.T) {
	assert.True(t, IsReservedField("QR_ID"))
	assert.True(t, IsReservedField("Timestamp"))
	assert.True(t, IsReservedField("Status"))
	assert.True(t, IsReservedField("Status Note"))
	assert.False(t, IsReservedField("Name"))
	assert.False(t, IsReservedField("status"))
}
