package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auditSheet struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (auditSheet) TableName() string { return "audit_sheets" }

// auditCell stores one non-empty cell; absent cells read as empty.
type auditCell struct {
	SheetID uint   `gorm:"primaryKey;autoIncrement:false"`
	RowIdx  int    `gorm:"primaryKey;autoIncrement:false"`
	ColIdx  int    `gorm:"primaryKey;autoIncrement:false"`
	Value   string `gorm:"type:text;not null"`
}

func (auditCell) TableName() string { return "audit_cells" }

// GormGrid keeps audit tables in postgres as sparse cells so the service can
// run without a spreadsheet account.
type GormGrid struct {
	db *gorm.DB
}

func NewGormGrid(db *gorm.DB) *GormGrid {
	return &GormGrid{db: db}
}

func (g *GormGrid) AutoMigrate() error {
	return g.db.AutoMigrate(&auditSheet{}, &auditCell{})
}

func (g *GormGrid) CreateSheet(ctx context.Context, title string, header []string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&auditSheet{}).Where("title = ?", title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %q", ErrTableExists, title)
		}

		sheet := auditSheet{Title: title}
		if err := tx.Create(&sheet).Error; err != nil {
			return err
		}
		cells := rowCells(sheet.ID, 0, header)
		if len(cells) == 0 {
			return nil
		}
		return tx.Create(&cells).Error
	})
}

func (g *GormGrid) ReadSheet(ctx context.Context, title string) ([][]string, error) {
	db := g.db.WithContext(ctx)
	sheet, err := findSheet(db, title)
	if err != nil {
		return nil, err
	}

	var cells []auditCell
	if err := db.Where("sheet_id = ?", sheet.ID).Order("row_idx ASC, col_idx ASC").Find(&cells).Error; err != nil {
		return nil, err
	}

	rows := [][]string{{}}
	for _, c := range cells {
		for len(rows) <= c.RowIdx {
			rows = append(rows, []string{})
		}
		for len(rows[c.RowIdx]) <= c.ColIdx {
			rows[c.RowIdx] = append(rows[c.RowIdx], "")
		}
		rows[c.RowIdx][c.ColIdx] = c.Value
	}
	return rows, nil
}

func (g *GormGrid) AppendRow(ctx context.Context, title string, values []string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sheet auditSheet
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("title = ?", title).First(&sheet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %q", ErrTableNotFound, title)
		}
		if err != nil {
			return err
		}

		var last int
		if err := tx.Model(&auditCell{}).
			Select("COALESCE(MAX(row_idx), 0)").
			Where("sheet_id = ?", sheet.ID).
			Scan(&last).Error; err != nil {
			return err
		}

		cells := rowCells(sheet.ID, last+1, values)
		if len(cells) == 0 {
			return nil
		}
		return tx.Create(&cells).Error
	})
}

func (g *GormGrid) SetCell(ctx context.Context, title string, row, col int, value string) error {
	db := g.db.WithContext(ctx)
	sheet, err := findSheet(db, title)
	if err != nil {
		return err
	}

	c := auditCell{SheetID: sheet.ID, RowIdx: row, ColIdx: col, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet_id"}, {Name: "row_idx"}, {Name: "col_idx"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&c).Error
}

func findSheet(db *gorm.DB, title string) (*auditSheet, error) {
	var sheet auditSheet
	err := db.Where("title = ?", title).First(&sheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, title)
	}
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

func rowCells(sheetID uint, row int, values []string) []auditCell {
	var cells []auditCell
	for col, v := range values {
		if v == "" {
			continue
		}
		cells = append(cells, auditCell{SheetID: sheetID, RowIdx: row, ColIdx: col, Value: v})
	}
	return cells
}
