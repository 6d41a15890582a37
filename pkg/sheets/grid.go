package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/Sayan2713/QR-Generator-Verify-System/internal/audit"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultColumnCount = 26

// Grid stores audit tables as tabs of one Google spreadsheet.
type Grid struct {
	svc           *sheets.Service
	spreadsheetID string
}

// LoadCredentials returns service account JSON from the inline value when set,
// otherwise from keyFile.
func LoadCredentials(inline, keyFile string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Wrapf(err, "google credentials not found: set GOOGLE_SERVICE_ACCOUNT_JSON or provide %s", keyFile)
	}
	return data, nil
}

func NewGrid(ctx context.Context, spreadsheetID string, credentials []byte) (*Grid, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	conf, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, errors.Wrap(err, "invalid service account credentials")
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(context.Background())))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets client")
	}
	return &Grid{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewGridWithClient talks to endpoint with a preconfigured HTTP client.
func NewGridWithClient(ctx context.Context, spreadsheetID, endpoint string, client *http.Client) (*Grid, error) {
	svc, err := sheets.NewService(ctx, option.WithEndpoint(endpoint), option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sheets client")
	}
	return &Grid{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *Grid) CreateSheet(ctx context.Context, title string, header []string) error {
	props, err := g.sheetProperties(ctx, title)
	if err != nil {
		return err
	}
	if props != nil {
		return fmt.Errorf("%w: %q", audit.ErrTableExists, title)
	}

	cols := int64(defaultColumnCount)
	if n := int64(len(header)); n > cols {
		cols = n
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:          title,
					GridProperties: &sheets.GridProperties{ColumnCount: cols, RowCount: 1000},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "failed to add sheet %q", title)
	}

	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, cellRange(title, 0, 0), rowValues(header)).
		ValueInputOption("RAW").Context(ctx).Do()
	return errors.Wrapf(err, "failed to write header of %q", title)
}

func (g *Grid) ReadSheet(ctx context.Context, title string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteTitle(title)).Context(ctx).Do()
	if err != nil {
		if isUnknownRange(err) {
			return nil, fmt.Errorf("%w: %q", audit.ErrTableNotFound, title)
		}
		return nil, errors.Wrapf(err, "failed to read sheet %q", title)
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

func (g *Grid) AppendRow(ctx context.Context, title string, values []string) error {
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quoteTitle(title), rowValues(values)).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil && isUnknownRange(err) {
		return fmt.Errorf("%w: %q", audit.ErrTableNotFound, title)
	}
	return errors.Wrapf(err, "failed to append row to %q", title)
}

// SetCell writes a single cell. Header writes past the sheet's grid width
// first widen the sheet.
func (g *Grid) SetCell(ctx context.Context, title string, row, col int, value string) error {
	if row == 0 {
		if err := g.ensureColumns(ctx, title, col+1); err != nil {
			return err
		}
	}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, cellRange(title, row, col), rowValues([]string{value})).
		ValueInputOption("RAW").Context(ctx).Do()
	return errors.Wrapf(err, "failed to write %s", cellRange(title, row, col))
}

func (g *Grid) ensureColumns(ctx context.Context, title string, want int) error {
	props, err := g.sheetProperties(ctx, title)
	if err != nil {
		return err
	}
	if props == nil {
		return fmt.Errorf("%w: %q", audit.ErrTableNotFound, title)
	}
	have := int64(0)
	if props.GridProperties != nil {
		have = props.GridProperties.ColumnCount
	}
	if have >= int64(want) {
		return nil
	}

	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AppendDimension: &sheets.AppendDimensionRequest{
				SheetId:   props.SheetId,
				Dimension: "COLUMNS",
				Length:    int64(want) - have,
			},
		}},
	}).Context(ctx).Do()
	return errors.Wrapf(err, "failed to widen sheet %q", title)
}

func (g *Grid) sheetProperties(ctx context.Context, title string) (*sheets.SheetProperties, error) {
	ss, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load spreadsheet")
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties, nil
		}
	}
	return nil, nil
}

// ColumnName converts a zero-based column index to A1 letters (0 → A, 26 → AA).
func ColumnName(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func cellRange(title string, row, col int) string {
	return quoteTitle(title) + "!" + ColumnName(col) + strconv.Itoa(row+1)
}

func rowValues(values []string) *sheets.ValueRange {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return &sheets.ValueRange{Values: [][]interface{}{row}}
}

func isUnknownRange(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}
