package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"quartergrid/internal/core"
	ports "quartergrid/internal/sheets"
	"quartergrid/internal/workbook"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// lastColumn is the spreadsheet column of the trailing row index.
const lastColumn = "S"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
	now           func() time.Time
}

// Ensure interface conformance
var (
	_ ports.SubmissionWriter = (*Client)(nil)
	_ ports.TableExporter    = (*Client)(nil)
	_ ports.SnapshotReader   = (*Client)(nil)
)

// Options configures a Client. One of CredentialsJSON or CredentialsFile
// is required unless extra client options provide authentication.
type Options struct {
	SpreadsheetID   string
	SheetPrefix     string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options, extra ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	prefix := strings.TrimSpace(opts.SheetPrefix)
	if prefix == "" {
		prefix = "Table"
	}

	svc, err := newSheetsService(ctx, opts, extra...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: prefix, now: time.Now}, nil
}

// newSheetsService initializes a Sheets Service. Extra options, when given,
// replace service account credentials.
func newSheetsService(ctx context.Context, opts Options, extra ...goption.ClientOption) (*gsheet.Service, error) {
	if len(extra) > 0 {
		return gsheet.NewService(ctx, extra...)
	}

	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// SheetPrefix returns the prefix used for table tabs.
func (c *Client) SheetPrefix() string {
	return c.prefix
}

// Save exports every table of the accepted grid and returns the range of
// the first one.
func (c *Client) Save(ctx context.Context, sessionID string, acc *core.Accepted) (string, error) {
	if acc == nil {
		return "", errors.New("nil submission")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	for _, table := range acc.Grid.Tables {
		if err := c.ExportTable(ctx, ports.SheetName(c.prefix, table.Index), table); err != nil {
			return "", err
		}
	}
	slog.InfoContext(ctx, "Submission exported to sheets", "session_id", sessionID, "tables", len(acc.Grid.Tables))
	first := ports.SheetName(c.prefix, 1)
	return fmt.Sprintf("%s!A1:%s%d", first, lastColumn, acc.State.Rows+1), nil
}

// ExportTable replaces the contents of sheet with the table, creating the
// tab when it is missing.
func (c *Client) ExportTable(ctx context.Context, sheet string, table core.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:%s", sheet, lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := tableValues(table)
	rng := fmt.Sprintf("%s!A1:%s%d", sheet, lastColumn, len(values))
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

// ReadSnapshot reads consecutive "<prefix> N" tabs starting at 1.
func (c *Client) ReadSnapshot(ctx context.Context) (core.State, core.Snapshot, error) {
	if c.svc == nil {
		return core.State{}, nil, errors.New("sheets service not initialized")
	}
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return core.State{}, nil, err
	}

	var tables []workbook.ParsedTable
	for n := 1; titles[ports.SheetName(c.prefix, n)]; n++ {
		rng := fmt.Sprintf("%s!A1:%s", ports.SheetName(c.prefix, n), lastColumn)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return core.State{}, nil, fmt.Errorf("read %s: %w", rng, err)
		}
		parsed, err := parseTable(resp.Values, n)
		if err != nil {
			return core.State{}, nil, fmt.Errorf("parse %s: %w", rng, err)
		}
		tables = append(tables, parsed)
	}
	if len(tables) == 0 {
		return core.State{}, nil, fmt.Errorf("no %q sheets found", ports.SheetName(c.prefix, 1))
	}
	return workbook.Assemble(tables, c.now().Year())
}

func (c *Client) sheetTitles(ctx context.Context) (map[string]bool, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	titles := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}
	return titles, nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	titles, err := c.sheetTitles(ctx)
	if err != nil {
		return err
	}
	if titles[sheet] {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	return nil
}
