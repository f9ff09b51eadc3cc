package logsink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"jubily/internal/pkg/logger"
	"jubily/internal/util"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

const logTab = "Automation Log"

// Sheets appends rows to the Automation Log tab of a Google spreadsheet.
// The tab is kept bounded: when the data rows exceed maxRows, the oldest
// trimBatch rows are deleted before the next append.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	maxRows       int
	trimBatch     int
	log           *logger.Logger

	mu      sync.Mutex
	sheetID int64
	loaded  bool
}

// NewSheets builds a sink from GOOGLE_SHEET_ID and the service-account key
// file at GOOGLE_SERVICE_ACCOUNT_FILE. SHEETS_MAX_LOG_ROWS and
// SHEETS_TRIM_BATCH tune the bounded-size policy.
func NewSheets(ctx context.Context, log *logger.Logger) (*Sheets, error) {
	keyFile := util.MustEnv("GOOGLE_SERVICE_ACCOUNT_FILE")

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(keyFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("build sheets service: %w", err)
	}

	return &Sheets{
		svc:           svc,
		spreadsheetID: util.MustEnv("GOOGLE_SHEET_ID"),
		maxRows:       util.IntEnv("SHEETS_MAX_LOG_ROWS", 5000),
		trimBatch:     util.IntEnv("SHEETS_TRIM_BATCH", 500),
		log:           log.WithComponent("logsink"),
	}, nil
}

// Append writes one row. Errors are logged and swallowed so a sink outage
// never fails a publish.
func (s *Sheets) Append(ctx context.Context, e Entry) {
	if err := s.trimIfNeeded(ctx); err != nil {
		s.log.Warn("log trim failed", "error", err)
	}

	_, err := s.svc.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("'%s'", logTab),
		&sheets.ValueRange{Values: [][]any{e.Row()}},
	).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()

	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "above the limit of 10000000 cells"):
			s.log.Warn("sheet cell limit reached, skipping append")
		case strings.Contains(msg, "Quota exceeded"):
			s.log.Warn("sheets quota exceeded, skipping append")
		default:
			s.log.Error("sheet append failed", "error", err)
		}
	}
}

// Recent returns up to limit data rows, newest first. The header row is
// skipped when present.
func (s *Sheets) Recent(ctx context.Context, limit int) ([][]any, error) {
	res, err := s.svc.Spreadsheets.Values.Get(
		s.spreadsheetID,
		fmt.Sprintf("'%s'", logTab),
	).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	rows := res.Values
	if len(rows) == 0 {
		return nil, nil
	}

	if first, ok := rows[0][0].(string); ok {
		switch strings.ToLower(first) {
		case "jobid", "id":
			rows = rows[1:]
		}
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	out := make([][]any, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i])
	}
	return out, nil
}

// trimIfNeeded deletes the oldest trimBatch data rows once a value appears
// past the allowed range. Row 1 is the header and is always kept.
func (s *Sheets) trimIfNeeded(ctx context.Context) error {
	if err := s.ensureSheetID(ctx); err != nil {
		return err
	}

	overflowRow := s.maxRows + 2
	check, err := s.svc.Spreadsheets.Values.Get(
		s.spreadsheetID,
		fmt.Sprintf("'%s'!A%d:A%d", logTab, overflowRow, overflowRow),
	).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(check.Values) == 0 {
		return nil
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    s.sheetID,
					Dimension:  "ROWS",
					StartIndex: 1,
					EndIndex:   int64(1 + s.trimBatch),
				},
			},
		}},
	}).Context(ctx).Do()
	return err
}

func (s *Sheets) ensureSheetID(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == logTab {
			s.sheetID = sh.Properties.SheetId
			s.loaded = true
			return nil
		}
	}
	return fmt.Errorf("sheet tab %q not found", logTab)
}
