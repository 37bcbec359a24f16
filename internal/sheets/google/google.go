package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"casalfinance/internal/log"
	ports "casalfinance/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// maxCellChars is the Sheets limit for a single cell.
const maxCellChars = 50000

var ErrPayloadTooLarge = errors.New("record too large for a single sheet cell")

// Ensure interface conformance
var _ ports.Syncer = (*Client)(nil)

// Options configures the Sheets sync client.
type Options struct {
	SpreadsheetID string
	// RecordsSheet holds one row per household record (default "Records").
	RecordsSheet string
	// LedgerSheet, when set, receives a readable copy of each household's
	// expenses in a tab named "<household> <LedgerSheet>".
	LedgerSheet     string
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
}

// Client stores each household record as a row of the records sheet:
// household, key, updated at, JSON document.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	recordsSheet  string
	ledgerSheet   string

	mu                 sync.Mutex
	cachedRows         map[string]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	records := strings.TrimSpace(opts.RecordsSheet)
	if records == "" {
		records = "Records"
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		recordsSheet:       records,
		ledgerSheet:        strings.TrimSpace(opts.LedgerSheet),
		cacheValidDuration: ttl,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither is given.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Push replaces the record row for household/key, appending a row the first
// time the record is seen.
func (c *Client) Push(ctx context.Context, household, key string, payload []byte) error {
	if len(payload) > maxCellChars {
		return fmt.Errorf("%w: %s/%s has %d bytes", ErrPayloadTooLarge, household, key, len(payload))
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, _, err := c.rowFor(ctx, household, key, true)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:D%d", c.recordsSheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		household,
		key,
		time.Now().UTC().Format(time.RFC3339),
		string(payload),
	}}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache()
		return fmt.Errorf("update %s: %w", rng, err)
	}

	if key == ledgerKey && c.ledgerSheet != "" {
		if err := c.writeLedger(ctx, household, payload); err != nil {
			// The record row is authoritative; the readable tab is best effort.
			slog.WarnContext(ctx, "Failed to refresh ledger sheet",
				log.FieldComponent, log.ComponentSheets,
				log.FieldHousehold, household,
				"error", err)
		}
	}
	return nil
}

// Pull reads the JSON document last pushed for household/key.
func (c *Client) Pull(ctx context.Context, household, key string) ([]byte, bool, error) {
	if c.svc == nil {
		return nil, false, errors.New("sheets service not initialized")
	}
	row, ok, err := c.rowFor(ctx, household, key, false)
	if err != nil || !ok {
		return nil, false, err
	}
	rng := fmt.Sprintf("%s!D%d", c.recordsSheet, row)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return nil, false, nil
	}
	return []byte(fmt.Sprint(resp.Values[0][0])), true, nil
}

func (c *Client) writeLedger(ctx context.Context, household string, payload []byte) error {
	rows, err := expenseRows(payload)
	if err != nil {
		return err
	}
	sheet := fmt.Sprintf("%s %s", household, c.ledgerSheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet+"!A:H",
		&gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	rng := fmt.Sprintf("%s!A1:H%d", sheet, len(rows))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// rowFor resolves the 1-based sheet row of a record. With allocate set, an
// unknown record gets the next free row.
func (c *Client) rowFor(ctx context.Context, household, key string, allocate bool) (int, bool, error) {
	id := recordID(household, key)

	c.mu.Lock()
	valid := time.Now().Before(c.cacheExpiresAt)
	c.mu.Unlock()

	if !valid {
		rng := fmt.Sprintf("%s!A:B", c.recordsSheet)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return 0, false, fmt.Errorf("read %s: %w", rng, err)
		}
		rows := indexRecordRows(resp.Values)
		c.mu.Lock()
		c.cachedRows = rows
		c.cachedRowCount = len(resp.Values)
		c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if row, ok := c.cachedRows[id]; ok {
		return row, true, nil
	}
	if !allocate {
		return 0, false, nil
	}
	c.cachedRowCount++
	if c.cachedRows == nil {
		c.cachedRows = make(map[string]int)
	}
	c.cachedRows[id] = c.cachedRowCount
	return c.cachedRowCount, false, nil
}

// InvalidateRowCache forces the next call to re-read the records sheet.
func (c *Client) InvalidateRowCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheExpiresAt = time.Time{}
}
