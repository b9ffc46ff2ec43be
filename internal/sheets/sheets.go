// Package sheets mirrors the booking ledger into a Google spreadsheet so
// owners can follow their calendar without touching the bot.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"rentero/internal/models"
)

const bookingsSheet = "Reservas"

var bookingHeader = []interface{}{
	"ID", "Propiedad", "Inquilino", "Entrada", "Salida", "Noches",
	"Renta", "Canal", "Notas", "Creado", "Actualizado",
}

// SheetsService pushes booking rows to one spreadsheet.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger

	// rowCache maps booking id to its spreadsheet row for incremental
	// updates between full syncs.
	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsPath, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithTokenSource(jwtConfig.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}, nil
}

// SyncBookings rewrites the bookings sheet from scratch and rebuilds the
// row cache. Rows are written in the order given.
func (s *SheetsService) SyncBookings(ctx context.Context, bookings []models.Booking, propertyNames map[int64]string) error {
	clearRange := fmt.Sprintf("%s!A:K", bookingsSheet)
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	values := [][]interface{}{bookingHeader}
	for _, b := range bookings {
		values = append(values, bookingRowValues(&b, propertyNames[b.PropertyID]))
	}

	writeRange := fmt.Sprintf("%s!A1", bookingsSheet)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.ClearCache()
	for i, b := range bookings {
		s.setCachedRow(b.ID, i+2) // row 1 is the header
	}

	s.logger.Info().Int("bookings", len(bookings)).Msg("Synced bookings to Google Sheets")
	return nil
}

// UpsertBooking updates a single booking row in place when its position is
// known, otherwise appends it.
func (s *SheetsService) UpsertBooking(ctx context.Context, b *models.Booking, propertyName string) error {
	row := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(b, propertyName)}}

	if rowNum, ok := s.getCachedRow(b.ID); ok {
		updateRange := fmt.Sprintf("%s!A%d", bookingsSheet, rowNum)
		_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, updateRange, row).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update booking row: %w", err)
		}
		return nil
	}

	appendRange := fmt.Sprintf("%s!A:K", bookingsSheet)
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, appendRange, row).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		if rowNum, ok := parseRowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(b.ID, rowNum)
		}
	}
	return nil
}

// RemoveBooking blanks the cached row of a deleted booking. The row itself
// stays until the next full sync collapses it.
func (s *SheetsService) RemoveBooking(ctx context.Context, bookingID int64) error {
	rowNum, ok := s.getCachedRow(bookingID)
	if !ok {
		return nil
	}
	clearRange := fmt.Sprintf("%s!A%d:K%d", bookingsSheet, rowNum, rowNum)
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear booking row: %w", err)
	}
	s.deleteCacheRow(bookingID)
	return nil
}

func bookingRowValues(b *models.Booking, propertyName string) []interface{} {
	if propertyName == "" {
		propertyName = fmt.Sprintf("#%d", b.PropertyID)
	}
	return []interface{}{
		b.ID,
		propertyName,
		b.TenantName,
		models.FormatDate(b.StartDate),
		models.FormatDate(b.EndDate),
		b.Nights(),
		b.RentAmount.String(),
		string(b.Source),
		b.Notes,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// parseRowFromRange extracts the first row number from a range like
// "Reservas!A7:K7".
func parseRowFromRange(r string) (int, bool) {
	row := 0
	seen := false
	for i := 0; i < len(r); i++ {
		c := r[i]
		if c >= '0' && c <= '9' {
			row = row*10 + int(c-'0')
			seen = true
			continue
		}
		if seen {
			break
		}
	}
	return row, seen
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCacheRow(id int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

// ClearCache drops all cached row positions.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}
