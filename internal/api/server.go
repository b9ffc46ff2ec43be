// Package api exposes the booking and settlement engine over HTTP for the
// owner dashboard and channel integrations.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"rentero/internal/liquidation"
	"rentero/internal/models"
)

// BookingAPI is the slice of the booking service the handlers use.
type BookingAPI interface {
	CheckAvailability(ctx context.Context, propertyID int64, start, end time.Time) ([]models.Booking, error)
	FirstAvailableDate(ctx context.Context, propertyID int64, ref time.Time) (time.Time, error)
	OccupiedDates(ctx context.Context, propertyID int64) (map[string]bool, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
}

// LiquidationAPI is the slice of the settlement service the handlers use.
type LiquidationAPI interface {
	Compute(ctx context.Context, p liquidation.Params) (*liquidation.Result, error)
	Cached(ctx context.Context, year, month int, typ models.LiquidationType, identifier string) (*models.Liquidation, error)
	IsStale(ctx context.Context, cached *models.Liquidation) (bool, error)
}

// PropertyLister resolves properties for responses.
type PropertyLister interface {
	ListProperties(ctx context.Context) ([]models.Property, error)
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	server       *http.Server
	bookings     BookingAPI
	liquidations LiquidationAPI
	properties   PropertyLister
	currency     string // stamped on bookings that omit rent_currency
	logger       *zerolog.Logger
}

// NewHTTPServer wires the routes and returns a server listening on port.
func NewHTTPServer(port int, bookings BookingAPI, liquidations LiquidationAPI, properties PropertyLister, defaultCurrency string, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		bookings:     bookings,
		liquidations: liquidations,
		properties:   properties,
		currency:     defaultCurrency,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/properties", s.handleProperties)
	mux.HandleFunc("/api/properties/availability", s.handleAvailability)
	mux.HandleFunc("/api/bookings", s.handleCreateBooking)
	mux.HandleFunc("/api/liquidations", s.handleLiquidation)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
