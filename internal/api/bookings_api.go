package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/metrics"
	"rentero/internal/models"
	"rentero/internal/service"
)

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	PropertyID   int64  `json:"property_id"`
	TenantName   string `json:"tenant_name"`
	StartDate    string `json:"start_date"` // Format: YYYY-MM-DD
	EndDate      string `json:"end_date"`   // Format: YYYY-MM-DD
	RentAmount   string `json:"rent_amount"`
	RentCurrency string `json:"rent_currency,omitempty"` // server default when empty
	Source       string `json:"source,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// CreateBookingResponse is the success response for POST /api/bookings.
type CreateBookingResponse struct {
	ID     int64 `json:"id"`
	Nights int   `json:"nights"`
}

// ConflictResponse is returned with 409 when the range is taken.
type ConflictResponse struct {
	Error     string         `json:"error"`
	Conflicts []ConflictInfo `json:"conflicts"`
}

// handleCreateBooking creates a booking. A date conflict answers 409 with
// the blocking stays listed.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := req.toBooking(s.currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.bookings.CreateBooking(r.Context(), b); err != nil {
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			resp := ConflictResponse{Error: "dates conflict with existing bookings"}
			for _, c := range conflict.Conflicts {
				resp.Conflicts = append(resp.Conflicts, ConflictInfo{
					BookingID: c.ID,
					Tenant:    c.TenantName,
					StartDate: models.FormatDate(c.StartDate),
					EndDate:   models.FormatDate(c.EndDate),
				})
			}
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		if errors.Is(err, models.ErrInvalidRange) || errors.Is(err, models.ErrNegativeAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Booking creation failed")
		writeError(w, http.StatusInternalServerError, "booking creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, CreateBookingResponse{ID: b.ID, Nights: b.Nights()})
}

func (req *CreateBookingRequest) toBooking(defaultCurrency string) (*models.Booking, error) {
	if req.PropertyID <= 0 {
		return nil, fmt.Errorf("property_id is required")
	}
	if req.TenantName == "" {
		return nil, fmt.Errorf("tenant_name is required")
	}

	start, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	rent, err := decimal.NewFromString(req.RentAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid rent_amount; expected a decimal string")
	}

	source := models.BookingSource(req.Source)
	if req.Source == "" {
		source = models.SourceOther
	}
	if !models.ValidSource(source) {
		return nil, fmt.Errorf("unknown source %q", req.Source)
	}

	currency := req.RentCurrency
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now()
	return &models.Booking{
		PropertyID:   req.PropertyID,
		TenantName:   req.TenantName,
		StartDate:    start,
		EndDate:      end,
		RentAmount:   rent,
		RentCurrency: currency,
		Source:       source,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// handleProperties lists properties.
// GET /api/properties
func (s *HTTPServer) handleProperties(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("properties_list")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	properties, err := s.properties.ListProperties(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Property list failed")
		writeError(w, http.StatusInternalServerError, "property list failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"properties": properties})
}
