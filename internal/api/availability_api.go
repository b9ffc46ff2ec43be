package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"rentero/internal/metrics"
	"rentero/internal/models"
)

const (
	// MaxAvailabilityDaysRange is the maximum number of days allowed in an
	// availability request.
	MaxAvailabilityDaysRange = 365
)

// AvailabilityRequest is the request body for POST /api/properties/availability.
type AvailabilityRequest struct {
	PropertyID int64  `json:"property_id"`
	StartDate  string `json:"start_date"` // Format: YYYY-MM-DD
	EndDate    string `json:"end_date"`   // Format: YYYY-MM-DD
}

// AvailabilityResponse is the response for POST /api/properties/availability.
type AvailabilityResponse struct {
	PropertyID int64          `json:"property_id"`
	Available  bool           `json:"available"`
	FirstFree  string         `json:"first_free,omitempty"`
	Conflicts  []ConflictInfo `json:"conflicts,omitempty"`
	Period     struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"period"`
}

// ConflictInfo describes one blocking booking.
type ConflictInfo struct {
	BookingID int64  `json:"booking_id"`
	Tenant    string `json:"tenant"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// handleAvailability reports whether a candidate range is free right now.
// A positive answer is advisory; booking creation re-checks under the lock.
// POST /api/properties/availability
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("properties_availability")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req AvailabilityRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := validateAvailabilityRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conflicts, err := s.bookings.CheckAvailability(r.Context(), req.PropertyID, start, end)
	if err != nil {
		s.logger.Error().Err(err).Int64("property_id", req.PropertyID).Msg("Availability check failed")
		writeError(w, http.StatusInternalServerError, "availability check failed")
		return
	}

	resp := AvailabilityResponse{
		PropertyID: req.PropertyID,
		Available:  len(conflicts) == 0,
	}
	resp.Period.Start = req.StartDate
	resp.Period.End = req.EndDate

	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, ConflictInfo{
			BookingID: c.ID,
			Tenant:    c.TenantName,
			StartDate: models.FormatDate(c.StartDate),
			EndDate:   models.FormatDate(c.EndDate),
		})
	}
	if !resp.Available {
		if free, err := s.bookings.FirstAvailableDate(r.Context(), req.PropertyID, start); err == nil {
			resp.FirstFree = models.FormatDate(free)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func validateAvailabilityRequest(req *AvailabilityRequest) (start, end time.Time, err error) {
	if req.PropertyID <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("property_id is required")
	}
	if req.StartDate == "" || req.EndDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date and end_date are required")
	}

	start, err = models.ParseDate(req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format; expected YYYY-MM-DD")
	}
	end, err = models.ParseDate(req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format; expected YYYY-MM-DD")
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}

	days := int(end.Sub(start).Hours() / 24)
	if days > MaxAvailabilityDaysRange {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxAvailabilityDaysRange)
	}

	return start, end, nil
}
