package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"rentero/internal/liquidation"
	"rentero/internal/metrics"
	"rentero/internal/models"
	"rentero/internal/service"
)

// LiquidationRequest is the request body for POST /api/liquidations.
type LiquidationRequest struct {
	Year                 int    `json:"year"`
	Month                int    `json:"month"`
	Type                 string `json:"type"`       // "by_owner" or "by_property"
	Identifier           string `json:"identifier"` // owner name or property id
	CommissionPercentage string `json:"commission_percentage"`
	IncludeDaily         bool   `json:"include_daily,omitempty"`
}

// LiquidationResponse is the response for POST /api/liquidations.
type LiquidationResponse struct {
	Period           string     `json:"period"`
	Type             string     `json:"type"`
	Identifier       string     `json:"identifier"`
	PropertyIDs      []int64    `json:"property_ids"`
	EmptyGroup       bool       `json:"empty_group,omitempty"`
	TotalIncome      string     `json:"total_income"`
	TotalExpenses    string     `json:"total_expenses"`
	CommissionAmount string     `json:"commission_amount"`
	OwnerNet         string     `json:"owner_net"`
	Warnings         []string   `json:"warnings,omitempty"`
	CalculatedAt     string     `json:"calculation_timestamp"`
	Daily            []DailyRow `json:"daily,omitempty"`
}

// DailyRow is one day of the optional breakdown.
type DailyRow struct {
	Date     string `json:"date"`
	Bookings int    `json:"bookings"`
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	Net      string `json:"net"`
}

// CachedLiquidationResponse is the response for GET /api/liquidations. It
// mirrors the persisted record and flags whether the underlying bookings or
// expenses changed since it was stored.
type CachedLiquidationResponse struct {
	Period           string `json:"period"`
	Type             string `json:"type"`
	Identifier       string `json:"identifier"`
	CommissionPct    string `json:"commission_percentage"`
	TotalIncome      string `json:"total_income"`
	TotalExpenses    string `json:"total_expenses"`
	CommissionAmount string `json:"commission_amount"`
	OwnerNet         string `json:"owner_net"`
	CalculatedAt     string `json:"calculation_timestamp"`
	Stale            bool   `json:"stale"`
}

// handleLiquidation computes a settlement (POST) or returns the stored
// record for a settlement key without recomputation (GET).
func (s *HTTPServer) handleLiquidation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleLiquidationCompute(w, r)
	case http.MethodGet:
		s.handleLiquidationCached(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or POST")
	}
}

// POST /api/liquidations
func (s *HTTPServer) handleLiquidationCompute(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("liquidations_compute")

	var req LiquidationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.liquidations.Compute(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrCommissionRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Liquidation failed")
		writeError(w, http.StatusInternalServerError, "liquidation failed")
		return
	}

	resp := LiquidationResponse{
		Period:           fmt.Sprintf("%04d-%02d", result.Params.Year, int(result.Params.Month)),
		Type:             string(result.Params.Type),
		Identifier:       result.Params.Identifier,
		PropertyIDs:      result.PropertyIDs,
		EmptyGroup:       result.EmptyGroup,
		TotalIncome:      result.TotalIncome.String(),
		TotalExpenses:    result.TotalExpenses.String(),
		CommissionAmount: result.CommissionAmount.String(),
		OwnerNet:         result.OwnerNet.String(),
		CalculatedAt:     result.CalculatedAt.UTC().Format(time.RFC3339),
	}
	for _, warn := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warn.String())
	}

	if req.IncludeDaily {
		days := liquidation.DailyBreakdown(result.Params.Year, result.Params.Month, result.Bookings, result.Expenses)
		for _, day := range days {
			resp.Daily = append(resp.Daily, DailyRow{
				Date:     models.FormatDate(day.Date),
				Bookings: len(day.Bookings),
				Income:   day.Income.String(),
				Expense:  day.Expense.String(),
				Net:      day.Net.String(),
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /api/liquidations?year=2024&month=6&type=by_owner&identifier=Smith
func (s *HTTPServer) handleLiquidationCached(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("liquidations_cached")

	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		writeError(w, http.StatusBadRequest, "year out of range")
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1..12")
		return
	}
	typ := models.LiquidationType(q.Get("type"))
	if typ != models.LiquidationByOwner && typ != models.LiquidationByProperty {
		writeError(w, http.StatusBadRequest, "type must be by_owner or by_property")
		return
	}
	identifier := q.Get("identifier")
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}

	cached, err := s.liquidations.Cached(r.Context(), year, month, typ, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no stored liquidation for that key")
			return
		}
		s.logger.Error().Err(err).Msg("Liquidation lookup failed")
		writeError(w, http.StatusInternalServerError, "liquidation lookup failed")
		return
	}

	stale, err := s.liquidations.IsStale(r.Context(), cached)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Staleness check failed; serving record as-is")
	}

	writeJSON(w, http.StatusOK, CachedLiquidationResponse{
		Period:           fmt.Sprintf("%04d-%02d", cached.Year, cached.Month),
		Type:             string(cached.Type),
		Identifier:       cached.Identifier,
		CommissionPct:    cached.CommissionPercentage.String(),
		TotalIncome:      cached.TotalIncome.String(),
		TotalExpenses:    cached.TotalExpenses.String(),
		CommissionAmount: cached.CommissionAmount.String(),
		OwnerNet:         cached.OwnerNet.String(),
		CalculatedAt:     cached.CalculatedAt.UTC().Format(time.RFC3339),
		Stale:            stale,
	})
}

func (req *LiquidationRequest) toParams() (liquidation.Params, error) {
	if req.Year < 2000 || req.Year > 2100 {
		return liquidation.Params{}, fmt.Errorf("year out of range")
	}
	if req.Month < 1 || req.Month > 12 {
		return liquidation.Params{}, fmt.Errorf("month must be 1..12")
	}

	typ := models.LiquidationType(req.Type)
	if typ != models.LiquidationByOwner && typ != models.LiquidationByProperty {
		return liquidation.Params{}, fmt.Errorf("type must be by_owner or by_property")
	}
	if req.Identifier == "" {
		return liquidation.Params{}, fmt.Errorf("identifier is required")
	}

	pct, err := decimal.NewFromString(req.CommissionPercentage)
	if err != nil {
		return liquidation.Params{}, fmt.Errorf("invalid commission_percentage; expected a decimal string")
	}

	return liquidation.Params{
		Year:                 req.Year,
		Month:                time.Month(req.Month),
		Type:                 typ,
		Identifier:           req.Identifier,
		CommissionPercentage: pct,
	}, nil
}
