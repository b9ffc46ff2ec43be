package models

import "time"

// Wizard steps for the booking dialog.
const (
	StepIdle          = ""
	StepPickProperty  = "pick_property"
	StepTenantName    = "tenant_name"
	StepCheckIn       = "check_in"
	StepCheckOut      = "check_out"
	StepRentAmount    = "rent_amount"
	StepSource        = "source"
	StepConfirm       = "confirm"
)

// UserState holds the per-user wizard state for the Telegram bot. It is
// serialized to Redis, so TempData values round-trip through JSON and
// numeric values come back as float64.
type UserState struct {
	UserID    int64                  `json:"user_id"`
	Step      string                 `json:"step"`
	TempData  map[string]interface{} `json:"temp_data,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Set stores a value in TempData, allocating the map on first use.
func (s *UserState) Set(key string, value interface{}) {
	if s.TempData == nil {
		s.TempData = make(map[string]interface{})
	}
	s.TempData[key] = value
}

// GetInt64 returns an integer value, tolerating the float64 JSON decodes to.
func (s *UserState) GetInt64(key string) int64 {
	switch v := s.TempData[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// GetString returns a string value or "".
func (s *UserState) GetString(key string) string {
	if v, ok := s.TempData[key].(string); ok {
		return v
	}
	return ""
}

// GetTime parses an RFC3339 or calendar-date string value.
func (s *UserState) GetTime(key string) time.Time {
	str := s.GetString(key)
	if str == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t
	}
	if t, err := time.Parse(DateLayout, str); err == nil {
		return t
	}
	return time.Time{}
}
