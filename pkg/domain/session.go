package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the run state of an automation session.
type Status string

const (
	StatusActive     Status = "active"
	StatusHumanInput Status = "humanInput"
	StatusCompleted  Status = "completed"
	StatusStopped    Status = "stopped"
	StatusOther      Status = "other"
)

// UnmarshalJSON folds unknown server states into StatusOther.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	switch Status(raw) {
	case StatusActive, StatusHumanInput, StatusCompleted, StatusStopped:
		*s = Status(raw)
	default:
		*s = StatusOther
	}
	return nil
}

// Label returns the human-readable name shown in session lists.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusHumanInput:
		return "Help Needed"
	case StatusCompleted:
		return "Completed"
	case StatusStopped:
		return "Stopped"
	default:
		return "Inactive"
	}
}

// Session is the client-side projection of a server-tracked task run.
type Session struct {
	SessionID string  `json:"sessionId"`
	Name      string  `json:"name"`
	Status    Status  `json:"status"`
	Cost      float64 `json:"cost"`
}

// StatusFilter narrows a session listing. FilterAll is sent as an empty value.
type StatusFilter string

const (
	FilterAll        StatusFilter = "all"
	FilterActive     StatusFilter = "active"
	FilterHumanInput StatusFilter = "humanInput"
	FilterCompleted  StatusFilter = "completed"
	FilterStopped    StatusFilter = "stopped"
)

// Filters is the cycle order used by list views.
var Filters = []StatusFilter{FilterAll, FilterActive, FilterHumanInput, FilterCompleted, FilterStopped}

// ParseStatusFilter validates a user-supplied filter name.
func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown status filter %q", s)
}

// QueryValue is the value sent in the status query parameter.
func (f StatusFilter) QueryValue() string {
	if f == FilterAll {
		return ""
	}
	return string(f)
}

// Label returns the name shown in the filter bar.
func (f StatusFilter) Label() string {
	if f == FilterAll {
		return "all"
	}
	return Status(f).Label()
}

// Next returns the filter after f in cycle order.
func (f StatusFilter) Next() StatusFilter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}
