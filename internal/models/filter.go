package models

import "time"

// FilterRequest is a composite meeting search. Every clause is optional;
// active clauses are combined with AND.
type FilterRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Tags      []Tag      `json:"tags"`
	Location  *Location  `json:"location"`
}

// HasDateRange reports whether both date bounds are set.
func (f *FilterRequest) HasDateRange() bool {
	return f.StartDate != nil && f.EndDate != nil
}
