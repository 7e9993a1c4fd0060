// Package filter selects meetings matching a composite FilterRequest.
package filter

import (
	"context"
	"errors"
	"strings"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/metrics"
	"github.com/amphitryon/backend/internal/models"
)

// LocationLookup resolves a location id. Missing ids yield an apperr.ErrNotFound error.
type LocationLookup interface {
	GetByID(ctx context.Context, id string) (*models.Location, error)
}

// Engine evaluates filter requests against an in-memory candidate set.
type Engine struct {
	locations LocationLookup
}

// NewEngine creates a filter engine.
func NewEngine(locations LocationLookup) *Engine {
	return &Engine{locations: locations}
}

// Filter returns the candidates matching every active clause of req, in candidate order.
// Location ids are resolved at most once per call. A meeting whose location does not
// resolve simply fails the location clause; other lookup failures abort the call.
func (e *Engine) Filter(ctx context.Context, candidates []models.Meeting, req models.FilterRequest) ([]models.Meeting, error) {
	resolved := make(map[string]*models.Location)
	matches := make([]models.Meeting, 0)
	for i := range candidates {
		m := &candidates[i]
		if !matchName(m, req) || !matchDates(m, req) || !matchTags(m, req) {
			continue
		}
		ok, err := e.matchLocation(ctx, m, req, resolved)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, *m)
		}
	}
	metrics.RecordFilter(len(matches))
	return matches, nil
}

func matchName(m *models.Meeting, req models.FilterRequest) bool {
	return req.Name == "" || strings.Contains(m.Name, req.Name)
}

func matchDates(m *models.Meeting, req models.FilterRequest) bool {
	return !req.HasDateRange() || m.Overlaps(*req.StartDate, *req.EndDate)
}

func matchTags(m *models.Meeting, req models.FilterRequest) bool {
	return len(req.Tags) == 0 || m.HasAnyTag(req.Tags)
}

func (e *Engine) matchLocation(ctx context.Context, m *models.Meeting, req models.FilterRequest, resolved map[string]*models.Location) (bool, error) {
	if req.Location == nil {
		return true, nil
	}
	if m.LocationID == "" {
		return false, nil
	}
	loc, seen := resolved[m.LocationID]
	if !seen {
		var err error
		loc, err = e.locations.GetByID(ctx, m.LocationID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return false, err
		}
		resolved[m.LocationID] = loc
	}
	return loc.SameAs(req.Location), nil
}
