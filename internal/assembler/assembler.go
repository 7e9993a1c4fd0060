// Package assembler joins meetings with their locations into the external meeting representation.
package assembler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/amphitryon/backend/internal/apperr"
	"github.com/amphitryon/backend/internal/models"
)

const resolveConcurrency = 8

// LocationLookup resolves a location id. Missing ids yield an apperr.ErrNotFound error.
type LocationLookup interface {
	GetByID(ctx context.Context, id string) (*models.Location, error)
}

// Assembler builds MeetingResponse values.
type Assembler struct {
	locations LocationLookup
}

// New creates an assembler over the given location lookup.
func New(locations LocationLookup) *Assembler {
	return &Assembler{locations: locations}
}

// Build joins a meeting with an already resolved location. It has no side effects.
func Build(m *models.Meeting, loc *models.Location) models.MeetingResponse {
	return models.MeetingResponse{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Tags:         m.Tags,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		IsPrivate:    m.IsPrivate,
		MaxPeople:    m.MaxPeople,
		OwnerID:      m.OwnerID,
		MembersID:    m.MembersID,
		ChatID:       m.ChatID,
		LocationID:   m.LocationID,
		LocationName: loc.Name,
		Location:     *loc,
	}
}

// Assemble resolves the meeting's location and builds the response.
// An unresolvable locationID is reported, never defaulted.
func (a *Assembler) Assemble(ctx context.Context, m *models.Meeting) (*models.MeetingResponse, error) {
	if m.LocationID == "" {
		return nil, apperr.NotFound("location", "")
	}
	loc, err := a.locations.GetByID(ctx, m.LocationID)
	if err != nil {
		return nil, err
	}
	resp := Build(m, loc)
	return &resp, nil
}

// AssembleAll assembles every meeting, keeping input order. The first failure aborts the batch.
func (a *Assembler) AssembleAll(ctx context.Context, meetings []models.Meeting) ([]models.MeetingResponse, error) {
	out := make([]models.MeetingResponse, len(meetings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i := range meetings {
		i := i
		g.Go(func() error {
			resp, err := a.Assemble(gctx, &meetings[i])
			if err != nil {
				return err
			}
			out[i] = *resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
