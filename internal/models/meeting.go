package models

import (
	"slices"
	"time"
)

// Tag is a free-form label on meetings, locations and hosts.
type Tag struct {
	Name string `json:"name"`
}

// Meeting is a scheduled gathering at a Location.
// OwnerID is in MembersID for as long as the owner has not left.
type Meeting struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []Tag     `json:"tags"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	IsPrivate   bool      `json:"isPrivate"`
	MaxPeople   int       `json:"maxPeople,omitempty"`
	OwnerID     string    `json:"ownerID"`
	MembersID   []string  `json:"membersID"`
	ChatID      string    `json:"chatID"`
	LocationID  string    `json:"locationID"`
}

// HasMember reports whether userID is in MembersID.
func (m *Meeting) HasMember(userID string) bool {
	return slices.Contains(m.MembersID, userID)
}

// HasAnyTag reports whether the meeting carries at least one of the given tag names.
func (m *Meeting) HasAnyTag(tags []Tag) bool {
	for _, want := range tags {
		for _, have := range m.Tags {
			if have.Name == want.Name {
				return true
			}
		}
	}
	return false
}

// Overlaps reports whether [StartDate, EndDate] intersects [from, to], bounds inclusive.
func (m *Meeting) Overlaps(from, to time.Time) bool {
	return !m.StartDate.After(to) && !m.EndDate.Before(from)
}

// MeetingPatch carries the fields an update may change. Owner and members
// are not patchable.
type MeetingPatch struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []Tag     `json:"tags"`
	LocationID  string    `json:"locationID"`
	IsPrivate   bool      `json:"isPrivate"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// Apply copies the patch onto m.
func (p MeetingPatch) Apply(m *Meeting) {
	m.Name = p.Name
	m.Description = p.Description
	m.Tags = p.Tags
	m.LocationID = p.LocationID
	m.IsPrivate = p.IsPrivate
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
}
