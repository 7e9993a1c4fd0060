package models

import "time"

// MeetingResponse is the externally visible meeting: the meeting fields joined with its location.
type MeetingResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Tags         []Tag     `json:"tags"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	IsPrivate    bool      `json:"isPrivate"`
	MaxPeople    int       `json:"maxPeople,omitempty"`
	OwnerID      string    `json:"ownerID"`
	MembersID    []string  `json:"membersID"`
	ChatID       string    `json:"chatID"`
	LocationID   string    `json:"locationID"`
	LocationName string    `json:"locationName"`
	Location     Location  `json:"location"`
}
