package models

import "slices"

// User is an account. Student and host capabilities are optional profiles attached to it.
type User struct {
	ID             string          `json:"id"`
	Username       string          `json:"username"`
	Firstname      string          `json:"firstname,omitempty"`
	Lastname       string          `json:"lastname,omitempty"`
	Email          string          `json:"email,omitempty"`
	GoogleID       string          `json:"googleID,omitempty"`
	StudentProfile *StudentProfile `json:"studentProfile,omitempty"`
	HostProfile    *HostProfile    `json:"hostProfile,omitempty"`
}

// StudentProfile tracks the meetings a student created and the meetings they take part in.
// Every id in MeetingsOwnerID is also in MeetingsParticipationsID.
type StudentProfile struct {
	MeetingsOwnerID          []string `json:"meetingsOwnerID"`
	MeetingsParticipationsID []string `json:"meetingsParticipationsID"`
}

// HostProfile describes a venue owner.
type HostProfile struct {
	Name        string  `json:"name"`
	Address     Address `json:"address"`
	Description string  `json:"description"`
	Tags        []Tag   `json:"tags"`
}

// IsStudent reports whether the user holds a student profile.
func (u *User) IsStudent() bool { return u != nil && u.StudentProfile != nil }

// IsHost reports whether the user holds a host profile.
func (u *User) IsHost() bool { return u != nil && u.HostProfile != nil }

// Owns reports whether meetingID is in the owner list.
func (p *StudentProfile) Owns(meetingID string) bool {
	return slices.Contains(p.MeetingsOwnerID, meetingID)
}

// Participates reports whether meetingID is in the participation list.
func (p *StudentProfile) Participates(meetingID string) bool {
	return slices.Contains(p.MeetingsParticipationsID, meetingID)
}

// UserPublic is what other users see of an account.
type UserPublic struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsStudent bool   `json:"isStudent"`
	IsHost    bool   `json:"isHost"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Username:  u.Username,
		IsStudent: u.IsStudent(),
		IsHost:    u.IsHost(),
	}
}
