package models

// Address is a postal address of a host or location.
type Address struct {
	Street   string `json:"street"`
	StreetNb string `json:"streetNb"`
	CityName string `json:"cityName"`
	NPA      string `json:"npa"`
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// OpeningHour is one opening slot; Day is 0 (Sunday) to 6.
type OpeningHour struct {
	Day       int    `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Location is a venue owned by a host. Meetings reference it by id only.
type Location struct {
	ID           string        `json:"id"`
	HostID       string        `json:"hostID"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	NbPeople     int           `json:"nbPeople,omitempty"`
	Address      Address       `json:"address"`
	Tags         []Tag         `json:"tags"`
	OpeningHours []OpeningHour `json:"openingHours"`
}

// SameAs reports whether other designates this location, by id or by address.
func (l *Location) SameAs(other *Location) bool {
	if l == nil || other == nil {
		return false
	}
	if other.ID != "" && other.ID == l.ID {
		return true
	}
	return !other.Address.IsZero() && other.Address == l.Address
}
