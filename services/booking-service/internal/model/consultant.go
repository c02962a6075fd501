package model

import "time"

type Consultant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Timezone string `json:"timezone"`
	Active   bool   `json:"active"`
}

// Location resolves the consultant's IANA zone, falling back to UTC.
func (c Consultant) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
