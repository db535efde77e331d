package model

import "time"

// Slot is a free interval served by /api/calendar/free-slots. Date, Start
// and End are local to the zone the slots were requested in.
type Slot struct {
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc"`
	Date     string    `json:"date"`
	Start    string    `json:"start"`
	End      string    `json:"end"`
}

// FreeSlots is the free-slots response body.
type FreeSlots struct {
	TZ    string `json:"tz"`
	Slots []Slot `json:"slots"`
	Count int    `json:"count"`
}
