package models

import (
	"time"
)

// Route is a scheduled transport offering identified by its slot label.
// A route only becomes visible for a date through a CalendarEntry placeholder,
// so the same Route row may be scheduled on several dates.
type Route struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SlotNo        string    `gorm:"size:40;uniqueIndex;not null" json:"slot_no"`
	EndPoint      string    `gorm:"size:200;not null" json:"end_point"`
	MajorStops    []string  `gorm:"serializer:json;type:text" json:"major_stops"`
	Time          *string   `gorm:"size:10" json:"time"` // HH:MM, nil when unscheduled
	TransportType string    `gorm:"size:40" json:"transport_type"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DatedRoute is a Route as seen through one calendar date.
type DatedRoute struct {
	Route
	Date string `gorm:"column:travel_date" json:"date"`
}
