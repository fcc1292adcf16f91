package models

import "time"

// CalendarEntry associates a Route with a travel date and, optionally, a Link.
// A row with a nil LinkID is the placeholder that schedules the route for the
// date; every join appends another row with the same date and route.
type CalendarEntry struct {
	ID         uint    `gorm:"primaryKey"`
	TravelDate string  `gorm:"size:10;not null;index:idx_calendar_date_route,priority:1"`
	RouteID    uint    `gorm:"not null;index:idx_calendar_date_route,priority:2;index"`
	LinkID     *uint   `gorm:"index"`
	LinkPhone  *string `gorm:"size:40"` // copied from the link so (date, route, phone) can be indexed
	CreatedAt  time.Time
}

func (CalendarEntry) TableName() string { return "calendar_entries" }
