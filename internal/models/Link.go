package models

import "time"

// Link is one person's registration to ride one route on one date.
// Links are not deduplicated across dates; the route and date live on the
// CalendarEntry that references the link.
type Link struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	Gender     string    `gorm:"size:2;not null" json:"gender"` // "M" or "F"
	DropPoint  string    `gorm:"size:200" json:"drop_point"`
	Phone      string    `gorm:"size:40;not null" json:"phone"`
	CourseYear string    `gorm:"size:40" json:"course_year"`
	Branch     string    `gorm:"size:120" json:"branch"`
	CreatedAt  time.Time `json:"created_at"`
}

// DatedLink is a Link together with the route and date it joined.
type DatedLink struct {
	Link
	RouteID uint   `json:"route_id"`
	Date    string `gorm:"column:travel_date" json:"date"`
}
