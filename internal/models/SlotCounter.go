package models

// SlotCounter holds the last issued value of a named sequence.
// Values only ever grow, so deleting a route never frees its slot.
type SlotCounter struct {
	Name  string `gorm:"primaryKey;size:40"`
	Value int64  `gorm:"not null;default:0"`
}

// RouteSlotCounter names the counter backing route slot labels.
const RouteSlotCounter = "route"
