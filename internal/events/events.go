// Package events defines the notifications emitted after route and link
// mutations commit.
package events

import (
	"strconv"

	"routelink/internal/models"
)

// Type names an event on the wire.
type Type string

const (
	RouteCreated Type = "route_created"
	RouteUpdated Type = "route_updated"
	RouteDeleted Type = "route_deleted"
	RiderJoined  Type = "link_created"
	RiderRemoved Type = "link_deleted"
)

// Event is the envelope delivered to observers. Only the fields relevant to
// Type are populated.
type Event struct {
	Type    Type               `json:"type"`
	RouteID uint               `json:"route_id"`
	Date    string             `json:"date,omitempty"`
	Route   *models.DatedRoute `json:"route,omitempty"`
	Rider   *models.DatedLink  `json:"link,omitempty"`
	RiderID uint               `json:"id,omitempty"`
}

// Key scopes ordering: events with the same key reach an observer in commit order.
func (e Event) Key() string {
	return e.Date + "|" + strconv.FormatUint(uint64(e.RouteID), 10)
}

// Publisher accepts events after their transaction has committed.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

func NewRouteCreated(r models.Route, date string) Event {
	return Event{Type: RouteCreated, RouteID: r.ID, Date: date, Route: &models.DatedRoute{Route: r, Date: date}}
}

func NewRouteUpdated(r models.Route) Event {
	return Event{Type: RouteUpdated, RouteID: r.ID, Route: &models.DatedRoute{Route: r}}
}

func NewRouteDeleted(routeID uint) Event {
	return Event{Type: RouteDeleted, RouteID: routeID}
}

func NewRiderJoined(l models.DatedLink) Event {
	return Event{Type: RiderJoined, RouteID: l.RouteID, Date: l.Date, Rider: &l}
}

func NewRiderRemoved(riderID, routeID uint, date string) Event {
	return Event{Type: RiderRemoved, RouteID: routeID, Date: date, RiderID: riderID}
}
