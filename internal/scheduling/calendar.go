package scheduling

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"routelink/internal/models"
)

// CalendarIndex reads and writes calendar_entries. Every method takes the
// transaction (or read handle) of the RouteCatalog or JoinCoordinator
// operation it belongs to; it never opens its own.
type CalendarIndex struct{}

// RoutesForDate lists the routes with a placeholder on date in identity order.
func (CalendarIndex) RoutesForDate(tx *gorm.DB, date string) ([]models.DatedRoute, error) {
	var out []models.DatedRoute
	err := tx.Table("routes").
		Select("routes.*, calendar_entries.travel_date AS travel_date").
		Joins("JOIN calendar_entries ON calendar_entries.route_id = routes.id AND calendar_entries.link_id IS NULL").
		Where("calendar_entries.travel_date = ?", date).
		Order("routes.id ASC").
		Scan(&out).Error
	return out, err
}

// RidersForRouteDate lists the links joined to route on date in join order.
func (CalendarIndex) RidersForRouteDate(tx *gorm.DB, routeID uint, date string) ([]models.DatedLink, error) {
	var out []models.DatedLink
	err := tx.Table("links").
		Select("links.*, calendar_entries.route_id AS route_id, calendar_entries.travel_date AS travel_date").
		Joins("JOIN calendar_entries ON calendar_entries.link_id = links.id").
		Where("calendar_entries.route_id = ? AND calendar_entries.travel_date = ?", routeID, date).
		Order("links.id ASC").
		Scan(&out).Error
	return out, err
}

// RiderEntry returns the dated view of one link.
func (CalendarIndex) RiderEntry(tx *gorm.DB, riderID uint) (models.DatedLink, error) {
	var out models.DatedLink
	res := tx.Table("links").
		Select("links.*, calendar_entries.route_id AS route_id, calendar_entries.travel_date AS travel_date").
		Joins("LEFT JOIN calendar_entries ON calendar_entries.link_id = links.id").
		Where("links.id = ?", riderID).
		Limit(1).
		Scan(&out)
	if res.Error != nil {
		return out, res.Error
	}
	if res.RowsAffected == 0 {
		return out, gorm.ErrRecordNotFound
	}
	return out, nil
}

func (CalendarIndex) CountRiders(tx *gorm.DB, date string, routeID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.CalendarEntry{}).
		Where("travel_date = ? AND route_id = ? AND link_id IS NOT NULL", date, routeID).
		Count(&n).Error
	return n, err
}

func (CalendarIndex) PlaceholderExists(tx *gorm.DB, date string, routeID uint) (bool, error) {
	var n int64
	err := tx.Model(&models.CalendarEntry{}).
		Where("travel_date = ? AND route_id = ? AND link_id IS NULL", date, routeID).
		Count(&n).Error
	return n > 0, err
}

// ScheduledDates lists the dates route has a placeholder on.
func (CalendarIndex) ScheduledDates(tx *gorm.DB, routeID uint) ([]string, error) {
	var dates []string
	err := tx.Model(&models.CalendarEntry{}).
		Where("route_id = ? AND link_id IS NULL", routeID).
		Order("travel_date ASC").
		Pluck("travel_date", &dates).Error
	return dates, err
}

func (CalendarIndex) AssociationExists(tx *gorm.DB, date string, routeID uint, phone string) (bool, error) {
	var n int64
	err := tx.Model(&models.CalendarEntry{}).
		Where("travel_date = ? AND route_id = ? AND link_phone = ?", date, routeID, phone).
		Count(&n).Error
	return n > 0, err
}

// RouteTaken reports whether another route already occupies the
// (date, end point, time, transport) tuple. End point and transport compare
// case-insensitively; a nil time only matches a nil time.
func (CalendarIndex) RouteTaken(tx *gorm.DB, date, endPoint string, at *string, transport string, exceptRouteID uint) (bool, error) {
	q := tx.Model(&models.CalendarEntry{}).
		Joins("JOIN routes ON routes.id = calendar_entries.route_id").
		Where("calendar_entries.travel_date = ? AND calendar_entries.link_id IS NULL", date).
		Where("LOWER(routes.end_point) = ? AND LOWER(routes.transport_type) = ?",
			strings.ToLower(endPoint), strings.ToLower(transport))
	if at == nil {
		q = q.Where("routes.time IS NULL")
	} else {
		q = q.Where("routes.time = ?", *at)
	}
	if exceptRouteID != 0 {
		q = q.Where("routes.id <> ?", exceptRouteID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (CalendarIndex) InsertPlaceholder(tx *gorm.DB, date string, routeID uint) error {
	return tx.Create(&models.CalendarEntry{TravelDate: date, RouteID: routeID}).Error
}

func (CalendarIndex) InsertJoin(tx *gorm.DB, date string, routeID uint, link models.Link) error {
	id, phone := link.ID, link.Phone
	return tx.Create(&models.CalendarEntry{
		TravelDate: date,
		RouteID:    routeID,
		LinkID:     &id,
		LinkPhone:  &phone,
	}).Error
}

// DeleteByRoute removes all of route's entries and returns the ids of the
// links that were attached to it.
func (CalendarIndex) DeleteByRoute(tx *gorm.DB, routeID uint) ([]uint, error) {
	var linkIDs []uint
	if err := tx.Model(&models.CalendarEntry{}).
		Where("route_id = ? AND link_id IS NOT NULL", routeID).
		Pluck("link_id", &linkIDs).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("route_id = ?", routeID).Delete(&models.CalendarEntry{}).Error; err != nil {
		return nil, err
	}
	return linkIDs, nil
}

func (CalendarIndex) DeleteByRider(tx *gorm.DB, riderID uint) error {
	return tx.Where("link_id = ?", riderID).Delete(&models.CalendarEntry{}).Error
}

// lockRoute takes a row lock on the route for the rest of tx. Dialects without
// row locks are already serialized by their single writer.
func lockRoute(tx *gorm.DB, routeID uint, strength string) (models.Route, error) {
	var r models.Route
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: strength})
	}
	err := q.Where("id = ?", routeID).Take(&r).Error
	return r, err
}
