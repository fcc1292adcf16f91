package scheduling

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"routelink/internal/events"
	"routelink/internal/models"
)

// RiderInput is the registration a person submits to join a route.
type RiderInput struct {
	Name       string
	Gender     string
	DropPoint  string
	Phone      string
	CourseYear string
	Branch     string
}

// JoinCoordinator owns link rows and the one-join-per-phone rule per route
// and date.
type JoinCoordinator struct {
	db      *gorm.DB
	cal     *CalendarIndex
	locks   *keyLocks
	clock   Clock
	pub     events.Publisher
	timeout opTimeout
}

func joinKey(date string, routeID uint) string {
	return "join|" + date + "|" + strconv.FormatUint(uint64(routeID), 10)
}

func (in RiderInput) normalize() (RiderInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.DropPoint = strings.TrimSpace(in.DropPoint)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CourseYear = strings.TrimSpace(in.CourseYear)
	in.Branch = strings.TrimSpace(in.Branch)

	if in.Name == "" {
		return in, invalid("name", "required")
	}
	gender, ok := normalizeGender(in.Gender)
	if !ok {
		return in, invalid("gender", "must be M or F")
	}
	in.Gender = gender
	if in.Phone == "" {
		return in, invalid("phone", "required")
	}
	if !validPhone(in.Phone) {
		return in, invalid("phone", "must be at least 7 digits")
	}
	if in.DropPoint == "" {
		return in, invalid("drop", "required")
	}
	return in, nil
}

// JoinRoute registers a rider on route for date. The duplicate check, the
// link insert and its calendar entry share one transaction under the
// (date, route) key, so concurrent joins with the same phone admit exactly one.
func (j *JoinCoordinator) JoinRoute(ctx context.Context, routeID uint, date string, in RiderInput) (models.DatedLink, error) {
	date, err := travelDate(date, j.clock)
	if err != nil {
		return models.DatedLink{}, err
	}
	if in, err = in.normalize(); err != nil {
		return models.DatedLink{}, err
	}

	route, err := j.scheduledRoute(ctx, routeID, date)
	if err != nil {
		return models.DatedLink{}, err
	}
	if err := checkDropPoint(route, in.DropPoint); err != nil {
		return models.DatedLink{}, err
	}

	key := joinKey(date, routeID)
	unlock := j.locks.Lock(key)
	defer unlock()

	ctx, cancel := j.timeout.bound(ctx)
	defer cancel()

	link := models.Link{
		Name:       in.Name,
		Gender:     in.Gender,
		DropPoint:  in.DropPoint,
		Phone:      in.Phone,
		CourseYear: in.CourseYear,
		Branch:     in.Branch,
	}
	err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := serialize(tx, key); err != nil {
			return storeErr("lock join key", err)
		}
		current, err := lockRoute(tx, routeID, "SHARE")
		if err != nil {
			if isNotFound(err) {
				return ErrRouteNotFoundForDate
			}
			return storeErr("load route", err)
		}
		// the end point may have changed since the unlocked read above
		if err := checkDropPoint(current, in.DropPoint); err != nil {
			return err
		}
		scheduled, err := j.cal.PlaceholderExists(tx, date, routeID)
		if err != nil {
			return storeErr("check placeholder", err)
		}
		if !scheduled {
			return ErrRouteNotFoundForDate
		}
		joined, err := j.cal.AssociationExists(tx, date, routeID, in.Phone)
		if err != nil {
			return storeErr("check existing join", err)
		}
		if joined {
			return ErrAlreadyJoined
		}

		if err := tx.Create(&link).Error; err != nil {
			return storeErr("insert link", err)
		}
		if err := j.cal.InsertJoin(tx, date, routeID, link); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return storeErr("insert join entry", err)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"route_id": routeID,
			"date":     date,
		}).Warn("JoinRoute: rejected")
		return models.DatedLink{}, storeErr("join route", err)
	}

	dated := models.DatedLink{Link: link, RouteID: routeID, Date: date}
	j.pub.Publish(events.NewRiderJoined(dated))
	logrus.WithFields(logrus.Fields{
		"link_id":  link.ID,
		"route_id": routeID,
		"date":     date,
	}).Info("Link joined route.")
	return dated, nil
}

// checkDropPoint requires drop to match the route's end point, ignoring case.
func checkDropPoint(r models.Route, drop string) error {
	if r.EndPoint != "" && !strings.EqualFold(drop, strings.TrimSpace(r.EndPoint)) {
		return &DropPointMismatchError{Expected: r.EndPoint}
	}
	return nil
}

// scheduledRoute loads the route and confirms it has a placeholder on date.
func (j *JoinCoordinator) scheduledRoute(ctx context.Context, routeID uint, date string) (models.Route, error) {
	ctx, cancel := j.timeout.bound(ctx)
	defer cancel()

	db := j.db.WithContext(ctx)
	var route models.Route
	if err := db.Where("id = ?", routeID).Take(&route).Error; err != nil {
		if isNotFound(err) {
			return route, ErrRouteNotFoundForDate
		}
		return route, storeErr("load route", err)
	}
	scheduled, err := j.cal.PlaceholderExists(db, date, routeID)
	if err != nil {
		return route, storeErr("check placeholder", err)
	}
	if !scheduled {
		return route, ErrRouteNotFoundForDate
	}
	return route, nil
}

// GetRider returns the link with the route and date it joined.
func (j *JoinCoordinator) GetRider(ctx context.Context, riderID uint) (models.DatedLink, error) {
	ctx, cancel := j.timeout.bound(ctx)
	defer cancel()

	l, err := j.cal.RiderEntry(j.db.WithContext(ctx), riderID)
	if isNotFound(err) {
		return l, ErrRiderNotFound
	}
	return l, storeErr("load link", err)
}

// RemoveRider deletes the link and its calendar entry. Callers authorize the
// removal beforehand; see AuthorizeRemoval.
func (j *JoinCoordinator) RemoveRider(ctx context.Context, riderID uint) error {
	l, err := j.GetRider(ctx, riderID)
	if err != nil {
		return err
	}

	if l.RouteID != 0 {
		unlock := j.locks.Lock(joinKey(l.Date, l.RouteID))
		defer unlock()
	}

	ctx, cancel := j.timeout.bound(ctx)
	defer cancel()

	err = j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if l.RouteID != 0 {
			if err := serialize(tx, joinKey(l.Date, l.RouteID)); err != nil {
				return storeErr("lock join key", err)
			}
		}
		if err := j.cal.DeleteByRider(tx, riderID); err != nil {
			return storeErr("delete join entry", err)
		}
		res := tx.Delete(&models.Link{}, riderID)
		if res.Error != nil {
			return storeErr("delete link", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRiderNotFound
		}
		return nil
	})
	if err != nil {
		return storeErr("remove rider", err)
	}

	if l.RouteID != 0 {
		j.pub.Publish(events.NewRiderRemoved(riderID, l.RouteID, l.Date))
	}
	logrus.WithFields(logrus.Fields{
		"link_id":  riderID,
		"route_id": l.RouteID,
		"date":     l.Date,
	}).Info("Link removed.")
	return nil
}

// ListRidersForRouteDate returns the links joined to route on date.
func (j *JoinCoordinator) ListRidersForRouteDate(ctx context.Context, routeID uint, date string) ([]models.DatedLink, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	ctx, cancel := j.timeout.bound(ctx)
	defer cancel()

	links, err := j.cal.RidersForRouteDate(j.db.WithContext(ctx), routeID, date)
	if err != nil {
		return nil, storeErr("list links", err)
	}
	if links == nil {
		links = []models.DatedLink{}
	}
	return links, nil
}

func (j *JoinCoordinator) purgeRiders(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id IN ?", ids).Delete(&models.Link{}).Error
}
