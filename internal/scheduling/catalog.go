package scheduling

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"routelink/internal/events"
	"routelink/internal/models"
)

// RouteInput describes a route to create on a date.
type RouteInput struct {
	Date          string
	EndPoint      string
	MajorStops    []string
	Time          *string
	TransportType string
}

// RoutePatch holds the descriptive fields to change. Nil fields are left
// alone; an empty Time clears the departure time.
type RoutePatch struct {
	EndPoint      *string
	MajorStops    *[]string
	Time          *string
	TransportType *string
}

// riderPurger deletes link rows orphaned by a route delete.
type riderPurger interface {
	purgeRiders(tx *gorm.DB, ids []uint) error
}

// RouteCatalog owns route rows and the one-route-per-tuple rule per date.
type RouteCatalog struct {
	db      *gorm.DB
	seq     *SlotSequencer
	cal     *CalendarIndex
	riders  riderPurger
	locks   *keyLocks
	clock   Clock
	pub     events.Publisher
	timeout opTimeout
}

// routeIDKey guards one route's row and its set of scheduled dates. It is
// always taken before any routeKey or joinKey.
func routeIDKey(routeID uint) string {
	return "route-id|" + strconv.FormatUint(uint64(routeID), 10)
}

func routeKey(date, endPoint string, at *string, transport string) string {
	t := ""
	if at != nil {
		t = *at
	}
	return strings.Join([]string{"route", date, strings.ToLower(endPoint), t, strings.ToLower(transport)}, "|")
}

func (in RouteInput) normalize(clock Clock) (RouteInput, error) {
	date, err := travelDate(in.Date, clock)
	if err != nil {
		return in, err
	}
	in.Date = date
	in.EndPoint = strings.TrimSpace(in.EndPoint)
	if in.EndPoint == "" {
		return in, invalid("end_point", "required")
	}
	if in.Time, err = parseTimeOfDay(in.Time); err != nil {
		return in, err
	}
	in.TransportType = strings.TrimSpace(in.TransportType)
	in.MajorStops = cleanStops(in.MajorStops)
	return in, nil
}

// CreateRoute allocates a slot and schedules a new route on in.Date.
func (c *RouteCatalog) CreateRoute(ctx context.Context, in RouteInput) (models.DatedRoute, error) {
	in, err := in.normalize(c.clock)
	if err != nil {
		return models.DatedRoute{}, err
	}

	key := routeKey(in.Date, in.EndPoint, in.Time, in.TransportType)
	unlock := c.locks.Lock(key)
	defer unlock()

	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	var route models.Route
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := serialize(tx, key); err != nil {
			return storeErr("lock route key", err)
		}
		taken, err := c.cal.RouteTaken(tx, in.Date, in.EndPoint, in.Time, in.TransportType, 0)
		if err != nil {
			return storeErr("check duplicate route", err)
		}
		if taken {
			return ErrDuplicateRoute
		}

		slot, err := c.seq.next(tx)
		if err != nil {
			return err
		}
		route = models.Route{
			SlotNo:        slot,
			EndPoint:      in.EndPoint,
			MajorStops:    in.MajorStops,
			Time:          in.Time,
			TransportType: in.TransportType,
		}
		if err := tx.Create(&route).Error; err != nil {
			return storeErr("insert route", err)
		}
		if err := c.cal.InsertPlaceholder(tx, in.Date, route.ID); err != nil {
			return storeErr("insert placeholder", err)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"date":      in.Date,
			"end_point": in.EndPoint,
		}).Warn("CreateRoute: rejected")
		return models.DatedRoute{}, storeErr("create route", err)
	}

	c.pub.Publish(events.NewRouteCreated(route, in.Date))
	logrus.WithFields(logrus.Fields{
		"route_id": route.ID,
		"slot_no":  route.SlotNo,
		"date":     in.Date,
	}).Info("Route created.")
	return models.DatedRoute{Route: route, Date: in.Date}, nil
}

// ScheduleRoute reuses an existing route on another date, subject to the same
// duplicate rule as CreateRoute.
func (c *RouteCatalog) ScheduleRoute(ctx context.Context, routeID uint, date string) (models.DatedRoute, error) {
	date, err := travelDate(date, c.clock)
	if err != nil {
		return models.DatedRoute{}, err
	}

	idKey := routeIDKey(routeID)
	unlockID := c.locks.Lock(idKey)
	defer unlockID()

	// read under the route lock so no update can change the tuple we key on
	route, err := c.GetRoute(ctx, routeID)
	if err != nil {
		return models.DatedRoute{}, err
	}
	key := routeKey(date, route.EndPoint, route.Time, route.TransportType)
	unlock := c.locks.Lock(key)
	defer unlock()

	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := serialize(tx, idKey); err != nil {
			return storeErr("lock route", err)
		}
		current, err := lockRoute(tx, routeID, "UPDATE")
		if isNotFound(err) {
			return ErrRouteNotFound
		}
		if err != nil {
			return storeErr("load route", err)
		}
		route = current
		if err := serialize(tx, routeKey(date, route.EndPoint, route.Time, route.TransportType)); err != nil {
			return storeErr("lock route key", err)
		}
		scheduled, err := c.cal.PlaceholderExists(tx, date, routeID)
		if err != nil {
			return storeErr("check placeholder", err)
		}
		taken, err := c.cal.RouteTaken(tx, date, route.EndPoint, route.Time, route.TransportType, 0)
		if err != nil {
			return storeErr("check duplicate route", err)
		}
		if scheduled || taken {
			return ErrDuplicateRoute
		}
		return storeErr("insert placeholder", c.cal.InsertPlaceholder(tx, date, routeID))
	})
	if err != nil {
		return models.DatedRoute{}, storeErr("schedule route", err)
	}

	c.pub.Publish(events.NewRouteCreated(route, date))
	logrus.WithFields(logrus.Fields{"route_id": routeID, "date": date}).Info("Route scheduled on another date.")
	return models.DatedRoute{Route: route, Date: date}, nil
}

// UpdateRoute applies patch. The changed tuple must stay unique on every date
// the route is scheduled.
func (c *RouteCatalog) UpdateRoute(ctx context.Context, routeID uint, patch RoutePatch) (models.Route, error) {
	idKey := routeIDKey(routeID)
	unlockID := c.locks.Lock(idKey)
	defer unlockID()

	// the route and its dates are stable while idKey is held
	route, err := c.GetRoute(ctx, routeID)
	if err != nil {
		return models.Route{}, err
	}
	if err := applyPatch(&route, patch); err != nil {
		return models.Route{}, err
	}

	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	dates, err := c.cal.ScheduledDates(c.db.WithContext(ctx), routeID)
	if err != nil {
		return models.Route{}, storeErr("list route dates", err)
	}
	unlock := c.locks.LockAll(tupleKeys(dates, route))
	defer unlock()

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := serialize(tx, idKey); err != nil {
			return storeErr("lock route", err)
		}
		current, err := lockRoute(tx, routeID, "UPDATE")
		if isNotFound(err) {
			return ErrRouteNotFound
		}
		if err != nil {
			return storeErr("load route", err)
		}
		// other processes only share the advisory locks; re-read under them
		route = current
		if err := applyPatch(&route, patch); err != nil {
			return err
		}
		dates, err = c.cal.ScheduledDates(tx, routeID)
		if err != nil {
			return storeErr("list route dates", err)
		}
		for _, k := range sortedUnique(tupleKeys(dates, route)) {
			if err := serialize(tx, k); err != nil {
				return storeErr("lock route key", err)
			}
		}

		for _, d := range dates {
			taken, err := c.cal.RouteTaken(tx, d, route.EndPoint, route.Time, route.TransportType, routeID)
			if err != nil {
				return storeErr("check duplicate route", err)
			}
			if taken {
				return fmt.Errorf("%w on %s", ErrDuplicateRoute, d)
			}
		}
		return storeErr("update route", tx.Model(&models.Route{ID: routeID}).
			Select("EndPoint", "MajorStops", "Time", "TransportType", "UpdatedAt").
			Updates(&route).Error)
	})
	if err != nil {
		return models.Route{}, storeErr("update route", err)
	}

	c.pub.Publish(events.NewRouteUpdated(route))
	logrus.WithField("route_id", routeID).Info("Route updated.")
	return route, nil
}

func tupleKeys(dates []string, r models.Route) []string {
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, routeKey(d, r.EndPoint, r.Time, r.TransportType))
	}
	return keys
}

func applyPatch(r *models.Route, p RoutePatch) error {
	if p.EndPoint != nil {
		ep := strings.TrimSpace(*p.EndPoint)
		if ep == "" {
			return invalid("end_point", "required")
		}
		r.EndPoint = ep
	}
	if p.MajorStops != nil {
		r.MajorStops = cleanStops(*p.MajorStops)
	}
	if p.Time != nil {
		t, err := parseTimeOfDay(p.Time)
		if err != nil {
			return err
		}
		r.Time = t
	}
	if p.TransportType != nil {
		r.TransportType = strings.TrimSpace(*p.TransportType)
	}
	return nil
}

// DeleteRoute removes the route, every calendar entry referencing it and the
// links attached through those entries, in one transaction.
func (c *RouteCatalog) DeleteRoute(ctx context.Context, routeID uint) error {
	idKey := routeIDKey(routeID)
	unlockID := c.locks.Lock(idKey)
	defer unlockID()

	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	dates, err := c.cal.ScheduledDates(c.db.WithContext(ctx), routeID)
	if err != nil {
		return storeErr("list route dates", err)
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, joinKey(d, routeID))
	}
	unlock := c.locks.LockAll(keys)
	defer unlock()

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := serialize(tx, idKey); err != nil {
			return storeErr("lock route", err)
		}
		for _, k := range sortedUnique(keys) {
			if err := serialize(tx, k); err != nil {
				return storeErr("lock join key", err)
			}
		}
		if _, err := lockRoute(tx, routeID, "UPDATE"); err != nil {
			if isNotFound(err) {
				return ErrRouteNotFound
			}
			return storeErr("load route", err)
		}
		linkIDs, err := c.cal.DeleteByRoute(tx, routeID)
		if err != nil {
			return storeErr("delete route entries", err)
		}
		if err := c.riders.purgeRiders(tx, linkIDs); err != nil {
			return storeErr("delete route links", err)
		}
		return storeErr("delete route", tx.Delete(&models.Route{}, routeID).Error)
	})
	if err != nil {
		return storeErr("delete route", err)
	}

	c.pub.Publish(events.NewRouteDeleted(routeID))
	logrus.WithFields(logrus.Fields{"route_id": routeID, "dates": dates}).Info("Route deleted.")
	return nil
}

func (c *RouteCatalog) GetRoute(ctx context.Context, routeID uint) (models.Route, error) {
	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	var r models.Route
	err := c.db.WithContext(ctx).Where("id = ?", routeID).Take(&r).Error
	if isNotFound(err) {
		return r, ErrRouteNotFound
	}
	return r, storeErr("load route", err)
}

// ListRoutesForDate returns the routes scheduled on date ordered by id, which
// is also slot order.
func (c *RouteCatalog) ListRoutesForDate(ctx context.Context, date string) ([]models.DatedRoute, error) {
	date, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	routes, err := c.cal.RoutesForDate(c.db.WithContext(ctx), date)
	if err != nil {
		return nil, storeErr("list routes", err)
	}
	if routes == nil {
		routes = []models.DatedRoute{}
	}
	return routes, nil
}

// CountRiders returns how many links have joined route on date.
func (c *RouteCatalog) CountRiders(ctx context.Context, date string, routeID uint) (int64, error) {
	date, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	ctx, cancel := c.timeout.bound(ctx)
	defer cancel()

	n, err := c.cal.CountRiders(c.db.WithContext(ctx), date, routeID)
	return n, storeErr("count riders", err)
}

// NextSlot peeks at the slot the next created route would receive.
func (c *RouteCatalog) NextSlot(ctx context.Context) (string, error) {
	return c.seq.Peek(ctx)
}
