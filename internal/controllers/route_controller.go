package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"routelink/internal/scheduling"
)

// stopList accepts major stops either as a JSON array or as the
// comma-separated string older clients send.
type stopList []string

func (s *stopList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	*s = strings.Split(*raw, ",")
	return nil
}

type routeInput struct {
	Date          string   `json:"date"`
	EndPoint      string   `json:"end_point"`
	MajorStops    stopList `json:"major_stops"`
	Time          *string  `json:"time"`
	TransportType string   `json:"transport_type"`
}

type routePatchInput struct {
	EndPoint      *string   `json:"end_point"`
	MajorStops    *stopList `json:"major_stops"`
	Time          *string   `json:"time"`
	TransportType *string   `json:"transport_type"`
}

// NextSlot returns the slot the next route would get, without reserving it.
func (h *Handler) NextSlot(c *gin.Context) {
	slot, err := h.engine.Catalog.NextSlot(c.Request.Context())
	if err != nil {
		respondError(c, "next_slot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot})
}

func (h *Handler) Holidays(c *gin.Context) {
	c.JSON(http.StatusOK, h.holidays)
}

// Calendar lists the routes scheduled on a date.
func (h *Handler) Calendar(c *gin.Context) {
	routes, err := h.engine.Catalog.ListRoutesForDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, "calendar", err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

// CreateRoute schedules a new route. The slot is assigned server-side; any
// slot_no in the body is ignored.
func (h *Handler) CreateRoute(c *gin.Context) {
	var input routeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "kind": scheduling.KindValidation})
		return
	}

	route, err := h.engine.Catalog.CreateRoute(c.Request.Context(), scheduling.RouteInput{
		Date:          input.Date,
		EndPoint:      input.EndPoint,
		MajorStops:    input.MajorStops,
		Time:          input.Time,
		TransportType: input.TransportType,
	})
	if err != nil {
		respondError(c, "create_route", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": route})
}

func (h *Handler) GetRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	route, err := h.engine.Catalog.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get_route", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

// ScheduleRoute puts an existing route on another date.
func (h *Handler) ScheduleRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "kind": scheduling.KindValidation})
		return
	}

	route, err := h.engine.Catalog.ScheduleRoute(c.Request.Context(), id, input.Date)
	if err != nil {
		respondError(c, "schedule_route", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": route})
}

// UpdateRoute changes only the fields present in the body.
func (h *Handler) UpdateRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input routePatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: Invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": scheduling.KindValidation})
		return
	}

	patch := scheduling.RoutePatch{
		EndPoint:      input.EndPoint,
		Time:          input.Time,
		TransportType: input.TransportType,
	}
	if input.MajorStops != nil {
		stops := []string(*input.MajorStops)
		patch.MajorStops = &stops
	}

	route, err := h.engine.Catalog.UpdateRoute(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, "update_route", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": route})
}

// DeleteRoute removes a route with every link that joined it.
func (h *Handler) DeleteRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.engine.Catalog.DeleteRoute(c.Request.Context(), id); err != nil {
		respondError(c, "delete_route", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RouteCount reports occupancy; missing parameters count as zero.
func (h *Handler) RouteCount(c *gin.Context) {
	date := c.Query("date")
	routeID, err := strconv.ParseUint(c.Query("route_id"), 10, 64)
	if date == "" || err != nil || routeID == 0 {
		c.JSON(http.StatusOK, gin.H{"count": 0})
		return
	}

	n, err := h.engine.Catalog.CountRiders(c.Request.Context(), date, uint(routeID))
	if err != nil {
		respondError(c, "route_count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}
