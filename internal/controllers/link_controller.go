package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"routelink/internal/middleware"
	"routelink/internal/scheduling"
)

type joinInput struct {
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Drop       string `json:"drop"`
	Phone      string `json:"phone"`
	CourseYear string `json:"course_year"`
	Branch     string `json:"branch"`
	Date       string `json:"date"`
}

// RouteLinks lists who joined a route on ?date= (default today).
func (h *Handler) RouteLinks(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date := c.DefaultQuery("date", h.clock.Today())

	links, err := h.engine.Joins.ListRidersForRouteDate(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, "route_links", err)
		return
	}
	c.JSON(http.StatusOK, links)
}

// JoinRoute registers the submitted person on the route for the body's date
// (default today).
func (h *Handler) JoinRoute(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input joinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error(), "kind": scheduling.KindValidation})
		return
	}
	if input.Date == "" {
		input.Date = h.clock.Today()
	}

	link, err := h.engine.Joins.JoinRoute(c.Request.Context(), id, input.Date, scheduling.RiderInput{
		Name:       input.Name,
		Gender:     input.Gender,
		DropPoint:  input.Drop,
		Phone:      input.Phone,
		CourseYear: input.CourseYear,
		Branch:     input.Branch,
	})
	if err != nil {
		respondError(c, "join_route", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": link})
}

// DeleteLink lets callers withdraw registrations made under their own name.
func (h *Handler) DeleteLink(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	link, err := h.engine.Joins.GetRider(ctx, id)
	if err != nil {
		respondError(c, "delete_link", err)
		return
	}
	if err := scheduling.AuthorizeRemoval(middleware.IdentityFrom(c), link.Link); err != nil {
		respondError(c, "delete_link", err)
		return
	}
	if err := h.engine.Joins.RemoveRider(ctx, id); err != nil {
		respondError(c, "delete_link", err)
		return
	}
	c.Status(http.StatusNoContent)
}
