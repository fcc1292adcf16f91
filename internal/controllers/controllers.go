package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"routelink/internal/broadcast"
	"routelink/internal/config"
	"routelink/internal/middleware"
	"routelink/internal/scheduling"
)

// Handler serves the HTTP API over the scheduling engine.
type Handler struct {
	engine   *scheduling.Engine
	db       *gorm.DB
	tokens   *middleware.Tokens
	hub      *broadcast.Hub
	holidays []config.Holiday
	clock    scheduling.Clock
}

type Deps struct {
	Engine   *scheduling.Engine
	DB       *gorm.DB
	Tokens   *middleware.Tokens
	Hub      *broadcast.Hub
	Holidays []config.Holiday
	Clock    scheduling.Clock
}

func New(d Deps) *Handler {
	if d.Holidays == nil {
		d.Holidays = []config.Holiday{}
	}
	return &Handler{
		engine:   d.Engine,
		db:       d.DB,
		tokens:   d.Tokens,
		hub:      d.Hub,
		holidays: d.Holidays,
		clock:    d.Clock,
	}
}

var kindStatus = map[scheduling.ErrorKind]int{
	scheduling.KindValidation:  http.StatusBadRequest,
	scheduling.KindConflict:    http.StatusConflict,
	scheduling.KindNotFound:    http.StatusNotFound,
	scheduling.KindForbidden:   http.StatusForbidden,
	scheduling.KindUnavailable: http.StatusServiceUnavailable,
}

// respondError maps a scheduling error to its status and JSON body.
func respondError(c *gin.Context, op string, err error) {
	kind := scheduling.Kind(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"error": err.Error(), "kind": kind}
	var mismatch *scheduling.DropPointMismatchError
	if errors.As(err, &mismatch) {
		body["expected"] = mismatch.Expected
	}

	entry := logrus.WithError(err).WithFields(logrus.Fields{"op": op, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	c.JSON(status, body)
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "kind": scheduling.KindValidation})
		return 0, false
	}
	return uint(id), true
}
