package feed

import (
	"errors"
	"net/http"

	"busline/internal/shared/middleware"
	"busline/internal/shared/utils/response"
	"busline/internal/trips"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	hub     *Hub
	catalog trips.Catalog
	cfg     StreamConfig
	log     *logger.Logger
}

func NewController(hub *Hub, catalog trips.Catalog, cfg StreamConfig, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{hub: hub, catalog: catalog, cfg: cfg, log: log}
}

// TripFeed handles GET /api/v1/feed/trips/:id
// Only the trip's supervisor and its owner may watch a trip.
func (ctl *Controller) TripFeed(c *gin.Context) {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid trip ID", nil, nil)
		return
	}

	trip, err := ctl.catalog.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, trips.ErrTripNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, "Trip not found", nil, nil)
			return
		}
		ctl.log.LogHTTPError(c, err, http.StatusInternalServerError)
		response.RespondJSON(c, "error", http.StatusInternalServerError, "internal error", nil, nil)
		return
	}
	if !trip.IsSupervisedBy(userID) && !trip.IsOwnedBy(userID) {
		response.RespondJSON(c, "error", http.StatusForbidden, "not authorized", nil, nil)
		return
	}

	stream(c.Writer, c.Request, ctl.hub.Subscribe(TripTopic(tripID)), ctl.cfg, ctl.log)
}

// RiderFeed handles GET /api/v1/feed/riders/me
func (ctl *Controller) RiderFeed(c *gin.Context) {
	userID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	stream(c.Writer, c.Request, ctl.hub.Subscribe(RiderTopic(userID)), ctl.cfg, ctl.log)
}
