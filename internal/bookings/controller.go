package bookings

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"busline/internal/shared/middleware"
	"busline/internal/shared/utils/response"
	"busline/internal/users"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
	log       *logger.Logger
}

func NewController(service Service, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Controller{
		service:   service,
		validator: validator.New(),
		log:       log,
	}
}

// RequestReservation handles POST /api/v1/reservations
// @Summary Request seats on a trip
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "Trip to book"
// @Success 201 {object} response.StandardApiResponse
// @Failure 400,403,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations [post]
func (ctl *Controller) RequestReservation(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}

	var req CreateReservationRequest
	if !ctl.bind(c, &req, false) {
		return
	}
	tripID, _ := uuid.Parse(req.TripID)

	r, err := ctl.service.Request(c.Request.Context(), actor, tripID)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Reservation requested", toReservationResponse(r), nil)
}

// GetReservation handles GET /api/v1/reservations/:id
// @Summary Get a reservation as the caller may see it
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations/{id} [get]
func (ctl *Controller) GetReservation(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid reservation ID")
	if !ok {
		return
	}

	view, err := ctl.service.GetReservation(c.Request.Context(), actor, id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Reservation retrieved successfully", view, nil)
}

// AcceptReservation handles POST /api/v1/reservations/:id/accept
// @Summary Accept a pending reservation
// @Tags reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations/{id}/accept [post]
func (ctl *Controller) AcceptReservation(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid reservation ID")
	if !ok {
		return
	}

	r, err := ctl.service.Accept(c.Request.Context(), actor, id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondReservation(c, actor, r, "Reservation accepted")
}

// RejectReservation handles POST /api/v1/reservations/:id/reject
// @Summary Reject a pending reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body RejectReservationRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations/{id}/reject [post]
func (ctl *Controller) RejectReservation(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid reservation ID")
	if !ok {
		return
	}

	var req RejectReservationRequest
	if !ctl.bind(c, &req, true) {
		return
	}

	r, err := ctl.service.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondReservation(c, actor, r, "Reservation rejected")
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel
// @Summary Cancel a reservation
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body CancelReservationRequest false "Reason"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations/{id}/cancel [post]
func (ctl *Controller) CancelReservation(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid reservation ID")
	if !ok {
		return
	}

	var req CancelReservationRequest
	if !ctl.bind(c, &req, true) {
		return
	}

	r, err := ctl.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondReservation(c, actor, r, "Reservation cancelled")
}

// IssueTicket handles POST /api/v1/reservations/:id/ticket
// @Summary Issue a ticket for an accepted reservation
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body IssueTicketRequest true "Boarding point and seats"
// @Success 201 {object} response.StandardApiResponse
// @Failure 400,403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /reservations/{id}/ticket [post]
func (ctl *Controller) IssueTicket(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid reservation ID")
	if !ok {
		return
	}

	var req IssueTicketRequest
	if !ctl.bind(c, &req, false) {
		return
	}
	pointID, _ := uuid.Parse(req.BoardingPointID)

	t, err := ctl.service.IssueTicket(c.Request.Context(), actor, id, IssueTicketInput{
		BoardingPointID: pointID,
		SeatCount:       req.SeatCount,
		SeatLabels:      req.SeatLabels,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondTicket(c, actor, t, http.StatusCreated, "Ticket issued")
}

// GetTicket handles GET /api/v1/tickets/:id
// @Summary Get a ticket as the caller may see it
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /tickets/{id} [get]
func (ctl *Controller) GetTicket(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid ticket ID")
	if !ok {
		return
	}

	view, err := ctl.service.GetTicket(c.Request.Context(), actor, id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Ticket retrieved successfully", view, nil)
}

// GetTicketPDF handles GET /api/v1/tickets/:id/pdf
// @Summary Download a ticket printout
// @Tags tickets
// @Produce application/pdf
// @Param id path string true "Ticket ID"
// @Success 200 {file} file
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /tickets/{id}/pdf [get]
func (ctl *Controller) GetTicketPDF(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid ticket ID")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ctl.service.WriteTicketPDF(c.Request.Context(), actor, id, &buf); err != nil {
		ctl.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=ticket-"+id.String()+".pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// CancelTicket handles POST /api/v1/tickets/:id/cancel
// @Summary Cancel a confirmed ticket and release its seats
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /tickets/{id}/cancel [post]
func (ctl *Controller) CancelTicket(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid ticket ID")
	if !ok {
		return
	}

	t, err := ctl.service.CancelTicket(c.Request.Context(), actor, id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondTicket(c, actor, t, http.StatusOK, "Ticket cancelled")
}

// CompleteTicket handles POST /api/v1/tickets/:id/complete
// @Summary Mark a ticket as travelled
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.StandardApiResponse
// @Failure 403,404,409 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /tickets/{id}/complete [post]
func (ctl *Controller) CompleteTicket(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	id, ok := ctl.pathID(c, "Invalid ticket ID")
	if !ok {
		return
	}

	t, err := ctl.service.CompleteTicket(c.Request.Context(), actor, id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	ctl.respondTicket(c, actor, t, http.StatusOK, "Ticket completed")
}

// ListTripReservations handles GET /api/v1/trips/:id/reservations
// @Summary Reservation queue for a trip
// @Tags reservations
// @Produce json
// @Param id path string true "Trip ID"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse
// @Failure 400,403,404 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /trips/{id}/reservations [get]
func (ctl *Controller) ListTripReservations(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	tripID, ok := ctl.pathID(c, "Invalid trip ID")
	if !ok {
		return
	}
	q, ok := ctl.listQuery(c)
	if !ok {
		return
	}

	page, err := ctl.service.ListTripReservations(c.Request.Context(), actor, tripID, q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Reservations retrieved successfully", page, nil)
}

// ListMyReservations handles GET /api/v1/users/reservations
// @Summary The caller's reservations
// @Tags reservations
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /users/reservations [get]
func (ctl *Controller) ListMyReservations(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	q, ok := ctl.listQuery(c)
	if !ok {
		return
	}

	page, err := ctl.service.ListRiderReservations(c.Request.Context(), actor, q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Reservations retrieved successfully", page, nil)
}

// ListMyTickets handles GET /api/v1/users/tickets
// @Summary The caller's tickets
// @Tags tickets
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /users/tickets [get]
func (ctl *Controller) ListMyTickets(c *gin.Context) {
	actor, ok := ctl.actor(c)
	if !ok {
		return
	}
	q, ok := ctl.listQuery(c)
	if !ok {
		return
	}

	page, err := ctl.service.ListRiderTickets(c.Request.Context(), actor, q)
	if err != nil {
		ctl.respondError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Tickets retrieved successfully", page, nil)
}

// respondReservation answers with the caller's projected view, falling back
// to the bare record if the view cannot be built after a committed change.
func (ctl *Controller) respondReservation(c *gin.Context, actor Actor, r *Reservation, message string) {
	view, err := ctl.service.ViewReservation(c.Request.Context(), actor, r)
	if err != nil {
		ctl.log.WithError(err).Warn("Failed to project reservation", "reservation_id", r.ID.String())
		response.RespondJSON(c, "success", http.StatusOK, message, toReservationResponse(r), nil)
		return
	}
	response.RespondJSON(c, "success", http.StatusOK, message, view, nil)
}

func (ctl *Controller) respondTicket(c *gin.Context, actor Actor, t *Ticket, status int, message string) {
	view, err := ctl.service.ViewTicket(c.Request.Context(), actor, t)
	if err != nil {
		ctl.log.WithError(err).Warn("Failed to project ticket", "ticket_id", t.ID.String())
		response.RespondJSON(c, "success", status, message, toTicketResponse(t), nil)
		return
	}
	response.RespondJSON(c, "success", status, message, view, nil)
}

func (ctl *Controller) actor(c *gin.Context) (Actor, bool) {
	id, role, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return Actor{}, false
	}
	return Actor{ID: id, Role: users.Role(role)}, true
}

func (ctl *Controller) pathID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, message, nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// bind decodes and validates a JSON body. Optional bodies may be empty.
func (ctl *Controller) bind(c *gin.Context, req interface{}, optional bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return false
		}
	}
	if err := ctl.validator.Struct(req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, response.ValidationErrors(err))
		return false
	}
	return true
}

func (ctl *Controller) listQuery(c *gin.Context) (ListQuery, bool) {
	var req ListQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return ListQuery{}, false
	}
	if err := ctl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Validation failed", nil, response.ValidationErrors(err))
		return ListQuery{}, false
	}
	return ListQuery{Status: req.Status, Page: req.Page, Limit: req.Limit}, true
}

// respondError maps domain errors onto the response envelope. Ledger
// inconsistencies were already alarmed by the service.
func (ctl *Controller) respondError(c *gin.Context, err error) {
	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, ErrNotAuthorized):
		status, message = http.StatusForbidden, "not authorized"
	case errors.Is(err, ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, ErrInvalidTransition):
		status, message = http.StatusConflict, "invalid status transition"
	case errors.Is(err, ErrInsufficientSeats):
		status, message = http.StatusConflict, "not enough seats left on this trip"
	case errors.Is(err, ErrDuplicatePending):
		status, message = http.StatusConflict, ErrDuplicatePending.Error()
	case errors.Is(err, ErrAlreadyTicketed):
		status, message = http.StatusConflict, ErrAlreadyTicketed.Error()
	case errors.Is(err, ErrInvalidTrip),
		errors.Is(err, ErrInvalidBoardingPoint),
		errors.Is(err, ErrInvalidSeatCount),
		errors.Is(err, ErrInvalidSeatLabel),
		errors.Is(err, ErrInvalidFilter):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, ErrLedgerInconsistency):
		status, message = http.StatusInternalServerError, "internal error"
	default:
		status, message = http.StatusInternalServerError, "internal error"
		ctl.log.LogHTTPError(c, err, status)
	}
	response.RespondJSON(c, "error", status, message, nil, nil)
}
