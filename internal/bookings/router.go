package bookings

import (
	"busline/internal/shared/config"
	"busline/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures reservation and ticket routes. Role
// checks here are coarse; the service decides per trip and per record.
func SetupReservationRoutes(rg *gin.RouterGroup, cfg *config.Config, controller *Controller) {
	auth := middleware.JWTAuthWithConfig(cfg)

	reservations := rg.Group("/reservations")
	reservations.Use(auth)
	{
		reservations.POST("", middleware.RequireRoles("RIDER"), controller.RequestReservation) // POST /api/v1/reservations
		reservations.GET("/:id", controller.GetReservation)                                    // GET /api/v1/reservations/:id
		reservations.POST("/:id/accept", middleware.RequireRoles("SUPERVISOR"), controller.AcceptReservation)
		reservations.POST("/:id/reject", middleware.RequireRoles("SUPERVISOR"), controller.RejectReservation)
		reservations.POST("/:id/cancel", middleware.RequireRoles("RIDER", "SUPERVISOR"), controller.CancelReservation)
		reservations.POST("/:id/ticket", middleware.RequireRoles("RIDER"), controller.IssueTicket)
	}

	tickets := rg.Group("/tickets")
	tickets.Use(auth)
	{
		tickets.GET("/:id", controller.GetTicket)
		tickets.GET("/:id/pdf", middleware.RequireRoles("RIDER"), controller.GetTicketPDF)
		tickets.POST("/:id/cancel", middleware.RequireRoles("RIDER"), controller.CancelTicket)
		tickets.POST("/:id/complete", middleware.RequireRoles("SUPERVISOR"), controller.CompleteTicket)
	}

	tripRoutes := rg.Group("/trips")
	tripRoutes.Use(auth, middleware.RequireRoles("SUPERVISOR", "OWNER"))
	{
		tripRoutes.GET("/:id/reservations", controller.ListTripReservations) // GET /api/v1/trips/:id/reservations?status=pending
	}

	me := rg.Group("/users")
	me.Use(auth, middleware.RequireRoles("RIDER"))
	{
		me.GET("/reservations", controller.ListMyReservations) // GET /api/v1/users/reservations?page=1&limit=20
		me.GET("/tickets", controller.ListMyTickets)           // GET /api/v1/users/tickets?status=confirmed
	}
}

// Route definitions for reference:
//
// RESERVATIONS
// POST   /api/v1/reservations                   - Rider requests seats { "trip_id": "..." }
// GET    /api/v1/reservations/:id               - Projected view for the caller
// POST   /api/v1/reservations/:id/accept        - Supervisor accepts (reveals the rider)
// POST   /api/v1/reservations/:id/reject        - Supervisor rejects { "reason": "..." }
// POST   /api/v1/reservations/:id/cancel        - Rider or supervisor cancels
// POST   /api/v1/reservations/:id/ticket        - Rider issues a ticket, debits seats
//
// TICKETS
// GET    /api/v1/tickets/:id                    - Projected view, total fare re-checked
// GET    /api/v1/tickets/:id/pdf                - Printout for the rider
// POST   /api/v1/tickets/:id/cancel             - Rider cancels, credits seats
// POST   /api/v1/tickets/:id/complete           - Supervisor marks travelled
