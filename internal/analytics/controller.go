package analytics

import (
	"errors"
	"net/http"
	"time"

	"busline/internal/shared/middleware"
	"busline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// Controller defines the analytics controller interface
type Controller interface {
	GetOwnerSales(c *gin.Context)
}

type controller struct {
	service Service
}

// NewController creates a new analytics controller instance
func NewController(service Service) Controller {
	return &controller{service: service}
}

// GetOwnerSales handles GET /api/v1/owner/reports/sales?from=2026-10-01&to=2026-11-01
// Both dates are UTC days; to is exclusive and defaults to tomorrow, from
// defaults to thirty days before to.
// @Summary Seats sold and revenue per trip for the calling owner
// @Tags reports
// @Produce json
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Day after the last (YYYY-MM-DD)"
// @Success 200 {object} response.StandardApiResponse
// @Failure 400 {object} response.StandardApiResponse
// @Security BearerAuth
// @Router /owner/reports/sales [get]
func (ctrl *controller) GetOwnerSales(c *gin.Context) {
	ownerID, _, err := middleware.CurrentUser(c)
	if err != nil {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	to := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	if raw := c.Query("to"); raw != "" {
		if to, err = time.Parse(dateLayout, raw); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid to date", nil, err.Error())
			return
		}
	}
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		if from, err = time.Parse(dateLayout, raw); err != nil {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid from date", nil, err.Error())
			return
		}
	}

	report, err := ctrl.service.OwnerSales(c.Request.Context(), ownerID, from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
			return
		}
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Failed to build sales report", nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Sales report generated", report, nil)
}
