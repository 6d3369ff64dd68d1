package handlers

import (
	"github.com/gin-gonic/gin"

	"medbook-server/internal/repository"
	"medbook-server/internal/scheduling"
	"medbook-server/internal/utils"
)

// AdminHandler serves aggregate statistics for the admin dashboard.
type AdminHandler struct {
	Scheduler *scheduling.Service
	Users     *repository.UserRepo
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(scheduler *scheduling.Service, users *repository.UserRepo) *AdminHandler {
	return &AdminHandler{Scheduler: scheduler, Users: users}
}

// GetStats returns appointment totals by status and user totals by role.
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	statusCounts, err := h.Scheduler.StatusCounts(ctx)
	if err != nil {
		utils.InternalServerError(c, "Failed to count appointments: "+err.Error())
		return
	}
	roleCounts, err := h.Users.CountByRole(ctx)
	if err != nil {
		utils.InternalServerError(c, "Failed to count users: "+err.Error())
		return
	}

	utils.Success(c, "Statistics fetched successfully", gin.H{
		"appointmentsByStatus": statusCounts,
		"usersByRole":          roleCounts,
	})
}
