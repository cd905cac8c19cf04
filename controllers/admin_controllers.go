package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

type AdminController struct {
	Views *services.ViewService
}

func NewAdminController(views *services.ViewService) *AdminController {
	return &AdminController{Views: views}
}

// GetView returns a one-off snapshot of a view, for displays that poll.
func (ac *AdminController) GetView(c *gin.Context) {
	sess := middlewares.Session(c)
	view, err := services.ParseViewName(c.Param("view"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !sess.Can(viewCapability[view]) {
		utils.RespondError(c, http.StatusForbidden, errors.New("insufficient permissions"))
		return
	}
	snap, err := ac.Views.Snapshot(c.Request.Context(), sess.RestaurantID, view)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "View snapshot", snap)
}

func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Views.Dashboard(c.Request.Context(), middlewares.Session(c).RestaurantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}
