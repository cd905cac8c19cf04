package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

type RestaurantController struct {
	Restaurants *services.RestaurantService
}

func NewRestaurantController(restaurants *services.RestaurantService) *RestaurantController {
	return &RestaurantController{Restaurants: restaurants}
}

// Register lets an authenticated user open a restaurant they will own.
func (rc *RestaurantController) Register(c *gin.Context) {
	var in services.RestaurantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	restaurant, err := rc.Restaurants.Register(c.Request.Context(), middlewares.UserID(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Restaurant registered", restaurant)
}

// GetPublic is the customer landing data for a restaurant.
func (rc *RestaurantController) GetPublic(c *gin.Context) {
	id, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	restaurant, err := rc.Restaurants.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant", restaurant)
}

func (rc *RestaurantController) Update(c *gin.Context) {
	var in services.RestaurantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	restaurant, err := rc.Restaurants.Update(c.Request.Context(), middlewares.Session(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}

// Session describes who the caller is acting as.
func (rc *RestaurantController) Session(c *gin.Context) {
	sess := middlewares.Session(c)
	utils.RespondJSON(c, http.StatusOK, "Session", gin.H{
		"session":      sess,
		"role":         sess.Role(),
		"capabilities": sess.Capabilities(),
	})
}

func (rc *RestaurantController) ListStaff(c *gin.Context) {
	staff, err := rc.Restaurants.ListStaff(c.Request.Context(), middlewares.Session(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of staff", staff)
}

func (rc *RestaurantController) AddStaff(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Role  string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	assignment, err := rc.Restaurants.AddStaff(c.Request.Context(), middlewares.Session(c), req.Email, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Staff added", assignment)
}

func (rc *RestaurantController) UpdateStaff(c *gin.Context) {
	id, ok := paramID(c, "staff_id")
	if !ok {
		return
	}
	var in services.StaffUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	assignment, err := rc.Restaurants.UpdateStaff(c.Request.Context(), middlewares.Session(c), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Staff updated", assignment)
}
