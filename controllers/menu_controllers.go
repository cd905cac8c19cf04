package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

type MenuController struct {
	Menu *services.MenuService
}

func NewMenuController(menu *services.MenuService) *MenuController {
	return &MenuController{Menu: menu}
}

// Browse is the customer menu: ?search=&category=&price=&page=
func (mc *MenuController) Browse(c *gin.Context) {
	restaurantID, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	page, err := mc.Menu.Browse(c.Request.Context(), restaurantID, services.MenuFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Price:    c.Query("price"),
		Page:     services.ParsePage(c.Query("page")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", page)
}

func (mc *MenuController) Categories(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Menu categories", models.MenuCategories)
}

func (mc *MenuController) Manage(c *gin.Context) {
	items, err := mc.Menu.Manage(c.Request.Context(), middlewares.Session(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) Create(c *gin.Context) {
	var in services.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := mc.Menu.Create(c.Request.Context(), middlewares.Session(c), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

func (mc *MenuController) Update(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var in services.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := mc.Menu.Update(c.Request.Context(), middlewares.Session(c), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) SetAvailability(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req struct {
		IsAvailable *bool `json:"is_available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item, err := mc.Menu.SetAvailability(c.Request.Context(), middlewares.Session(c), id, *req.IsAvailable)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item availability updated", item)
}

func (mc *MenuController) Delete(c *gin.Context) {
	id, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	if err := mc.Menu.Delete(c.Request.Context(), middlewares.Session(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
