package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

// CartController serves the customer's in-progress order. Carts live in memory
// until checkout, expiry or restart.
type CartController struct {
	Carts       *cart.Store
	Restaurants *services.RestaurantService
	Menu        *services.MenuService
	Orders      *services.OrderService
}

func NewCartController(carts *cart.Store, restaurants *services.RestaurantService, menu *services.MenuService, orders *services.OrderService) *CartController {
	return &CartController{Carts: carts, Restaurants: restaurants, Menu: menu, Orders: orders}
}

func cartResponse(id string, restaurantID uint, c *cart.Cart) gin.H {
	return gin.H{
		"cart_id":       id,
		"restaurant_id": restaurantID,
		"cart":          c.Summary(),
		"prep_time":     c.MaxPrepTime(),
	}
}

func (cc *CartController) Create(c *gin.Context) {
	restaurantID, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	if _, err := cc.Restaurants.Get(c.Request.Context(), restaurantID); err != nil {
		respondServiceError(c, err)
		return
	}
	id := cc.Carts.Create(restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Cart created", cartResponse(id, restaurantID, cart.New()))
}

func (cc *CartController) Get(c *gin.Context) {
	id := c.Param("cart_id")
	current, restaurantID, err := cc.Carts.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", cartResponse(id, restaurantID, current))
}

// AddItem adds quantity (default 1) of an available menu item.
func (cc *CartController) AddItem(c *gin.Context) {
	id := c.Param("cart_id")
	var req struct {
		MenuItemID uint `json:"menu_item_id" binding:"required"`
		Quantity   int  `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > cart.MaxQuantity {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("quantity must be between 1 and %d", cart.MaxQuantity))
		return
	}
	_, restaurantID, err := cc.Carts.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	item, err := cc.Menu.Get(c.Request.Context(), restaurantID, req.MenuItemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !item.IsAvailable {
		utils.RespondError(c, http.StatusConflict, errors.New(item.Name+" is not available"))
		return
	}
	entry := cart.Item{MenuItemID: item.ID, Name: item.Name, Price: item.Price, PrepTime: item.PrepTime}
	current, err := cc.Carts.AddN(id, entry, req.Quantity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item added", cartResponse(id, restaurantID, current))
}

// RemoveItem takes one unit of the item out of the cart.
func (cc *CartController) RemoveItem(c *gin.Context) {
	id := c.Param("cart_id")
	menuItemID, ok := paramID(c, "menu_item_id")
	if !ok {
		return
	}
	current, err := cc.Carts.Remove(id, menuItemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	_, restaurantID, _ := cc.Carts.Get(id)
	utils.RespondJSON(c, http.StatusOK, "Item removed", cartResponse(id, restaurantID, current))
}

func (cc *CartController) SetInstructions(c *gin.Context) {
	id := c.Param("cart_id")
	menuItemID, ok := paramID(c, "menu_item_id")
	if !ok {
		return
	}
	var req struct {
		SpecialInstructions string `json:"special_instructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	current, err := cc.Carts.SetInstructions(id, menuItemID, req.SpecialInstructions)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	_, restaurantID, _ := cc.Carts.Get(id)
	utils.RespondJSON(c, http.StatusOK, "Instructions updated", cartResponse(id, restaurantID, current))
}

// Checkout submits the cart as an order. The cart is discarded only once the
// order is stored, so a failed checkout can be retried.
func (cc *CartController) Checkout(c *gin.Context) {
	id := c.Param("cart_id")
	var req struct {
		TableNumber  tableNumberField `json:"table_number"`
		CustomerName string           `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	current, restaurantID, err := cc.Carts.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	order, err := cc.Orders.Submit(c.Request.Context(), services.SubmitInput{
		RestaurantID: restaurantID,
		TableNumber:  string(req.TableNumber),
		CustomerName: req.CustomerName,
		Lines:        services.LinesFromCart(current),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	cc.Carts.Discard(id)
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

func (cc *CartController) Discard(c *gin.Context) {
	cc.Carts.Discard(c.Param("cart_id"))
	utils.RespondJSON(c, http.StatusOK, "Cart discarded", nil)
}
