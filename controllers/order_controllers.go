package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/models"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

type submitOrderRequest struct {
	TableNumber  tableNumberField     `json:"table_number"`
	CustomerName string               `json:"customer_name"`
	Items        []services.LineInput `json:"items"`
}

// SubmitPublic takes a customer order for the restaurant in the path.
func (oc *OrderController) SubmitPublic(c *gin.Context) {
	restaurantID, ok := paramID(c, "restaurant_id")
	if !ok {
		return
	}
	oc.submit(c, restaurantID)
}

// SubmitStaff lets a waiter enter an order on a customer's behalf.
func (oc *OrderController) SubmitStaff(c *gin.Context) {
	oc.submit(c, middlewares.Session(c).RestaurantID)
}

func (oc *OrderController) submit(c *gin.Context, restaurantID uint) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.Submit(c.Request.Context(), services.SubmitInput{
		RestaurantID: restaurantID,
		TableNumber:  string(req.TableNumber),
		CustomerName: req.CustomerName,
		Lines:        req.Items,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order placed", order)
}

func (oc *OrderController) Get(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), middlewares.Session(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order", order)
}

// UpdateStatus moves an order to the status in the body.
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	oc.advance(c, models.OrderStatus(req.Status))
}

func (oc *OrderController) StartCooking(c *gin.Context) { oc.advance(c, models.OrderCooking) }
func (oc *OrderController) MarkReady(c *gin.Context)    { oc.advance(c, models.OrderReady) }
func (oc *OrderController) Deliver(c *gin.Context)      { oc.advance(c, models.OrderDelivered) }

func (oc *OrderController) advance(c *gin.Context, to models.OrderStatus) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.Advance(c.Request.Context(), middlewares.Session(c), id, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// AdvanceNext moves an order one step along its lifecycle.
func (oc *OrderController) AdvanceNext(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.AdvanceNext(c.Request.Context(), middlewares.Session(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}
