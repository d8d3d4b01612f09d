package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mk-dev-co/supplyline-api/middleware"
	"github.com/mk-dev-co/supplyline-api/services"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	WarehouseID uint                 `json:"warehouse_id" binding:"required"`
	Items       []services.OrderLine `json:"items" binding:"required,min=1,dive"`
	Notes       *string              `json:"notes"`
}

// CreateOrder handles POST /api/v1/orders - creates a new order (shopkeepers only)
func CreateOrder(c *gin.Context) {
	shopkeeper, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetOrderService().CreateOrder(c.Request.Context(), shopkeeper, req.WarehouseID, req.Items, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists the shopkeeper's own orders
func ListOrders(c *gin.Context) {
	shopkeeper, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orders, err := services.GetOrderService().ListOrdersForShopkeeper(c.Request.Context(), shopkeeper.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrder handles GET /api/v1/orders/:id - gets one order scoped to the caller
func GetOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrderForActor(c.Request.Context(), user, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel - shopkeeper cancels an
// in-flight order; reserved stock goes back to the warehouse
func CancelOrder(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().CancelOrder(c.Request.Context(), user, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
