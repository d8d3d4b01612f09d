package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mk-dev-co/supplyline-api/config"
	"github.com/mk-dev-co/supplyline-api/middleware"
	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
)

// UpdateOrderStatusRequest asks for an arbitrary (but still state-machine
// checked) transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status - admins
// may drive any transition the state machine allows, including the
// assigned to in_transit hand-off
func UpdateOrderStatus(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
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

	order, err := services.GetOrderService().TransitionOrder(c.Request.Context(), admin, orderID, req.Status, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ApproveWarehouse handles POST /api/v1/admin/warehouses/:id/approve - flips
// the warehouse to approved so it can start taking orders
func ApproveWarehouse(c *gin.Context) {
	_, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	warehouseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var warehouse models.Warehouse
	if err := db.First(&warehouse, warehouseID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "not_found",
				"message": "Warehouse not found",
			},
		})
		return
	}

	if err := db.Model(&warehouse).Update("is_approved", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to approve warehouse",
			},
		})
		return
	}
	warehouse.IsApproved = true

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    warehouse,
	})
}
