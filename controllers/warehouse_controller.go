package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mk-dev-co/supplyline-api/config"
	"github.com/mk-dev-co/supplyline-api/middleware"
	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
)

// RejectOrderRequest carries the mandatory rejection reason
type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AssignRiderRequest names the rider to hand the order to
type AssignRiderRequest struct {
	RiderID uint `json:"rider_id" binding:"required"`
}

// RestockItemRequest carries the quantity to add back to stock
type RestockItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// OnboardWarehouseRequest creates a warehouse together with its initial inventory
type OnboardWarehouseRequest struct {
	Warehouse struct {
		Name      string  `json:"name" binding:"required"`
		Address   string  `json:"address" binding:"required"`
		Latitude  *string `json:"latitude"`
		Longitude *string `json:"longitude"`
	} `json:"warehouse" binding:"required"`
	Items []struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		SKU         string `json:"sku" binding:"required"`
		Price       string `json:"price" binding:"required"`
		Quantity    int    `json:"quantity" binding:"required,gte=0"`
	} `json:"items" binding:"required,min=1,dive"`
}

// ListWarehouseOrders handles GET /api/v1/warehouse/orders - orders against
// every warehouse the manager administers
func ListWarehouseOrders(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orders, err := services.GetOrderService().ListOrdersForWarehouseAdmin(c.Request.Context(), manager.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// AcceptOrder handles POST /api/v1/warehouse/orders/:id/accept
func AcceptOrder(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := services.GetOrderService().AcceptOrder(c.Request.Context(), manager, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// RejectOrder handles POST /api/v1/warehouse/orders/:id/reject - a non-empty
// reason is mandatory
func RejectOrder(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RejectOrderRequest
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

	order, err := services.GetOrderService().RejectOrder(c.Request.Context(), manager, orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// AssignRider handles POST /api/v1/warehouse/orders/:id/assign - moves the
// order to assigned and creates its delivery record
func AssignRider(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AssignRiderRequest
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

	order, err := services.GetOrderService().AssignRider(c.Request.Context(), manager, orderID, req.RiderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// RestockItem handles POST /api/v1/warehouse/items/:id/restock
func RestockItem(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	itemID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RestockItemRequest
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

	item, err := services.GetOrderService().RestockItem(c.Request.Context(), manager, itemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// OnboardWarehouse handles POST /api/v1/warehouse/onboarding - creates a
// warehouse with its initial inventory in one transaction. The warehouse
// starts unapproved; orders are only possible once an admin approves it.
func OnboardWarehouse(c *gin.Context) {
	manager, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req OnboardWarehouseRequest
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

	warehouse := models.Warehouse{
		Name:     req.Warehouse.Name,
		Address:  req.Warehouse.Address,
		AdminID:  manager.ID,
		IsActive: true,
	}
	if req.Warehouse.Latitude != nil && req.Warehouse.Longitude != nil {
		lat, latErr := decimal.NewFromString(*req.Warehouse.Latitude)
		lng, lngErr := decimal.NewFromString(*req.Warehouse.Longitude)
		if latErr != nil || lngErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid coordinates",
				},
			})
			return
		}
		warehouse.Latitude = &lat
		warehouse.Longitude = &lng
	}

	items := make([]models.Item, 0, len(req.Items))
	for _, in := range req.Items {
		price, err := decimal.NewFromString(in.Price)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid price for item " + in.SKU,
				},
			})
			return
		}
		items = append(items, models.Item{
			Name:        in.Name,
			Description: in.Description,
			SKU:         in.SKU,
			Price:       price,
			Quantity:    in.Quantity,
		})
	}

	db := config.GetDB()
	txErr := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&warehouse).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].WarehouseID = warehouse.ID
		}
		return tx.Create(&items).Error
	})
	if txErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to onboard warehouse",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"warehouse": warehouse,
			"items":     items,
		},
	})
}

func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Could not extract user information",
		},
	})
}
