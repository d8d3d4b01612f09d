package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mk-dev-co/supplyline-api/middleware"
	"github.com/mk-dev-co/supplyline-api/services"
	"github.com/mk-dev-co/supplyline-api/utils"
)

// ListMyDeliveries handles GET /api/v1/rider/deliveries - the rider's own
// deliveries, newest first
func ListMyDeliveries(c *gin.Context) {
	rider, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	deliveries, err := services.GetOrderService().ListDeliveriesForRider(c.Request.Context(), rider.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    deliveries,
	})
}

// MarkDelivered handles POST /api/v1/rider/orders/:id/deliver - the assigned
// rider marks an in-transit order delivered, optionally attaching a
// proof-of-delivery photo as multipart field "proof"
func MarkDelivered(c *gin.Context) {
	rider, ok := middleware.CurrentUser(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var proofKey *string
	fileHeader, err := c.FormFile("proof")
	if err == nil && fileHeader != nil {
		if err := utils.ValidateProofImage(fileHeader); err != nil {
			uploadErr, _ := err.(*utils.FileUploadError)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    uploadErr.Code,
					"message": uploadErr.Message,
				},
			})
			return
		}

		s3Service := services.GetS3Service()
		if s3Service == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "STORAGE_UNAVAILABLE",
					"message": "Proof storage is not configured",
				},
			})
			return
		}

		key, err := s3Service.UploadProof(orderID, fileHeader)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UPLOAD_FAILED",
					"message": "Failed to store proof of delivery",
				},
			})
			return
		}
		proofKey = &key
	}

	order, err := services.GetOrderService().MarkDelivered(c.Request.Context(), rider, orderID, proofKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
