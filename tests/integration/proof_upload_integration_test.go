package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
)

// proofRequest builds a deliver request carrying a proof-of-delivery photo.
func (suite *OrderFlowIntegrationTestSuite) proofRequest(url, filename string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("proof", filename)
	suite.NoError(err)
	_, err = part.Write(content)
	suite.NoError(err)
	suite.NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// inTransitOrder seeds an order and walks it to in_transit through the API.
func (suite *OrderFlowIntegrationTestSuite) inTransitOrder(itemID uint) int {
	shopRouter := suite.routerAs(suite.shopkeeper.Auth0ID)
	mgrRouter := suite.routerAs(suite.manager.Auth0ID)
	adminRouter := suite.routerAs(suite.admin.Auth0ID)

	w, response := suite.doJSON(shopRouter, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"warehouse_id": suite.warehouse.ID,
		"items": []map[string]interface{}{
			{"item_id": itemID, "quantity": 1},
		},
	})
	suite.Require().Equal(http.StatusCreated, w.Code)
	orderID := int(response["data"].(map[string]interface{})["id"].(float64))

	w, _ = suite.doJSON(mgrRouter, http.MethodPost, fmt.Sprintf("/api/v1/warehouse/orders/%d/accept", orderID), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w, _ = suite.doJSON(mgrRouter, http.MethodPost, fmt.Sprintf("/api/v1/warehouse/orders/%d/assign", orderID), map[string]interface{}{
		"rider_id": suite.rider.ID,
	})
	suite.Require().Equal(http.StatusOK, w.Code)
	w, _ = suite.doJSON(adminRouter, http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID), map[string]interface{}{
		"status": models.OrderStatusInTransit,
	})
	suite.Require().Equal(http.StatusOK, w.Code)

	return orderID
}

// TestProofUpload_StoredWithDelivery verifies a proof photo lands in storage
// and its key is persisted on the delivery.
func (suite *OrderFlowIntegrationTestSuite) TestProofUpload_StoredWithDelivery() {
	item := suite.createItem("rice-25kg", "25.00", 10)
	orderID := suite.inTransitOrder(item.ID)

	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()

	riderRouter := suite.routerAs(suite.rider.Auth0ID)
	req := suite.proofRequest(fmt.Sprintf("/api/v1/rider/orders/%d/deliver", orderID), "doorstep.jpg", []byte("fake jpeg bytes"))

	w := httptest.NewRecorder()
	riderRouter.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	suite.Equal("delivered", response["data"].(map[string]interface{})["status"])

	expectedKey := fmt.Sprintf("proofs/order_%d/mock_doorstep.jpg", orderID)
	suite.True(mockS3.FileExists(expectedKey))

	var delivery models.Delivery
	suite.NoError(suite.db.Where("order_id = ?", orderID).First(&delivery).Error)
	suite.Require().NotNil(delivery.ProofS3Key)
	suite.Equal(expectedKey, *delivery.ProofS3Key)
}

// TestProofUpload_InvalidFormatLeavesOrderInTransit verifies a rejected file
// never advances the order.
func (suite *OrderFlowIntegrationTestSuite) TestProofUpload_InvalidFormatLeavesOrderInTransit() {
	item := suite.createItem("rice-25kg", "25.00", 10)
	orderID := suite.inTransitOrder(item.ID)

	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()

	riderRouter := suite.routerAs(suite.rider.Auth0ID)
	req := suite.proofRequest(fmt.Sprintf("/api/v1/rider/orders/%d/deliver", orderID), "doorstep.gif", []byte("gif bytes"))

	w := httptest.NewRecorder()
	riderRouter.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	suite.Equal("INVALID_FILE_FORMAT", response["error"].(map[string]interface{})["code"])

	var order models.Order
	suite.db.First(&order, orderID)
	suite.Equal(models.OrderStatusInTransit, order.Status)
}

// TestProofUpload_StorageUnavailable verifies the request fails cleanly when
// no storage backend is configured.
func (suite *OrderFlowIntegrationTestSuite) TestProofUpload_StorageUnavailable() {
	item := suite.createItem("rice-25kg", "25.00", 10)
	orderID := suite.inTransitOrder(item.ID)

	services.SetS3Service(nil)

	riderRouter := suite.routerAs(suite.rider.Auth0ID)
	req := suite.proofRequest(fmt.Sprintf("/api/v1/rider/orders/%d/deliver", orderID), "doorstep.png", []byte("png bytes"))

	w := httptest.NewRecorder()
	riderRouter.ServeHTTP(w, req)

	suite.Equal(http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	suite.Equal("STORAGE_UNAVAILABLE", response["error"].(map[string]interface{})["code"])
}
