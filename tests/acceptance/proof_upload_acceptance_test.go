package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/stretchr/testify/assert"

	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
)

// deliverWithProof posts a multipart deliver request to the live test server.
func (suite *OrderAcceptanceTestSuite) deliverWithProof(orderID int, filename string, content []byte) (*http.Response, map[string]interface{}) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("proof", filename)
	suite.NoError(err)
	_, err = part.Write(content)
	suite.NoError(err)
	suite.NoError(writer.Close())

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/v1/rider/orders/%d/deliver", suite.server.URL, orderID), body)
	suite.NoError(err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	suite.NoError(err)

	var responseData map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&responseData)
	suite.NoError(err)
	resp.Body.Close()

	return resp, responseData
}

// orderReadyForDelivery drives a fresh order to in_transit through the API.
func (suite *OrderAcceptanceTestSuite) orderReadyForDelivery() int {
	resp, response := suite.makeRequest(http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"warehouse_id": suite.warehouse.ID,
		"items": []map[string]interface{}{
			{"item_id": suite.rice.ID, "quantity": 1},
		},
	})
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)
	orderID := int(response["data"].(map[string]interface{})["id"].(float64))

	resp, _ = suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/warehouse/orders/%d/accept", orderID), nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = suite.makeRequest(http.MethodPost, fmt.Sprintf("/api/v1/warehouse/orders/%d/assign", orderID), map[string]interface{}{
		"rider_id": suite.rider.ID,
	})
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = suite.makeRequest(http.MethodPatch, fmt.Sprintf("/api/v1/admin/orders/%d/status", orderID), map[string]interface{}{
		"status": models.OrderStatusInTransit,
	})
	suite.Require().Equal(http.StatusOK, resp.StatusCode)

	return orderID
}

// TestProofUploadJourney_Acceptance delivers with a photo and verifies the
// stored key.
func (suite *OrderAcceptanceTestSuite) TestProofUploadJourney_Acceptance() {
	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()
	defer services.SetS3Service(nil)

	orderID := suite.orderReadyForDelivery()

	resp, response := suite.deliverWithProof(orderID, "doorstep.png", []byte("fake png bytes"))
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "delivered", response["data"].(map[string]interface{})["status"])

	expectedKey := fmt.Sprintf("proofs/order_%d/mock_doorstep.png", orderID)
	assert.True(suite.T(), mockS3.FileExists(expectedKey))

	var delivery models.Delivery
	suite.NoError(suite.db.Where("order_id = ?", orderID).First(&delivery).Error)
	if assert.NotNil(suite.T(), delivery.ProofS3Key) {
		assert.Equal(suite.T(), expectedKey, *delivery.ProofS3Key)
	}
}

// TestProofUploadRejectedFormat_Acceptance verifies an unsupported file type
// leaves the order untouched.
func (suite *OrderAcceptanceTestSuite) TestProofUploadRejectedFormat_Acceptance() {
	mockS3 := services.NewMockS3Service()
	mockS3.SetAsMockForTesting()
	defer services.SetS3Service(nil)

	orderID := suite.orderReadyForDelivery()

	resp, response := suite.deliverWithProof(orderID, "doorstep.bmp", []byte("bmp bytes"))
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "INVALID_FILE_FORMAT", response["error"].(map[string]interface{})["code"])

	var order models.Order
	suite.db.First(&order, orderID)
	assert.Equal(suite.T(), models.OrderStatusInTransit, order.Status)
}
