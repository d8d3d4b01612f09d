package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/mk-dev-co/supplyline-api/config"
	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/services"
	"go.uber.org/zap"
)

// marketplace seeds a database with one user per role and an approved
// warehouse, and wires the global order service against it.
type marketplace struct {
	db         *gorm.DB
	shopkeeper *models.User
	manager    *models.User
	rider      *models.User
	admin      *models.User
	warehouse  *models.Warehouse
}

func setupMarketplace(t *testing.T) *marketplace {
	t.Helper()

	db := setupTestDB(t)
	config.SetDB(db)

	m := &marketplace{db: db}
	m.shopkeeper = m.newUser(t, "shopkeeper", models.RoleShopkeeper)
	m.manager = m.newUser(t, "manager", models.RoleWarehouseManager)
	m.rider = m.newUser(t, "rider", models.RoleRider)
	m.admin = m.newUser(t, "admin", models.RoleAdmin)

	warehouse := models.Warehouse{
		Name:       "Central Depot",
		Address:    "12 Market Street",
		AdminID:    m.manager.ID,
		IsActive:   true,
		IsApproved: true,
	}
	if err := db.Create(&warehouse).Error; err != nil {
		t.Fatalf("Failed to create warehouse: %v", err)
	}
	m.warehouse = &warehouse

	services.InitOrderService(services.NewOrderService(
		db,
		services.NewStockService(),
		services.NewAuditServiceWithLogger(zap.NewNop()),
		nil,
		nil,
		decimal.RequireFromString("20.00"),
	))

	return m
}

func (m *marketplace) newUser(t *testing.T, name, role string) *models.User {
	t.Helper()

	user := models.User{
		Auth0ID: "auth0|" + name,
		Name:    name,
		Email:   name + "@example.com",
		Role:    role,
	}
	if err := m.db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return &user
}

func (m *marketplace) newItem(t *testing.T, name, price string, qty int) *models.Item {
	t.Helper()

	item := models.Item{
		WarehouseID: m.warehouse.ID,
		Name:        name,
		SKU:         "SKU-" + name,
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
	}
	if err := m.db.Create(&item).Error; err != nil {
		t.Fatalf("Failed to create item %s: %v", name, err)
	}
	return &item
}

func TestCreateOrderEndpoint(t *testing.T) {
	m := setupMarketplace(t)

	rice := m.newItem(t, "rice-25kg", "25.00", 10)
	flour := m.newItem(t, "flour-50kg", "10.00", 4)
	scarce := m.newItem(t, "sugar-10kg", "8.00", 1)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name: "successfully creates order",
			requestBody: map[string]interface{}{
				"warehouse_id": m.warehouse.ID,
				"items": []map[string]interface{}{
					{"item_id": rice.ID, "quantity": 2},
					{"item_id": flour.ID, "quantity": 2},
				},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "pending", data["status"])
				assert.Equal(t, "70.00", data["total_amount"])

				orderItems := data["order_items"].([]interface{})
				assert.Len(t, orderItems, 2)
			},
		},
		{
			name: "second in-flight order is rejected",
			requestBody: map[string]interface{}{
				"warehouse_id": m.warehouse.ID,
				"items": []map[string]interface{}{
					{"item_id": rice.ID, "quantity": 1},
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  services.CodeOrderInFlight,
		},
		{
			name: "missing warehouse_id",
			requestBody: map[string]interface{}{
				"items": []map[string]interface{}{
					{"item_id": rice.ID, "quantity": 1},
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "empty items array",
			requestBody: map[string]interface{}{
				"warehouse_id": m.warehouse.ID,
				"items":        []map[string]interface{}{},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "zero quantity",
			requestBody: map[string]interface{}{
				"warehouse_id": m.warehouse.ID,
				"items": []map[string]interface{}{
					{"item_id": rice.ID, "quantity": 0},
				},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/orders", asUser(m.shopkeeper), CreateOrder)

			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedError, errorData["code"])
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}

	t.Run("insufficient stock", func(t *testing.T) {
		other := m.newUser(t, "shopkeeper-b", models.RoleShopkeeper)

		router := setupTestRouter()
		router.POST("/orders", asUser(other), CreateOrder)

		body, _ := json.Marshal(map[string]interface{}{
			"warehouse_id": m.warehouse.ID,
			"items": []map[string]interface{}{
				{"item_id": scarce.ID, "quantity": 5},
			},
		})
		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, services.CodeInsufficientStock, errorData["code"])

		// Nothing was reserved
		var stored models.Item
		m.db.First(&stored, scarce.ID)
		assert.Equal(t, 1, stored.Quantity)
	})

	t.Run("without authentication", func(t *testing.T) {
		router := setupTestRouter()
		router.POST("/orders", CreateOrder)

		body, _ := json.Marshal(map[string]interface{}{
			"warehouse_id": m.warehouse.ID,
			"items": []map[string]interface{}{
				{"item_id": rice.ID, "quantity": 1},
			},
		})
		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestListOrdersEndpoint(t *testing.T) {
	m := setupMarketplace(t)
	item := m.newItem(t, "rice-25kg", "25.00", 100)

	// One order each for two shopkeepers
	other := m.newUser(t, "shopkeeper-b", models.RoleShopkeeper)
	for _, keeper := range []*models.User{m.shopkeeper, other} {
		router := setupTestRouter()
		router.POST("/orders", asUser(keeper), CreateOrder)

		body, _ := json.Marshal(map[string]interface{}{
			"warehouse_id": m.warehouse.ID,
			"items": []map[string]interface{}{
				{"item_id": item.ID, "quantity": 1},
			},
		})
		req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	router := setupTestRouter()
	router.GET("/orders", asUser(m.shopkeeper), ListOrders)

	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.True(t, response["success"].(bool))

	orders := response["data"].([]interface{})
	assert.Len(t, orders, 1, "Shopkeeper should only see their own order")

	order := orders[0].(map[string]interface{})
	assert.Equal(t, float64(m.shopkeeper.ID), order["shopkeeper_id"])
}

func TestGetOrderEndpoint(t *testing.T) {
	m := setupMarketplace(t)
	item := m.newItem(t, "rice-25kg", "25.00", 10)

	order := models.Order{
		ShopkeeperID: m.shopkeeper.ID,
		WarehouseID:  m.warehouse.ID,
		Status:       models.OrderStatusPending,
		TotalAmount:  decimal.RequireFromString("25.00"),
		OrderItems: []models.OrderItem{
			{ItemID: item.ID, Quantity: 1, Price: item.Price},
		},
	}
	m.db.Create(&order)

	t.Run("owner can fetch the order", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/orders/:id", asUser(m.shopkeeper), GetOrder)

		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, float64(order.ID), data["id"])
	})

	t.Run("another shopkeeper gets 404", func(t *testing.T) {
		stranger := m.newUser(t, "stranger", models.RoleShopkeeper)

		router := setupTestRouter()
		router.GET("/orders/:id", asUser(stranger), GetOrder)

		req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("garbage id", func(t *testing.T) {
		router := setupTestRouter()
		router.GET("/orders/:id", asUser(m.shopkeeper), GetOrder)

		req, _ := http.NewRequest(http.MethodGet, "/orders/abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		errorData := response["error"].(map[string]interface{})
		assert.Equal(t, "invalid_id", errorData["code"])
	})
}

func TestCancelOrderEndpoint(t *testing.T) {
	m := setupMarketplace(t)
	item := m.newItem(t, "rice-25kg", "25.00", 10)

	// Create through the endpoint so stock is actually reserved
	router := setupTestRouter()
	router.POST("/orders", asUser(m.shopkeeper), CreateOrder)
	router.POST("/orders/:id/cancel", asUser(m.shopkeeper), CancelOrder)

	body, _ := json.Marshal(map[string]interface{}{
		"warehouse_id": m.warehouse.ID,
		"items": []map[string]interface{}{
			{"item_id": item.ID, "quantity": 3},
		},
	})
	req, _ := http.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var createResponse map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &createResponse)
	orderID := createResponse["data"].(map[string]interface{})["id"].(float64)

	var stored models.Item
	m.db.First(&stored, item.ID)
	assert.Equal(t, 7, stored.Quantity)

	// Cancel and verify stock returns
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", int(orderID)), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var cancelResponse map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &cancelResponse)
	data := cancelResponse["data"].(map[string]interface{})
	assert.Equal(t, "cancelled", data["status"])

	m.db.First(&stored, item.ID)
	assert.Equal(t, 10, stored.Quantity)

	// A second cancel hits the terminal-state wall
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", int(orderID)), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, services.CodeInvalidTransition, errorData["code"])
}
