package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{OrderStatusPending, false},
		{OrderStatusAccepted, false},
		{OrderStatusAssigned, false},
		{OrderStatusInTransit, false},
		{OrderStatusDelivered, true},
		{OrderStatusRejected, true},
		{OrderStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			order := Order{Status: tt.status}
			assert.Equal(t, tt.want, order.IsTerminal())
		})
	}
}

func TestWarehouseAcceptsOrders(t *testing.T) {
	tests := []struct {
		name       string
		isActive   bool
		isApproved bool
		want       bool
	}{
		{"active and approved", true, true, true},
		{"active but unapproved", true, false, false},
		{"approved but inactive", false, true, false},
		{"neither", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warehouse := Warehouse{IsActive: tt.isActive, IsApproved: tt.isApproved}
			assert.Equal(t, tt.want, warehouse.AcceptsOrders())
		})
	}
}
