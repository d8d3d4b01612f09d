package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mk-dev-co/supplyline-api/models"
	"github.com/mk-dev-co/supplyline-api/utils"
)

// Request limits for order creation and rejection reasons.
const (
	MaxOrderLines         = 100
	MaxLineQuantity       = 10000
	MinRejectionReasonLen = 10
	MaxRejectionReasonLen = 500
)

// OrderLine is one (item, quantity) pair of a creation request.
type OrderLine struct {
	ItemID   uint `json:"item_id" binding:"required"`
	Quantity int  `json:"quantity" binding:"required,gt=0"`
}

// OrderService orchestrates the order lifecycle: the creation transaction
// against the stock ledger and the state-machine-gated transitions. Audit
// logging, notification events and cache invalidation run post-commit and
// never influence the transaction outcome.
type OrderService struct {
	db          *gorm.DB
	stock       *StockService
	audit       *AuditService
	notifier    NotificationPublisher
	cache       *CacheService
	deliveryFee decimal.Decimal
}

// NewOrderService wires an order service. notifier may be a NoopPublisher and
// cache may be nil; both collaborators are optional.
func NewOrderService(db *gorm.DB, stock *StockService, audit *AuditService, notifier NotificationPublisher, cache *CacheService, deliveryFee decimal.Decimal) *OrderService {
	if notifier == nil {
		notifier = NoopPublisher{}
	}
	return &OrderService{
		db:          db,
		stock:       stock,
		audit:       audit,
		notifier:    notifier,
		cache:       cache,
		deliveryFee: deliveryFee,
	}
}

var orderServiceInstance *OrderService

// InitOrderService sets the global order service used by the controllers.
func InitOrderService(svc *OrderService) {
	orderServiceInstance = svc
}

// GetOrderService returns the global order service instance.
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// CreateOrder validates the shopkeeper's cart and, inside one transaction,
// locks the referenced items in ascending id order, decrements stock,
// snapshots prices and persists the order with its lines. Any failure rolls
// the whole unit back: stock is never decremented without a matching order
// and vice versa.
func (s *OrderService) CreateOrder(ctx context.Context, shopkeeper *models.User, warehouseID uint, lines []OrderLine, notes *string) (*models.Order, error) {
	if err := validateOrderLines(lines); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var warehouse models.Warehouse
	if err := db.First(&warehouse, warehouseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "warehouse", Message: "warehouse not found"}
		}
		return nil, &SystemError{Message: "failed to load warehouse", Err: err}
	}
	if !warehouse.AcceptsOrders() {
		return nil, &BusinessRuleError{
			Code:    CodeWarehouseUnavailable,
			Message: "warehouse is not accepting orders",
		}
	}

	items, err := s.loadWarehouseItems(db, warehouseID, lines)
	if err != nil {
		return nil, err
	}

	if err := s.checkNoInFlightOrder(db, shopkeeper.ID, warehouseID); err != nil {
		return nil, err
	}

	// Optimistic stock check: fast-fail before taking any lock. The
	// authoritative check happens again under the row locks.
	for _, line := range lines {
		if items[line.ItemID].Quantity < line.Quantity {
			return nil, &BusinessRuleError{
				Code: CodeInsufficientStock,
				Message: fmt.Sprintf("not enough stock for %q: requested %d, available %d",
					items[line.ItemID].Name, line.Quantity, items[line.ItemID].Quantity),
			}
		}
	}

	order := models.Order{
		ShopkeeperID: shopkeeper.ID,
		WarehouseID:  warehouseID,
		Status:       models.OrderStatusPending,
		Notes:        notes,
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		// Re-check the single in-flight order invariant; a concurrent
		// submission may have committed since the optimistic check.
		if err := s.checkNoInFlightOrder(tx, shopkeeper.ID, warehouseID); err != nil {
			return err
		}

		// Stable ascending lock order prevents circular waits between
		// concurrent multi-item orders.
		sorted := make([]OrderLine, len(lines))
		copy(sorted, lines)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(sorted))
		for _, line := range sorted {
			item, err := s.stock.Reserve(tx, line.ItemID, line.Quantity)
			if err != nil {
				return err
			}
			total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			orderItems = append(orderItems, models.OrderItem{
				ItemID:   item.ID,
				Quantity: line.Quantity,
				Price:    item.Price,
			})
		}

		order.TotalAmount = total
		order.OrderItems = orderItems
		if err := tx.Create(&order).Error; err != nil {
			return &SystemError{Message: "failed to create order", Err: err}
		}
		return nil
	})
	if txErr != nil {
		return nil, asServiceError(txErr)
	}

	created, err := s.reloadOrder(db, order.ID)
	if err != nil {
		return nil, err
	}

	s.audit.LogOrderCreated(created.ID, shopkeeper.ID, warehouseID, created.TotalAmount.StringFixed(2))
	s.notifier.Publish(TopicOrderCreated, map[string]interface{}{
		"order_id":      created.ID,
		"shopkeeper_id": shopkeeper.ID,
		"warehouse_id":  warehouseID,
		"total_amount":  created.TotalAmount.StringFixed(2),
	})

	return created, nil
}

// AcceptOrder moves a pending order to accepted (warehouse manager or admin).
func (s *OrderService) AcceptOrder(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRequest{target: models.OrderStatusAccepted})
}

// RejectOrder moves a pending order to rejected. A sanitized reason of
// 10-500 characters is mandatory.
func (s *OrderService) RejectOrder(ctx context.Context, actor *models.User, orderID uint, reason string) (*models.Order, error) {
	clean := utils.SanitizeText(reason)
	if n := utf8.RuneCountInString(clean); n < MinRejectionReasonLen || n > MaxRejectionReasonLen {
		return nil, &BusinessRuleError{
			Code: CodeRejectionReasonNeeded,
			Message: fmt.Sprintf("rejection reason must be between %d and %d characters",
				MinRejectionReasonLen, MaxRejectionReasonLen),
		}
	}
	return s.transition(ctx, actor, orderID, transitionRequest{
		target: models.OrderStatusRejected,
		reason: clean,
	})
}

// AssignRider moves an accepted order to assigned and creates its delivery
// record. Fails if a delivery already exists for the order.
func (s *OrderService) AssignRider(ctx context.Context, actor *models.User, orderID, riderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRequest{
		target:  models.OrderStatusAssigned,
		riderID: &riderID,
	})
}

// MarkDelivered moves an in-transit order to delivered (the assigned rider or
// an admin), optionally attaching a proof-of-delivery S3 key.
func (s *OrderService) MarkDelivered(ctx context.Context, actor *models.User, orderID uint, proofS3Key *string) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRequest{
		target:     models.OrderStatusDelivered,
		proofS3Key: proofS3Key,
	})
}

// CancelOrder cancels the order and releases its reserved stock back to the
// ledger.
func (s *OrderService) CancelOrder(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRequest{target: models.OrderStatusCancelled})
}

// TransitionOrder performs an arbitrary transition, still subject to the
// state machine and the actor's role gate. Used by the admin endpoint.
func (s *OrderService) TransitionOrder(ctx context.Context, actor *models.User, orderID uint, target, reason string) (*models.Order, error) {
	if target == models.OrderStatusRejected {
		return s.RejectOrder(ctx, actor, orderID, reason)
	}
	return s.transition(ctx, actor, orderID, transitionRequest{target: target, reason: reason})
}

type transitionRequest struct {
	target     string
	reason     string
	riderID    *uint
	proofS3Key *string
}

// transition runs one state-machine-approved mutation inside a transaction.
// The order row is locked for the duration so concurrent transitions against
// the same order serialize.
func (s *OrderService) transition(ctx context.Context, actor *models.User, orderID uint, req transitionRequest) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	var fromStatus string
	var denial *TransitionDenial
	txErr := db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOrderForActor(tx, actor, orderID, true)
		if err != nil {
			return err
		}
		fromStatus = order.Status

		if denial = ValidateTransition(order.Status, req.target, actor.Role); denial != nil {
			code := CodeInvalidTransition
			if denial.RoleForbidden {
				code = CodeTransitionForbidden
			}
			return &BusinessRuleError{Code: code, Message: denial.Reason}
		}

		switch req.target {
		case models.OrderStatusRejected:
			order.RejectionReason = &req.reason
		case models.OrderStatusAssigned:
			if err := s.createDelivery(tx, order, req.riderID); err != nil {
				return err
			}
		case models.OrderStatusInTransit:
			if err := s.updateDelivery(tx, order.ID, map[string]interface{}{"status": models.DeliveryStatusInTransit}); err != nil {
				return err
			}
		case models.OrderStatusDelivered:
			updates := map[string]interface{}{"status": models.DeliveryStatusDelivered}
			if req.proofS3Key != nil {
				updates["proof_s3_key"] = *req.proofS3Key
			}
			if err := s.updateDelivery(tx, order.ID, updates); err != nil {
				return err
			}
		case models.OrderStatusCancelled:
			if err := s.releaseOrderStock(tx, order); err != nil {
				return err
			}
			if err := s.updateDelivery(tx, order.ID, map[string]interface{}{"status": models.DeliveryStatusFailed}); err != nil {
				return err
			}
		}

		order.Status = req.target
		updates := map[string]interface{}{"status": order.Status}
		if order.RejectionReason != nil {
			updates["rejection_reason"] = *order.RejectionReason
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return &SystemError{Message: "failed to update order status", Err: err}
		}
		return nil
	})
	if txErr != nil {
		// Audit logging stays outside the atomic unit, same as the
		// post-commit path for granted transitions.
		if denial != nil {
			s.audit.LogTransitionDenied(orderID, actor.ID, actor.Role, fromStatus, req.target, denial.Reason)
		}
		return nil, asServiceError(txErr)
	}

	updated, err := s.reloadOrder(db, orderID)
	if err != nil {
		return nil, err
	}

	s.audit.LogTransition(orderID, actor.ID, actor.Role, fromStatus, req.target, req.reason)
	s.notifier.Publish(TopicOrderStatus, map[string]interface{}{
		"order_id":    orderID,
		"actor_id":    actor.ID,
		"actor_role":  actor.Role,
		"from_status": fromStatus,
		"to_status":   req.target,
	})
	s.cache.InvalidateOrder(ctx, orderID)

	return updated, nil
}

// GetOrderForActor returns one order scoped to the caller. Shopkeeper and
// admin lookups are served read-through from the cache; manager and rider
// scoping needs a join, so those always hit the database.
func (s *OrderService) GetOrderForActor(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error) {
	switch actor.Role {
	case models.RoleShopkeeper, models.RoleAdmin:
		if cached := s.cache.GetOrder(ctx, orderID); cached != nil {
			if actor.Role == models.RoleAdmin || cached.ShopkeeperID == actor.ID {
				return cached, nil
			}
			return nil, &NotFoundError{Resource: "order", Message: "order not found"}
		}
	}

	order, err := s.loadOrderForActor(s.db.WithContext(ctx), actor, orderID, false)
	if err != nil {
		return nil, err
	}
	s.cache.SetOrder(ctx, order)
	return order, nil
}

// ListOrdersForShopkeeper returns the shopkeeper's orders, newest first.
func (s *OrderService) ListOrdersForShopkeeper(ctx context.Context, shopkeeperID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("shopkeeper_id = ?", shopkeeperID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, &SystemError{Message: "failed to list orders", Err: err}
	}
	return orders, nil
}

// ListOrdersForWarehouseAdmin returns orders against every warehouse the
// manager administers, newest first.
func (s *OrderService) ListOrdersForWarehouseAdmin(ctx context.Context, adminID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems").
		Where("warehouse_id IN (?)", s.db.Model(&models.Warehouse{}).Select("id").Where("admin_id = ?", adminID)).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, &SystemError{Message: "failed to list warehouse orders", Err: err}
	}
	return orders, nil
}

// ListDeliveriesForRider returns the rider's deliveries, newest first.
func (s *OrderService) ListDeliveriesForRider(ctx context.Context, riderID uint) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("rider_id = ?", riderID).
		Order("created_at DESC").
		Find(&deliveries).Error
	if err != nil {
		return nil, &SystemError{Message: "failed to list deliveries", Err: err}
	}
	return deliveries, nil
}

// RestockItem adds qty units to an item owned by one of the manager's
// warehouses, going through the ledger's locked release path.
func (s *OrderService) RestockItem(ctx context.Context, actor *models.User, itemID uint, qty int) (*models.Item, error) {
	if qty <= 0 || qty > MaxLineQuantity {
		return nil, &ValidationError{Code: "invalid_quantity", Message: fmt.Sprintf("restock quantity must be between 1 and %d", MaxLineQuantity)}
	}

	db := s.db.WithContext(ctx)

	var item models.Item
	query := db.Where("id = ?", itemID)
	if actor.Role != models.RoleAdmin {
		query = query.Where("warehouse_id IN (?)", s.db.Model(&models.Warehouse{}).Select("id").Where("admin_id = ?", actor.ID))
	}
	if err := query.First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "item", Message: "item not found"}
		}
		return nil, &SystemError{Message: "failed to load item", Err: err}
	}

	txErr := db.Transaction(func(tx *gorm.DB) error {
		return s.stock.Release(tx, item.ID, qty)
	})
	if txErr != nil {
		return nil, asServiceError(txErr)
	}

	if err := db.First(&item, item.ID).Error; err != nil {
		return nil, &SystemError{Message: "failed to reload item", Err: err}
	}
	return &item, nil
}

// loadOrderForActor loads an order visible to the actor, or a NotFoundError
// that does not reveal whether the order exists at all. With lock set, the
// row is locked for update on postgres.
func (s *OrderService) loadOrderForActor(tx *gorm.DB, actor *models.User, orderID uint, lock bool) (*models.Order, error) {
	query := tx.Preload("OrderItems")
	if lock && tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	switch actor.Role {
	case models.RoleShopkeeper:
		query = query.Where("shopkeeper_id = ?", actor.ID)
	case models.RoleWarehouseManager:
		query = query.Where("warehouse_id IN (?)", s.db.Model(&models.Warehouse{}).Select("id").Where("admin_id = ?", actor.ID))
	case models.RoleRider:
		query = query.Where("id IN (?)", s.db.Model(&models.Delivery{}).Select("order_id").Where("rider_id = ?", actor.ID))
	case models.RoleAdmin:
		// Admins see everything.
	default:
		return nil, &NotFoundError{Resource: "order", Message: "order not found"}
	}

	var order models.Order
	if err := query.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", Message: "order not found"}
		}
		return nil, &SystemError{Message: "failed to load order", Err: err}
	}
	return &order, nil
}

func (s *OrderService) createDelivery(tx *gorm.DB, order *models.Order, riderID *uint) error {
	if riderID == nil {
		return &ValidationError{Code: "missing_rider", Message: "rider_id is required to assign an order"}
	}

	var rider models.User
	if err := tx.Where("id = ? AND role = ?", *riderID, models.RoleRider).First(&rider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "rider", Message: "rider not found"}
		}
		return &SystemError{Message: "failed to load rider", Err: err}
	}

	var count int64
	if err := tx.Model(&models.Delivery{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		return &SystemError{Message: "failed to check existing delivery", Err: err}
	}
	if count > 0 {
		return &BusinessRuleError{Code: CodeDeliveryExists, Message: "a delivery already exists for this order"}
	}

	delivery := models.Delivery{
		OrderID:     order.ID,
		RiderID:     riderID,
		Status:      models.DeliveryStatusAssigned,
		DeliveryFee: s.deliveryFee,
	}
	if err := tx.Create(&delivery).Error; err != nil {
		return &SystemError{Message: "failed to create delivery", Err: err}
	}
	return nil
}

// updateDelivery applies updates to the order's delivery row, if one exists.
// Admin-forced transitions may run before any delivery was created.
func (s *OrderService) updateDelivery(tx *gorm.DB, orderID uint, updates map[string]interface{}) error {
	result := tx.Model(&models.Delivery{}).Where("order_id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return &SystemError{Message: "failed to update delivery", Err: result.Error}
	}
	return nil
}

// releaseOrderStock returns every reserved line back to the ledger, locking
// in ascending item id order like the creation path.
func (s *OrderService) releaseOrderStock(tx *gorm.DB, order *models.Order) error {
	items := make([]models.OrderItem, len(order.OrderItems))
	copy(items, order.OrderItems)
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })

	for _, oi := range items {
		if err := s.stock.Release(tx, oi.ItemID, oi.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) loadWarehouseItems(db *gorm.DB, warehouseID uint, lines []OrderLine) (map[uint]*models.Item, error) {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}

	var items []models.Item
	if err := db.Where("warehouse_id = ? AND id IN ?", warehouseID, ids).Find(&items).Error; err != nil {
		return nil, &SystemError{Message: "failed to load items", Err: err}
	}

	byID := make(map[uint]*models.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	for _, line := range lines {
		if _, ok := byID[line.ItemID]; !ok {
			return nil, &NotFoundError{
				Resource: "item",
				Message:  fmt.Sprintf("item %d not found in this warehouse", line.ItemID),
			}
		}
	}
	return byID, nil
}

// checkNoInFlightOrder enforces the one in-flight order per
// shopkeeper-warehouse pair invariant. Scoped per warehouse: orders against
// other warehouses do not block.
func (s *OrderService) checkNoInFlightOrder(tx *gorm.DB, shopkeeperID, warehouseID uint) error {
	var count int64
	err := tx.Model(&models.Order{}).
		Where("shopkeeper_id = ? AND warehouse_id = ? AND status IN ?",
			shopkeeperID, warehouseID,
			[]string{models.OrderStatusPending, models.OrderStatusAccepted}).
		Count(&count).Error
	if err != nil {
		return &SystemError{Message: "failed to check in-flight orders", Err: err}
	}
	if count > 0 {
		return &BusinessRuleError{
			Code:    CodeOrderInFlight,
			Message: "you already have a pending or accepted order with this warehouse",
		}
	}
	return nil
}

func (s *OrderService) reloadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("OrderItems").Preload("Shopkeeper").First(&order, orderID).Error
	if err != nil {
		return nil, &SystemError{Message: "failed to load order details", Err: err}
	}
	return &order, nil
}

func validateOrderLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return &ValidationError{Code: "empty_order", Message: "an order needs at least one item"}
	}
	if len(lines) > MaxOrderLines {
		return &ValidationError{Code: "too_many_items", Message: fmt.Sprintf("an order may contain at most %d distinct items", MaxOrderLines)}
	}

	seen := make(map[uint]bool, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			return &ValidationError{
				Code:    "invalid_quantity",
				Message: fmt.Sprintf("quantity for item %d must be between 1 and %d", line.ItemID, MaxLineQuantity),
			}
		}
		if seen[line.ItemID] {
			return &ValidationError{
				Code:    "duplicate_item",
				Message: fmt.Sprintf("item %d appears more than once", line.ItemID),
			}
		}
		seen[line.ItemID] = true
	}
	return nil
}

// asServiceError passes through typed service errors and wraps anything else
// (driver errors, rollback failures) as a SystemError.
func asServiceError(err error) error {
	var (
		v  *ValidationError
		nf *NotFoundError
		br *BusinessRuleError
		cf *ConflictError
		se *SystemError
	)
	switch {
	case errors.As(err, &v), errors.As(err, &nf), errors.As(err, &br), errors.As(err, &cf), errors.As(err, &se):
		return err
	}
	return &SystemError{Message: "transaction failed", Err: err}
}
