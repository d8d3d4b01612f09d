package services

import (
	"go.uber.org/zap"
)

// AuditService records attempted and successful order state transitions for
// traceability. Callers invoke it after their transaction commits; the audit
// trail is observational and never part of the atomic unit of work.
type AuditService struct {
	logger *zap.Logger
}

// NewAuditService creates an audit service backed by a production zap logger.
func NewAuditService() *AuditService {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return &AuditService{logger: logger}
}

// NewAuditServiceWithLogger creates an audit service with the given logger,
// used by tests to swap in a no-op or observed logger.
func NewAuditServiceWithLogger(logger *zap.Logger) *AuditService {
	return &AuditService{logger: logger}
}

// LogTransition records a committed order state transition.
func (a *AuditService) LogTransition(orderID, actorID uint, actorRole, fromStatus, toStatus, reason string) {
	a.logger.Info("order state transition",
		zap.Uint("order_id", orderID),
		zap.Uint("actor_id", actorID),
		zap.String("actor_role", actorRole),
		zap.String("from_status", fromStatus),
		zap.String("to_status", toStatus),
		zap.String("reason", reason),
	)
}

// LogTransitionDenied records a transition attempt the state machine refused.
func (a *AuditService) LogTransitionDenied(orderID, actorID uint, actorRole, fromStatus, toStatus, denialReason string) {
	a.logger.Warn("order state transition denied",
		zap.Uint("order_id", orderID),
		zap.Uint("actor_id", actorID),
		zap.String("actor_role", actorRole),
		zap.String("from_status", fromStatus),
		zap.String("to_status", toStatus),
		zap.String("denial_reason", denialReason),
	)
}

// LogOrderCreated records a committed order creation.
func (a *AuditService) LogOrderCreated(orderID, shopkeeperID, warehouseID uint, totalAmount string) {
	a.logger.Info("order created",
		zap.Uint("order_id", orderID),
		zap.Uint("shopkeeper_id", shopkeeperID),
		zap.Uint("warehouse_id", warehouseID),
		zap.String("total_amount", totalAmount),
	)
}

// Sync flushes buffered log entries. Called on shutdown.
func (a *AuditService) Sync() {
	_ = a.logger.Sync()
}
