package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mk-dev-co/supplyline-api/models"
)

// validTransitions is the unconditional order state machine: current status
// to the set of statuses any actor could move it to. Terminal statuses map
// to an empty set.
var validTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusAccepted, models.OrderStatusRejected, models.OrderStatusCancelled},
	models.OrderStatusAccepted:  {models.OrderStatusAssigned, models.OrderStatusCancelled},
	models.OrderStatusAssigned:  {models.OrderStatusInTransit, models.OrderStatusCancelled},
	models.OrderStatusInTransit: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: {},
	models.OrderStatusRejected:  {},
	models.OrderStatusCancelled: {},
}

// rolePermissions gates validTransitions per role. A transition is legal only
// if both tables allow it. Admins may perform every valid transition.
var rolePermissions = map[string]map[string][]string{
	models.RoleShopkeeper: {
		models.OrderStatusPending:  {models.OrderStatusCancelled},
		models.OrderStatusAccepted: {models.OrderStatusCancelled},
	},
	models.RoleWarehouseManager: {
		models.OrderStatusPending:  {models.OrderStatusAccepted, models.OrderStatusRejected},
		models.OrderStatusAccepted: {models.OrderStatusAssigned},
	},
	models.RoleRider: {
		models.OrderStatusInTransit: {models.OrderStatusDelivered},
	},
	models.RoleAdmin: {
		models.OrderStatusPending:   {models.OrderStatusAccepted, models.OrderStatusRejected, models.OrderStatusCancelled},
		models.OrderStatusAccepted:  {models.OrderStatusAssigned, models.OrderStatusCancelled},
		models.OrderStatusAssigned:  {models.OrderStatusInTransit, models.OrderStatusCancelled},
		models.OrderStatusInTransit: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	},
}

// TransitionDenial explains why a transition was refused. RoleForbidden is
// true when the transition itself is valid but the actor's role may not
// perform it, so callers can answer 403 instead of 400.
type TransitionDenial struct {
	RoleForbidden bool
	Reason        string
}

// ValidateTransition checks whether an order in currentStatus may be moved to
// targetStatus by an actor with the given role. It is a pure function: no
// I/O, no mutation. A nil result means the transition is allowed.
func ValidateTransition(currentStatus, targetStatus, role string) *TransitionDenial {
	validNext, ok := validTransitions[currentStatus]
	if !ok {
		return &TransitionDenial{Reason: fmt.Sprintf("invalid current status: %q", currentStatus)}
	}

	if !containsStatus(validNext, targetStatus) {
		if len(validNext) == 0 {
			return &TransitionDenial{Reason: fmt.Sprintf("cannot transition from %q: terminal status", currentStatus)}
		}
		return &TransitionDenial{Reason: fmt.Sprintf(
			"cannot transition from %q to %q, valid transitions: %s",
			currentStatus, targetStatus, strings.Join(validNext, ", "))}
	}

	roleTransitions, ok := rolePermissions[role]
	if !ok {
		return &TransitionDenial{RoleForbidden: true, Reason: fmt.Sprintf("invalid user role: %q", role)}
	}

	allowed, ok := roleTransitions[currentStatus]
	if !ok {
		return &TransitionDenial{RoleForbidden: true, Reason: fmt.Sprintf(
			"role %q cannot modify orders in %q status", role, currentStatus)}
	}

	if !containsStatus(allowed, targetStatus) {
		return &TransitionDenial{RoleForbidden: true, Reason: fmt.Sprintf(
			"role %q cannot transition order from %q to %q", role, currentStatus, targetStatus)}
	}

	return nil
}

// AllowedTransitions returns the statuses the given role may move an order in
// currentStatus to, sorted for stable output.
func AllowedTransitions(currentStatus, role string) []string {
	roleTransitions, ok := rolePermissions[role]
	if !ok {
		return nil
	}

	var out []string
	for _, target := range roleTransitions[currentStatus] {
		if ValidateTransition(currentStatus, target, role) == nil {
			out = append(out, target)
		}
	}
	sort.Strings(out)
	return out
}

func containsStatus(statuses []string, s string) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}
