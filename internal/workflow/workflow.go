// Package workflow defines the order fulfillment state machine: which status
// transitions exist and which role may request each one.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/swiftdrop/api/internal/enum"
)

// ErrTransition is wrapped by every rejection from CanTransition so callers
// can distinguish a workflow violation from other failures.
var ErrTransition = errors.New("transition not allowed")

type transition struct {
	from  string
	to    string
	actor string
}

// transitions is the authoritative table. Stores drive an order up to
// ready_for_pickup, riders take it from there. Cancellation is only
// reachable from the early states.
var transitions = []transition{
	{enum.OrderStatusPending, enum.OrderStatusAccepted, enum.RoleStoreOwner},
	{enum.OrderStatusPending, enum.OrderStatusCancelled, enum.RoleStoreOwner},
	{enum.OrderStatusPending, enum.OrderStatusCancelled, enum.RoleCustomer},
	{enum.OrderStatusAccepted, enum.OrderStatusPacked, enum.RoleStoreOwner},
	{enum.OrderStatusAccepted, enum.OrderStatusCancelled, enum.RoleStoreOwner},
	{enum.OrderStatusAccepted, enum.OrderStatusCancelled, enum.RoleCustomer},
	{enum.OrderStatusPacked, enum.OrderStatusReadyForPickup, enum.RoleStoreOwner},
	{enum.OrderStatusReadyForPickup, enum.OrderStatusPickedUp, enum.RoleRider},
	{enum.OrderStatusPickedUp, enum.OrderStatusInTransit, enum.RoleRider},
	{enum.OrderStatusInTransit, enum.OrderStatusDelivered, enum.RoleRider},
}

var transitionSet = func() map[transition]bool {
	m := make(map[transition]bool, len(transitions))
	for _, t := range transitions {
		m[t] = true
	}
	return m
}()

// NextStatuses returns every status reachable from the given one,
// regardless of actor, in table order.
func NextStatuses(from string) []string {
	var next []string
	seen := make(map[string]bool)
	for _, t := range transitions {
		if t.from == from && !seen[t.to] {
			next = append(next, t.to)
			seen[t.to] = true
		}
	}
	return next
}

// CanTransition reports whether actor may move an order from one status to
// another. A nil return means the transition is allowed.
func CanTransition(from, to, actor string) error {
	if transitionSet[transition{from, to, actor}] {
		return nil
	}

	next := NextStatuses(from)
	if len(next) == 0 {
		return fmt.Errorf("%w: %s is a terminal status", ErrTransition, from)
	}
	return fmt.Errorf("%w: cannot move from %s to %s as %s (valid next: %s)",
		ErrTransition, from, to, actor, strings.Join(next, ", "))
}

// IsTerminal reports whether no transition leaves the given status.
func IsTerminal(status string) bool {
	return len(NextStatuses(status)) == 0
}
