package workflow

import (
	"strings"
	"testing"

	"github.com/swiftdrop/api/internal/enum"
)

func TestAllowedTransitions(t *testing.T) {
	cases := []struct {
		from, to, actor string
	}{
		{enum.OrderStatusPending, enum.OrderStatusAccepted, enum.RoleStoreOwner},
		{enum.OrderStatusPending, enum.OrderStatusCancelled, enum.RoleStoreOwner},
		{enum.OrderStatusPending, enum.OrderStatusCancelled, enum.RoleCustomer},
		{enum.OrderStatusAccepted, enum.OrderStatusPacked, enum.RoleStoreOwner},
		{enum.OrderStatusPacked, enum.OrderStatusReadyForPickup, enum.RoleStoreOwner},
		{enum.OrderStatusReadyForPickup, enum.OrderStatusPickedUp, enum.RoleRider},
		{enum.OrderStatusPickedUp, enum.OrderStatusInTransit, enum.RoleRider},
		{enum.OrderStatusInTransit, enum.OrderStatusDelivered, enum.RoleRider},
	}

	for _, tc := range cases {
		if err := CanTransition(tc.from, tc.to, tc.actor); err != nil {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want nil", tc.from, tc.to, tc.actor, err)
		}
	}
}

func TestRejectedTransitions(t *testing.T) {
	cases := []struct {
		name            string
		from, to, actor string
	}{
		{"skip ahead", enum.OrderStatusPending, enum.OrderStatusDelivered, enum.RoleStoreOwner},
		{"wrong actor claims pickup", enum.OrderStatusReadyForPickup, enum.OrderStatusPickedUp, enum.RoleStoreOwner},
		{"customer accepts own order", enum.OrderStatusPending, enum.OrderStatusAccepted, enum.RoleCustomer},
		{"cancel after pickup", enum.OrderStatusPickedUp, enum.OrderStatusCancelled, enum.RoleCustomer},
		{"backwards", enum.OrderStatusPacked, enum.OrderStatusAccepted, enum.RoleStoreOwner},
		{"rider accepts pending", enum.OrderStatusPending, enum.OrderStatusAccepted, enum.RoleRider},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := CanTransition(tc.from, tc.to, tc.actor); err == nil {
				t.Errorf("CanTransition(%s, %s, %s) allowed, want error", tc.from, tc.to, tc.actor)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !IsTerminal(enum.OrderStatusDelivered) {
		t.Error("delivered should be terminal")
	}
	if !IsTerminal(enum.OrderStatusCancelled) {
		t.Error("cancelled should be terminal")
	}
	if IsTerminal(enum.OrderStatusPending) {
		t.Error("pending should not be terminal")
	}

	err := CanTransition(enum.OrderStatusDelivered, enum.OrderStatusPending, enum.RoleStoreOwner)
	if err == nil || !strings.Contains(err.Error(), "terminal") {
		t.Errorf("expected terminal-status error, got %v", err)
	}
}

func TestNextStatuses(t *testing.T) {
	next := NextStatuses(enum.OrderStatusPending)
	want := []string{enum.OrderStatusAccepted, enum.OrderStatusCancelled}
	if len(next) != len(want) {
		t.Fatalf("NextStatuses(pending) = %v, want %v", next, want)
	}
	for i := range want {
		if next[i] != want[i] {
			t.Errorf("NextStatuses(pending)[%d] = %s, want %s", i, next[i], want[i])
		}
	}
}
