package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "pending"
	OrderStatusAccepted       = "accepted"
	OrderStatusPacked         = "packed"
	OrderStatusReadyForPickup = "ready_for_pickup"
	OrderStatusPickedUp       = "picked_up"
	OrderStatusInTransit      = "in_transit"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// ── Identity ──

const (
	RoleCustomer   = "customer"
	RoleStoreOwner = "storeOwner"
	RoleRider      = "rider"
)

// ── Stores ──

const (
	StoreCategoryGrocery  = "grocery"
	StoreCategoryPharmacy = "pharmacy"
	StoreCategoryEatery   = "eatery"
	StoreCategorySuya     = "suya"
	StoreCategoryOthers   = "others"
)

// StoreCategories lists every valid category, in directory display order.
var StoreCategories = []string{
	StoreCategoryGrocery,
	StoreCategoryPharmacy,
	StoreCategoryEatery,
	StoreCategorySuya,
	StoreCategoryOthers,
}

// ── Chat ──

const (
	SenderTypeUser  = "user"
	SenderTypeStore = "store"
)

// ── Push notifications ──

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

const (
	NotificationTypeOrderStatus = "order_status"
	NotificationTypePromotion   = "promotion"
	NotificationTypeGeneral     = "general"
)

// IsValidStoreCategory reports whether s is a known store category.
func IsValidStoreCategory(s string) bool {
	for _, c := range StoreCategories {
		if c == s {
			return true
		}
	}
	return false
}

// IsValidRole reports whether s is a known user role.
func IsValidRole(s string) bool {
	return s == RoleCustomer || s == RoleStoreOwner || s == RoleRider
}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusPacked,
		OrderStatusReadyForPickup, OrderStatusPickedUp, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
