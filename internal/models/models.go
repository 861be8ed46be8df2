package models

import (
	"time"
)

// User - The shopper (or admin) interacting with the store
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:120" json:"email"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'customer', 'admin'
	Phone        string    `gorm:"size:30" json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category - Product grouping (Shoes, Shirts, etc.)
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100" json:"name"`
	Slug        string    `gorm:"uniqueIndex;size:120" json:"slug"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product - The Catalog entry
type Product struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Name        string   `gorm:"size:200" json:"name"`
	Slug        string   `gorm:"uniqueIndex;size:220" json:"slug"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	CategoryID  uint     `gorm:"index" json:"category_id"`
	Category    Category `json:"category"`
	ImageURL    string   `json:"image_url"`
	IsActive    bool     `gorm:"default:true" json:"is_active"`

	// TotalQuantity is a cached sum over this product's inventory records.
	// inventory.SyncProductTotal keeps it truthful after every stock change.
	TotalQuantity int `json:"total_quantity"`
	SalesCount    int `json:"sales_count"`

	// Review cache, recomputed on every review write
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`

	Variants  []InventoryRecord `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// InventoryRecord - Per-SKU stock for one purchasable variant of a product
type InventoryRecord struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	ProductID         uint              `gorm:"index" json:"product_id"`
	SKU               string            `gorm:"uniqueIndex;size:64;column:sku" json:"sku"`
	Quantity          int               `json:"quantity"` // never below zero
	LowStockThreshold int               `gorm:"default:5" json:"low_stock_threshold"`
	VariantSelections map[string]string `gorm:"serializer:json" json:"variant_selections"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Coupon - Discount codes. Deactivated, never hard-deleted.
type Coupon struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	Code            string  `gorm:"uniqueIndex;size:40" json:"code"` // stored upper-case
	DiscountType    string  `json:"discount_type"`                   // 'percentage' or 'fixed'
	DiscountValue   float64 `json:"discount_value"`
	MinimumPurchase float64 `json:"minimum_purchase"`
	MaximumDiscount float64 `json:"maximum_discount"` // cap for percentage type, 0 = no cap

	UsageLimitTotal   int `json:"usage_limit_total"`    // 0 = unlimited
	UsageLimitPerUser int `json:"usage_limit_per_user"` // 0 = unlimited
	UsageCount        int `json:"usage_count"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`

	// Scope restricts which cart items count toward eligibility
	Scope       string `json:"scope"` // 'all', 'products', 'categories'
	ProductIDs  []uint `gorm:"serializer:json" json:"product_ids"`
	CategoryIDs []uint `gorm:"serializer:json" json:"category_ids"`

	Usages    []CouponUsage `gorm:"foreignKey:CouponID" json:"usages,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CouponUsage - One row per user who redeemed the coupon.
// Invariant: Coupon.UsageCount == SUM(Count) over its usage rows.
type CouponUsage struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	CouponID uint `gorm:"index:idx_coupon_user,unique" json:"coupon_id"`
	UserID   uint `gorm:"index:idx_coupon_user,unique" json:"user_id"`
	Count    int  `json:"count"`
}

// Address - Shipping/billing destination, embedded into orders
type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Order - Immutable snapshot of a cart at checkout, plus lifecycle state
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;size:40" json:"order_number"`
	UserID      uint        `gorm:"index" json:"user_id"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	PaymentMethod string     `json:"payment_method"` // 'card', 'cod'
	PaymentStatus string     `json:"payment_status"` // 'pending', 'paid', 'partially_refunded', 'refunded'
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
	RefundAmount  float64    `json:"refund_amount"`
	RefundedAt    *time.Time `json:"refunded_at"`

	// Pricing snapshot frozen at creation. Refunds adjust payment fields, never these.
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	CouponCode string  `json:"coupon_code"`
	Tax        float64 `json:"tax"`
	Shipping   float64 `json:"shipping"`
	Total      float64 `json:"total"`

	Status   string          `json:"status"` // see orders package for the state machine
	Timeline []TimelineEvent `gorm:"foreignKey:OrderID" json:"timeline"`

	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`

	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem - Frozen line copied from the cart at checkout
type OrderItem struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	OrderID           uint              `gorm:"index" json:"order_id"`
	ProductID         uint              `json:"product_id"`
	ProductName       string            `json:"product_name"`
	SKU               string            `gorm:"size:64;column:sku" json:"sku"`
	Quantity          int               `json:"quantity"`
	UnitPrice         float64           `json:"unit_price"`
	VariantSelections map[string]string `gorm:"serializer:json" json:"variant_selections"`
}

// TimelineEvent - Append-only audit log of order status changes
type TimelineEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"index" json:"order_id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	ActorID     *uint     `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Review - One per user per product
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index:idx_product_user,unique" json:"product_id"`
	UserID    uint      `gorm:"index:idx_product_user,unique" json:"user_id"`
	Rating    int       `json:"rating"` // 1..5
	Title     string    `gorm:"size:150" json:"title"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
