package models

import (
	"time"
)

// User - customers, warehouse staff and admins share one table
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	Email        string    `gorm:"size:120" json:"email"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'warehouse', 'customer'
	CreatedAt    time.Time `json:"created_at"`
}

// Package - a physical parcel moving through the warehouse
type Package struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	TrackingNumber string         `gorm:"uniqueIndex;size:64" json:"tracking_number"`
	UserID         uint           `gorm:"index" json:"user_id"` // Owning customer
	Description    string         `json:"description"`
	WeightKg       float64        `json:"weight_kg"`
	LengthCm       float64        `json:"length_cm"`
	WidthCm        float64        `json:"width_cm"`
	HeightCm       float64        `json:"height_cm"`
	DeclaredValue  float64        `json:"declared_value"`
	ServiceMode    string         `json:"service_mode"` // 'air', 'ocean', 'local'
	OriginCountry  string         `json:"origin_country"`
	DestCountry    string         `json:"dest_country"`
	Status         string         `json:"status"`
	History        []PackageEvent `gorm:"foreignKey:PackageID" json:"history,omitempty"`
	Invoices       []Invoice      `gorm:"foreignKey:PackageID" json:"invoices,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PackageEvent - append-only status history. Rows are written on every
// transition and never updated or deleted.
type PackageEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PackageID uint      `gorm:"index" json:"package_id"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	At        time.Time `json:"at"`
}

// Invoice - billing document for a package (or standalone)
type Invoice struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"uniqueIndex;size:64" json:"invoice_number"`
	UserID        uint          `gorm:"index" json:"user_id"`
	PackageID     *uint         `gorm:"index" json:"package_id,omitempty"`
	Items         []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Subtotal      float64       `json:"subtotal"`
	TaxTotal      float64       `json:"tax_total"`
	Discount      float64       `json:"discount"`
	Total         float64       `json:"total"`
	AmountPaid    float64       `json:"amount_paid"`
	BalanceDue    float64       `json:"balance_due"` // Always total - amountPaid, floored at 0
	Currency      string        `gorm:"size:8" json:"currency"`
	Status        string        `json:"status"` // 'sent', 'paid', 'partially_paid', 'overdue'
	DueDate       time.Time     `json:"due_date"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// InvoiceItem - one billed line; amount/tax/total are computed at write time
type InvoiceItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	InvoiceID   uint    `gorm:"index" json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	Amount      float64 `json:"amount"` // quantity * unit_price
	Tax         float64 `json:"tax"`    // amount * tax_rate
	Total       float64 `json:"total"`  // amount + tax
}

// Payment - the standalone ledger record for reporting. One row per payment
// event regardless of source (card, paypal, bank, wallet, cash).
type Payment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ReferenceID    string    `gorm:"size:64;index" json:"reference_id"` // internal uuid
	InvoiceID      *uint     `gorm:"index" json:"invoice_id,omitempty"`
	PackageID      *uint     `gorm:"index" json:"package_id,omitempty"`
	TrackingNumber string    `gorm:"size:64;index" json:"tracking_number"`
	Amount         float64   `json:"amount"`
	Currency       string    `gorm:"size:8" json:"currency"`
	Method         string    `json:"method"` // 'card', 'paypal', 'bank', 'wallet', 'cash'
	Status         string    `json:"status"` // 'initiated', 'authorized', 'captured', 'failed', 'refunded'
	GatewayRef     string    `gorm:"size:128;index" json:"gateway_ref"`
	EnteredBy      uint      `json:"entered_by"` // staff user id for manual entries, 0 for self-service
	CreatedAt      time.Time `json:"created_at"`
}

// PreAlert - customer advance notice of an incoming package
type PreAlert struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index" json:"user_id"`
	TrackingNumber   string    `gorm:"size:64;index" json:"tracking_number"`
	Carrier          string    `json:"carrier"`
	OriginCountry    string    `json:"origin_country"`
	ExpectedDate     time.Time `json:"expected_date"`
	Status           string    `json:"status"` // 'submitted', 'approved', 'rejected'
	MatchedPackageID *uint     `json:"matched_package_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PricingRule - weight-banded shipping rate. Band is [WeightMin, WeightMax).
type PricingRule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Origin      string    `gorm:"size:64;index" json:"origin"`
	Destination string    `gorm:"size:64;index" json:"destination"`
	WeightMin   float64   `json:"weight_min"`
	WeightMax   float64   `json:"weight_max"`
	BaseRate    float64   `json:"base_rate"`
	PerKgRate   float64   `json:"per_kg_rate"`
	Currency    string    `gorm:"size:8" json:"currency"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// InventoryItem - packaging consumables (boxes, tape, labels)
type InventoryItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SKU       string    `gorm:"uniqueIndex;size:64" json:"sku"`
	Name      string    `json:"name"`
	Current   int       `json:"current"`
	Min       int       `json:"min"`
	Max       int       `json:"max"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseKey - API key for inter-system warehouse endpoints. Only the
// sha256 hash is stored; the raw key is shown once at creation.
type WarehouseKey struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	KeyID       string     `gorm:"uniqueIndex;size:40" json:"key_id"`
	Prefix      string     `gorm:"index;size:20" json:"prefix"` // e.g. "wh_live_3fa8"
	Hash        string     `gorm:"uniqueIndex;size:64" json:"-"`
	Label       string     `json:"label"`
	Permissions string     `json:"permissions"` // comma separated, e.g. "packages:write,customers:read"
	Revoked     bool       `json:"revoked"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuditLog - who did what, for back-office review
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ActorID   uint      `json:"actor_id"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityRef string    `gorm:"size:64" json:"entity_ref"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// OutboxJob - queued side effect (email, receipt). Written alongside the
// primary write and dispatched by the background worker.
type OutboxJob struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobID     string    `gorm:"uniqueIndex;size:40" json:"job_id"`
	Kind      string    `gorm:"size:40;index" json:"kind"`
	Payload   string    `json:"payload"`
	Status    string    `gorm:"size:16;index" json:"status"` // 'pending', 'done', 'failed'
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
