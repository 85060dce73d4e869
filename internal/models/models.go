package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role - permission tier of a user
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleCashier Role = "cashier"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCashier:
		return true
	}
	return false
}

// PaymentMethod - how a sale was paid
type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "Cash"
	PaymentEVCPlus PaymentMethod = "EVC Plus"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCash || p == PaymentEVCPlus
}

// User - a member of staff. Branch holds the branch name, not its id.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"` // Never return this in JSON
	Name         string    `gorm:"size:100;not null" json:"name"`
	Role         Role      `gorm:"size:20;not null" json:"role"`
	Branch       string    `gorm:"size:100;index;not null" json:"branch"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Branch - a physical store location
type Branch struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Address   string    `gorm:"size:255" json:"address"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Manager   string    `gorm:"size:100" json:"manager"`
	Active    bool      `gorm:"not null" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Product - the inventory of one branch. Barcodes are unique system-wide.
type Product struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Brand       string    `gorm:"size:100;not null" json:"brand"`
	Category    string    `gorm:"size:100;not null" json:"category"`
	Price       float64   `gorm:"not null;check:price >= 0" json:"price"`
	Quantity    int       `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Barcode     string    `gorm:"uniqueIndex;size:64;not null" json:"barcode"`
	Description string    `gorm:"type:text" json:"description"`
	Branch      string    `gorm:"size:100;index;not null" json:"branch"`
	DateAdded   time.Time `json:"dateAdded"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now().UTC()
	}
	return nil
}

// Sale - the transaction header. Immutable once written.
type Sale struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Items         []SaleItem    `gorm:"foreignKey:SaleID" json:"items"`
	TotalPrice    float64       `gorm:"not null" json:"totalPrice"`
	PaymentMethod PaymentMethod `gorm:"size:20;not null" json:"paymentMethod"`
	Branch        string        `gorm:"size:100;index;not null" json:"branch"`
	CreatedBy     string        `gorm:"size:36;index;not null" json:"createdBy"` // Who processed it
	Date          time.Time     `gorm:"index" json:"date"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Date.IsZero() {
		s.Date = time.Now().UTC()
	}
	return nil
}

// SaleItem - one cart line, owned by its sale
type SaleItem struct {
	ID        uint     `gorm:"primaryKey" json:"-"`
	SaleID    string   `gorm:"size:36;index;not null" json:"-"`
	ProductID string   `gorm:"size:36;index;not null" json:"productId"`
	Product   *Product `gorm:"foreignKey:ProductID" json:"product"` // Current catalog record, nil once deleted
	Quantity  int      `gorm:"not null" json:"quantity"`
	Price     float64  `gorm:"not null" json:"price"` // Snapshot of price at time of sale
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&Branch{},
		&User{},
		&Product{},
		&Sale{},
		&SaleItem{},
	}
}
