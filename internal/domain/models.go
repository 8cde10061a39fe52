package domain

import "math"

// Product mirrors the remote catalog record. Read-only once fetched.
type Product struct {
	ID                 int     `json:"id" db:"id"`
	Title              string  `json:"title" db:"title"`
	Description        string  `json:"description" db:"description"`
	Price              float64 `json:"price" db:"price"`
	Stock              int     `json:"stock" db:"stock"`
	Category           string  `json:"category" db:"category"`
	Brand              string  `json:"brand,omitempty" db:"brand"`
	Thumbnail          string  `json:"thumbnail" db:"thumbnail"`
	Rating             float64 `json:"rating,omitempty" db:"rating"`
	DiscountPercentage float64 `json:"discountPercentage,omitempty" db:"discount_percentage"`
}

func (p Product) InStock() bool { return p.Stock > 0 }

// OriginalPrice reconstructs the pre-discount price shown struck through on
// product details.
func (p Product) OriginalPrice() float64 {
	if p.DiscountPercentage <= 0 || p.DiscountPercentage >= 100 {
		return p.Price
	}
	return math.Round(p.Price/(1-p.DiscountPercentage/100)*100) / 100
}

// CartLine is the persisted cart record shape. Title, price, stock and
// thumbnail are snapshotted when the line is created.
type CartLine struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Stock     int     `json:"stock"`
	Thumbnail string  `json:"thumbnail"`
}

func (l CartLine) Subtotal() float64 { return l.Price * float64(l.Quantity) }

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityInfo:
		return true
	}
	return false
}

type Toast struct {
	ID       string   `json:"id"`
	Message  string   `json:"message"`
	Severity Severity `json:"type"`
}
