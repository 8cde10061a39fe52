package domain

import "time"

// Contact is the shipping information captured at checkout. Payment fields
// are never part of it.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zipCode"`
}

func (c Contact) Name() string { return c.FirstName + " " + c.LastName }

// Order is a placed checkout. Lines are the cart record as it was read at
// placement time.
type Order struct {
	ID       string     `json:"id"`
	Number   string     `json:"number"`
	Contact  Contact    `json:"contact"`
	Lines    []CartLine `json:"lines"`
	Subtotal float64    `json:"subtotal"`
	Tax      float64    `json:"tax"`
	Total    float64    `json:"total"`
	PlacedAt time.Time  `json:"placedAt"`
}
