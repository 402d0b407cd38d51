package model

import "time"

// PriceEntry is one observed price: what a package cost at a supermarket on
// a given date. PricePerUnit is the normalized price (per kg, liter, dozen,
// or unit), computed server-side on every write so entries stay comparable.
type PriceEntry struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ProductName  string    `json:"product_name"`
	Brand        string    `json:"brand"`
	TotalPrice   float64   `json:"total_price"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	PricePerUnit float64   `json:"price_per_unit"`
	Supermarket  string    `json:"supermarket"`
	IsOffer      bool      `json:"is_offer"`
	OfferNotes   string    `json:"offer_notes,omitempty"`
	PurchasedAt  time.Time `json:"purchased_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
