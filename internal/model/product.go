package model

import "time"

// Product categories. The source app grouped pantry items into these four.
const (
	CategoryFood     = "food"
	CategoryCleaning = "cleaning"
	CategoryHygiene  = "hygiene"
	CategoryPets     = "pets"
)

// ValidCategory reports whether c is one of the known product categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryFood, CategoryCleaning, CategoryHygiene, CategoryPets:
		return true
	}
	return false
}

type Product struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Name             string    `json:"name"`
	Quantity         int       `json:"quantity"`
	QuantityUnit     string    `json:"quantity_unit"`
	Category         string    `json:"category"`
	AddedAt          time.Time `json:"added_at"`
	InShoppingList   bool      `json:"in_shopping_list"`
	ShoppingQuantity int       `json:"shopping_quantity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
