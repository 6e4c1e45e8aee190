package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MenuCategory string

const (
	CategoryBurger  MenuCategory = "burger"
	CategoryExtras  MenuCategory = "extras"
	CategoryDrink   MenuCategory = "drink"
	CategoryDessert MenuCategory = "dessert"
)

// MenuItem is read-only from the lifecycle engine's perspective: the
// engines snapshot name/price/customizations into line items at add-time.
type MenuItem struct {
	bun.BaseModel `bun:"table:menu_items"`

	ID             string          `bun:"id,pk" json:"id"`
	Name           string          `bun:"name,notnull" json:"name"`
	Description    string          `bun:"description,nullzero" json:"description,omitempty"`
	BasePrice      float64         `bun:"base_price,notnull" json:"basePrice"`
	Category       MenuCategory    `bun:"category,notnull" json:"category"`
	ImageURL       string          `bun:"image_url,nullzero" json:"imageUrl,omitempty"`
	Available      bool            `bun:"available,notnull" json:"available"`
	Ingredients    []string        `bun:"ingredients,type:jsonb" json:"ingredients,omitempty"`
	Customizations []Customization `bun:"customizations,type:jsonb" json:"customizations,omitempty"`
	CreatedAt      time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}
