package models

import "time"

// Card is a catalog entry. The engine reads it only to order and group progress.
type Card struct {
	ID          string    `json:"id" db:"id"`
	Category    string    `json:"category" db:"category"`
	SubCategory *string   `json:"subCategory" db:"sub_category"`
	OrderIndex  int       `json:"orderIndex" db:"order_index"`
	Tags        Tags      `json:"tags" db:"tags"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
