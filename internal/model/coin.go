package model

import "time"

// Coin represents a single owned piece in the collection.
type Coin struct {
	ID             int64      `json:"id"`
	Description    string     `json:"description"`
	NominalPrice   int64      `json:"nominal_price"`
	ReleaseYear    string     `json:"release_year"`
	SerialNumber   string     `json:"serial_number"`
	OwnerID        int64      `json:"owner_id"`
	TypeID         int64      `json:"type_id"`
	CurrencyID     int64      `json:"currency_id"`
	MintID         int64      `json:"mint_id"`
	IssuingStateID int64      `json:"issuing_state_id"`
	ImageMime      string     `json:"image_mime,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}
