package model

import "time"

// Account represents a collector that can authenticate and own coins.
type Account struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Principal is the resolved caller of a request. Admin distinguishes
// privileged principals from standard ones; anonymous requests never
// produce a Principal at all.
type Principal struct {
	AccountID int64
	Name      string
	Admin     bool
}
