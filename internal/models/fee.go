package models

import "time"

// FeeConfig is the platform fee configuration. At most one row is active;
// a missing active row means a 0% fee.
type FeeConfig struct {
	ID        int       `json:"id"`
	Rate      float64   `json:"rate"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
