package suppliers

import (
	"time"
)

// Supplier represents a supplier entity. Import commits resolve supplier
// names against this table, matching on trimmed lower-cased name.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	GSTIN     string    `json:"gstin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
