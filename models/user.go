package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a TruthChain user with a token balance
type User struct {
	ID               string          `db:"id"`
	Username         string          `db:"username"`
	Balance          decimal.Decimal `db:"balance"`
	AvailableBalance decimal.Decimal `db:"-"` // Calculated field: balance minus active stakes
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}
