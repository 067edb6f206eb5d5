package domain

import "time"

// Role names form a closed set of capability tiers.
const (
	RoleCustomer = "CUSTOMER"
	RoleAgent    = "AGENT"
	RoleAdmin    = "ADMIN"
)

type Role struct {
	ID          string
	Name        string
	Description string
	Scopes      []string // Parsed from space-delimited storage
	CreatedAt   time.Time
}
