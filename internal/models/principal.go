package models

import (
	"time"

	"github.com/google/uuid"
)

// Principal role enumeration
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSales:
		return true
	}
	return false
}

type Principal struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	Name           string
	Role           Role
	HashedPassword string
}
