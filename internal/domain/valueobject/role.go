package valueobject

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleTradesperson Role = "tradesperson"
	RoleAdmin        Role = "admin"
)

// Actor: пользователь, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
