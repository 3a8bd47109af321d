package models

// Role distinguishes the parties of a shipment. It is also the principal kind carried in
// access tokens.
type Role string

const (
	RoleShipper Role = "shipper"
	RoleDriver  Role = "driver"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleShipper, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// User represents a shipper, driver or admin account.
// It maps to the `users` table in SQLite.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Role     Role   `db:"role" json:"role"`
	Phone    string `db:"phone" json:"phone,omitempty"`
}
