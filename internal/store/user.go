package store

import (
	"strings"
	"time"
)

// Role enumerates account kinds.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Vehicle describes a driver's car. Only drivers carry one.
type Vehicle struct {
	Model    string `json:"vehicleModel"`
	Plate    string `json:"licensePlate"`
	Capacity int    `json:"vehicleCapacity"`
	Photo    string `json:"vehiclePhoto,omitempty"`
}

// User is an account record.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	Verified    bool      `json:"isVerified"`
	Blocked     bool      `json:"isBlocked"`
	BlockReason string    `json:"blockReason,omitempty"`
	Vehicle     *Vehicle  `json:"vehicle,omitempty"`
}

// Driver returns the user's vehicle and whether the user is a driver.
func (u User) Driver() (*Vehicle, bool) {
	if u.Role != RoleDriver {
		return nil, false
	}
	return u.Vehicle, true
}

// normalize enforces the role variant: vehicle data only on drivers.
func (u *User) normalize() {
	if u.Role != RoleDriver {
		u.Vehicle = nil
	}
}

// SignUpData is the caller-supplied part of a new account.
type SignUpData struct {
	Name    string
	Email   string
	Phone   string
	Role    Role
	Vehicle *Vehicle
}

// UserPatch lists the fields UpdateUser merges. Nil fields are left alone.
// Setting Blocked to false also clears the block reason.
type UserPatch struct {
	Name        *string
	Phone       *string
	Verified    *bool
	Blocked     *bool
	BlockReason *string
	Vehicle     *Vehicle
}

func (p UserPatch) apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Verified != nil {
		u.Verified = *p.Verified
	}
	if p.Blocked != nil {
		u.Blocked = *p.Blocked
		if !u.Blocked {
			u.BlockReason = ""
		}
	}
	if p.BlockReason != nil && u.Blocked {
		u.BlockReason = *p.BlockReason
	}
	if p.Vehicle != nil {
		v := *p.Vehicle
		u.Vehicle = &v
	}
	u.normalize()
}

// Session is the current-user pointer plus the remote API token, if any.
type Session struct {
	User
	Token string `json:"token,omitempty"`
}
