package model

import "time"

// RootUserID is the reserved id of the administrator account.
const RootUserID = "00000000-0000-0000-0000-000000000000"

// Role classifies who is acting.
type Role int

const (
	RoleGuest Role = iota
	RoleMember
	RoleRoot
)

func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleMember:
		return "member"
	}
	return "guest"
}

// User is a registered account. Password holds the hex SHA-256 digest.
type User struct {
	ID         string      `gorm:"primaryKey;size:36"`
	Name       string      `gorm:"size:255;not null"`
	Email      string      `gorm:"uniqueIndex;size:255;not null"`
	Password   string      `gorm:"size:64;not null"`
	Avatar     *string     `gorm:"type:text"`
	CreatedAt  time.Time
	Descriptor Permissions `gorm:"not null;default:0"`
}

func (User) TableName() string { return "users" }

// Role derives the role from the account id. A nil user is a guest.
func (u *User) Role() Role {
	if u == nil {
		return RoleGuest
	}
	if u.ID == RootUserID {
		return RoleRoot
	}
	return RoleMember
}

// Can reports whether u may exercise p. Root passes every check and Manage
// implies the item-type permissions.
func (u *User) Can(p Permission) bool {
	switch u.Role() {
	case RoleRoot:
		return true
	case RoleMember:
		if u.Descriptor.Has(p) {
			return true
		}
		return p != PermManage && u.Descriptor.Has(PermManage)
	}
	return false
}
