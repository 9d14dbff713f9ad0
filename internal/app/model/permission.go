package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Permission is a single capability bit. The bit values are persisted.
type Permission int64

const (
	PermManage Permission = 1 << iota
	PermLink
	PermCode
	PermFile
)

var allPermissions = []Permission{PermManage, PermLink, PermCode, PermFile}

func (p Permission) String() string {
	switch p {
	case PermManage:
		return "Manage"
	case PermLink:
		return "Link"
	case PermCode:
		return "Code"
	case PermFile:
		return "File"
	}
	return fmt.Sprintf("Permission(%d)", int64(p))
}

// ParsePermission resolves a permission by name, case-insensitively.
func ParsePermission(name string) (Permission, error) {
	for _, p := range allPermissions {
		if strings.EqualFold(p.String(), name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown permission %q", name)
}

// RequiredPermission returns the permission needed to create items of type t.
func RequiredPermission(t ItemType) Permission {
	switch t {
	case ItemLink:
		return PermLink
	case ItemCode:
		return PermCode
	default:
		return PermFile
	}
}

// Permissions is a set of Permission values stored as a bitmask.
type Permissions int64

// NewPermissions builds a set holding ps.
func NewPermissions(ps ...Permission) Permissions {
	var s Permissions
	for _, p := range ps {
		s = s.With(p)
	}
	return s
}

// AllPermissions is the full set.
func AllPermissions() Permissions {
	return NewPermissions(allPermissions...)
}

func (s Permissions) Has(p Permission) bool { return int64(s)&int64(p) != 0 }
func (s Permissions) With(p Permission) Permissions { return Permissions(int64(s) | int64(p)) }
func (s Permissions) Without(p Permission) Permissions { return Permissions(int64(s) &^ int64(p)) }

// List returns the members in bit order.
func (s Permissions) List() []Permission {
	out := make([]Permission, 0, len(allPermissions))
	for _, p := range allPermissions {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// MarshalJSON encodes the set as a list of names.
func (s Permissions) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(allPermissions))
	for _, p := range s.List() {
		names = append(names, p.String())
	}
	return json.Marshal(names)
}

// UnmarshalJSON accepts either a list of names or the raw bitmask.
func (s *Permissions) UnmarshalJSON(b []byte) error {
	var mask int64
	if err := json.Unmarshal(b, &mask); err == nil {
		*s = Permissions(mask) & AllPermissions()
		return nil
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("permissions: %w", err)
	}
	var set Permissions
	for _, n := range names {
		p, err := ParsePermission(n)
		if err != nil {
			return err
		}
		set = set.With(p)
	}
	*s = set
	return nil
}
