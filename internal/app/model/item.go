package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemType distinguishes what an item's Data field refers to.
type ItemType string

const (
	ItemLink ItemType = "link"
	ItemCode ItemType = "code"
	ItemFile ItemType = "file"
)

// GracePeriod is how long an unavailable item is kept before the sweep drops it.
const GracePeriod = 7 * 24 * time.Hour

// RandomPath asks the service to pick a fresh short path.
const RandomPath = "__RANDOM__"

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemLink, ItemCode, ItemFile:
		return true
	}
	return false
}

// Label is the capitalised name used on the wire ("Link", "Code", "File").
func (t ItemType) Label() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

func (t ItemType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Label())
}

func (t *ItemType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed := ItemType(strings.ToLower(s))
	if !parsed.Valid() {
		return fmt.Errorf("unknown item type %q", s)
	}
	*t = parsed
	return nil
}

// Item is a user-created resource served at ShortPath.
type Item struct {
	ID           string     `gorm:"primaryKey;size:36"`
	ShortPath    string     `gorm:"uniqueIndex;size:255;not null"`
	ItemType     ItemType   `gorm:"size:8;not null"`
	Data         string     `gorm:"type:text;not null"`
	ExpiresAt    *time.Time `gorm:"index"`
	MaxVisits    *int64
	Visits       int64   `gorm:"not null;default:0"`
	PasswordHash *string `gorm:"size:64"`
	CreatedAt    time.Time
	ExtraData    *string    `gorm:"type:text"`
	Creator      *string    `gorm:"size:64;index"`
	Available    bool       `gorm:"not null;default:true"`
	ShouldDropAt *time.Time `gorm:"index"`
	IsImage      bool       `gorm:"not null;default:false"`
}

func (Item) TableName() string { return "items" }

// Exhausted reports whether the item ran out of time or visits at now.
func (i *Item) Exhausted(now time.Time) bool {
	if i.ExpiresAt != nil && now.After(*i.ExpiresAt) {
		return true
	}
	return i.MaxVisits != nil && i.Visits >= *i.MaxVisits
}

// MarkUnavailable hides the item and schedules it for removal after GracePeriod.
func (i *Item) MarkUnavailable(now time.Time) {
	drop := now.Add(GracePeriod)
	i.Available = false
	i.ShouldDropAt = &drop
}

// OwnedBy reports whether userID created the item.
func (i *Item) OwnedBy(userID string) bool {
	return userID != "" && i.Creator != nil && *i.Creator == userID
}

// Protected reports whether the item requires a password.
func (i *Item) Protected() bool {
	return i.PasswordHash != nil
}

// HasBackingFile reports whether Data names an entry in the file store.
func (i *Item) HasBackingFile() bool {
	return i.ItemType == ItemCode || i.ItemType == ItemFile
}
