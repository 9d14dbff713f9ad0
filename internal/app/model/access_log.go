package model

import "time"

// Operation is the kind of access recorded in an AccessLog.
type Operation string

const (
	OpGet Operation = "get"
	OpSet Operation = "set"
)

// AccessLog is an append-only record of one access to an item.
type AccessLog struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ItemID     string    `gorm:"size:36;index;not null" json:"item_id"`
	AccessedAt time.Time `gorm:"index;not null" json:"accessed_at"`
	Path       string    `gorm:"size:255;not null" json:"path"`
	Operation  Operation `gorm:"size:8;not null" json:"operation"`
	Success    bool      `gorm:"not null" json:"success"`
	IPAddress  string    `gorm:"size:64" json:"ip_address"`
	Initiator  *string   `gorm:"size:64" json:"initiator,omitempty"`
}

func (AccessLog) TableName() string { return "access_logs" }

// Access event stream settings for the optional JetStream publisher.
const (
	AccessStreamName     = "SPECTRA_ACCESS"
	AccessStreamSubject  = "spectra.access"
	AccessStreamMaxBytes = 1024 * 1024 * 100
)
