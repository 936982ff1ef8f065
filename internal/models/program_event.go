package models

import "time"

// ProgramEvent is an event emitted by an on-ledger program in a committed
// transaction.
type ProgramEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Signature string    `gorm:"size:100;not null;uniqueIndex:idx_program_event_position" json:"signature"`
	Ordinal   int       `gorm:"not null;uniqueIndex:idx_program_event_position" json:"ordinal"`
	Slot      uint64    `gorm:"not null;index" json:"slot"`
	ProgramID string    `gorm:"size:64;not null" json:"program_id"`
	Name      string    `gorm:"size:64;not null;index" json:"name"`
	Payload   string    `gorm:"type:jsonb" json:"payload"`
	BlockTime time.Time `json:"block_time"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ProgramEvent) TableName() string {
	return "program_event"
}
