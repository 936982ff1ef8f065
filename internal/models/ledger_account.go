package models

import "time"

// LedgerAccount is the persisted state of one ledger account.
type LedgerAccount struct {
	Address    string    `gorm:"size:64;primaryKey" json:"address"`
	Owner      string    `gorm:"size:64;not null;index" json:"owner"`
	Lamports   uint64    `gorm:"not null" json:"lamports"`
	Data       []byte    `gorm:"type:bytea" json:"data"`
	Executable bool      `gorm:"default:false" json:"executable"`
	Slot       uint64    `gorm:"not null;default:0" json:"slot"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LedgerAccount) TableName() string {
	return "ledger_account"
}
