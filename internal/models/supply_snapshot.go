package models

import "time"

// SupplySnapshot records the circulating supply of a mint at a point in time.
type SupplySnapshot struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Mint            string    `gorm:"size:64;not null;index" json:"mint"`
	Supply          uint64    `gorm:"not null" json:"supply"`
	Decimals        uint8     `gorm:"not null" json:"decimals"`
	BurnedSinceLast uint64    `gorm:"not null;default:0" json:"burned_since_last"`
	Slot            uint64    `gorm:"not null" json:"slot"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (SupplySnapshot) TableName() string {
	return "supply_snapshot"
}
