package models

import "time"

type LookupEntryModel struct {
	ID          uint   `gorm:"primaryKey"`
	LookupTable string `gorm:"size:20;not null;uniqueIndex:idx_lookup_table_code"`
	Code        string `gorm:"size:64;not null;uniqueIndex:idx_lookup_table_code"`
	Label       string `gorm:"size:200;not null"`
	SortKey     int    `gorm:"not null;default:0"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LookupEntryModel) TableName() string {
	return "lookup_entries"
}

type EquipmentModel struct {
	ID        uint   `gorm:"primaryKey"`
	ControlNo string `gorm:"uniqueIndex;size:64;not null"`
	Name      string `gorm:"size:200;not null"`
	Spec      string `gorm:"size:500"`
	Recipe1   string `gorm:"size:200"`
	Recipe2   string `gorm:"size:200"`
	Recipe3   string `gorm:"size:200"`
	Recipe4   string `gorm:"size:200"`
	Recipe5   string `gorm:"size:200"`
	Remark    string `gorm:"type:text"`
	Factory   string `gorm:"size:64;index"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EquipmentModel) TableName() string {
	return "equipment"
}
