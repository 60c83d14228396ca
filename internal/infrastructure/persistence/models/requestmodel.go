package models

import (
	"time"

	"gorm.io/gorm"
)

type RequestModel struct {
	ID            uint      `gorm:"primaryKey"`
	Number        string    `gorm:"uniqueIndex;size:20;not null"`
	Requester     string    `gorm:"size:100;not null;index"`
	RequestDate   time.Time `gorm:"not null;index"`
	Factory       string    `gorm:"size:64;not null;index"`
	Project       string    `gorm:"size:64;not null"`
	Phase         string    `gorm:"size:64;not null"`
	Category      string    `gorm:"size:64;not null"`
	Status        string    `gorm:"size:20;not null;index"`
	Equipment     string    `gorm:"size:64;index"`
	Detail        string    `gorm:"type:text"`
	Qty           int       `gorm:"not null;default:1"`
	TestCondition string    `gorm:"type:text"`
	FinalResult   string    `gorm:"size:10;not null;default:'-'"`

	CosQty         int    `gorm:"column:cos_qty;not null;default:0"`
	CosResult      string `gorm:"column:cos_result;size:10;not null;default:'-'"`
	HCrossQty      int    `gorm:"column:hcross_qty;not null;default:0"`
	XHatchResult   string `gorm:"column:xhatch_result;size:10;not null;default:'-'"`
	XCrossQty      int    `gorm:"column:xcross_qty;not null;default:0"`
	XSectionResult string `gorm:"column:xsection_result;size:10;not null;default:'-'"`
	FuncTestQty    int    `gorm:"column:func_test_qty;not null;default:0"`
	FuncResult     string `gorm:"column:func_result;size:10;not null;default:'-'"`

	PlanStart     *time.Time
	PlanEnd       *time.Time
	ActualStart   *time.Time
	ActualEnd     *time.Time
	DRI           string         `gorm:"column:dri;size:100"`
	LogFile       string         `gorm:"size:500"`
	LogLink       string         `gorm:"size:500"`
	Note          string         `gorm:"type:text"`
	CreatedBy     string         `gorm:"size:32;not null"`
	UpdatedBy     string         `gorm:"size:32;not null"`
	Version       int            `gorm:"not null;default:1"`
	CreatedAt     time.Time      `gorm:"autoCreateTime:false;not null"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime:false;not null"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`

	// Lookup references are checked by the application inside the write
	// transaction; there are no foreign key constraints.
}

func (RequestModel) TableName() string {
	return "requests"
}
