package entity

import (
	"time"
)

// Symbol 合约交易对, Mark 用于人工标记
type Symbol struct {
	Id        int64  `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex"`
	Base      string `gorm:"index"`
	Quote     string `gorm:"index"`
	Mark      string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	MarkIgnore   = "ignore"
	MarkFavorite = "favorite"
)
