package repo

import (
	"github.com/KNICEX/oi-radar/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Symbol{}, &entity.Alert{})
}
