package repo

import (
	"context"

	"github.com/KNICEX/oi-radar/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SymbolRepo interface {
	// Mark sets the mark of a symbol, creating the row when missing.
	Mark(ctx context.Context, symbol entity.Symbol) error
	FindByName(ctx context.Context, name string) (entity.Symbol, error)
	FindByMark(ctx context.Context, mark string) ([]entity.Symbol, error)
}

type symbolRepo struct {
	db *gorm.DB
}

func NewSymbolRepo(db *gorm.DB) SymbolRepo {
	return &symbolRepo{
		db: db,
	}
}

func (repo *symbolRepo) Mark(ctx context.Context, symbol entity.Symbol) error {
	return repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"mark", "updated_at"}),
	}).Create(&symbol).Error
}

func (repo *symbolRepo) FindByName(ctx context.Context, name string) (entity.Symbol, error) {
	var symbol entity.Symbol
	err := repo.db.WithContext(ctx).Where("name = ?", name).First(&symbol).Error
	if err != nil {
		return entity.Symbol{}, err
	}
	return symbol, nil
}

func (repo *symbolRepo) FindByMark(ctx context.Context, mark string) ([]entity.Symbol, error) {
	var symbols []entity.Symbol
	err := repo.db.WithContext(ctx).Where("mark = ?", mark).Order("name").Find(&symbols).Error
	if err != nil {
		return nil, err
	}
	return symbols, nil
}
