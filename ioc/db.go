package ioc

import (
	"os"
	"path/filepath"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/spf13/viper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type StoreConfig struct {
	Path          string        `mapstructure:"path" json:"path"`
	Retention     time.Duration `mapstructure:"retention" json:"retention"`
	MaxRecords    int           `mapstructure:"max_records" json:"max_records"`
	PruneInterval time.Duration `mapstructure:"prune_interval" json:"prune_interval"`
}

func InitStoreConfig() StoreConfig {
	cfg := StoreConfig{
		Path:          "./data/oi-radar.db",
		Retention:     7 * 24 * time.Hour,
		MaxRecords:    100_000,
		PruneInterval: 10 * time.Minute,
	}
	if err := viper.UnmarshalKey("store", &cfg); err != nil {
		panic(err)
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = 10 * time.Minute
	}
	return cfg
}

// InitDB opens the sqlite file in WAL mode so the HTTP readers never block
// the scan loops writing alerts.
func InitDB(cfg StoreConfig) *gorm.DB {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			panic(err)
		}
	}
	dsn := cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	return db
}

func InitAlertRepo(db *gorm.DB, cfg StoreConfig) repo.AlertRepo {
	return repo.NewAlertRepo(db,
		repo.WithRetention(cfg.Retention),
		repo.WithMaxRecords(cfg.MaxRecords),
	)
}
