package ioc

import (
	"encoding/json"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/KNICEX/oi-radar/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ConfigView is the effective configuration served by /api/config.
// Credentials are never part of it.
type ConfigView struct {
	Radar RadarConfig      `json:"radar"`
	Store StoreConfig      `json:"store"`
	Hub   broadcast.Config `json:"hub"`
	HTTP  web.Config       `json:"http"`
	Kafka bool             `json:"kafka_enabled"`
}

func InitWebConfig() web.Config {
	cfg := web.Config{
		Addr:            ":8080",
		ShutdownTimeout: 5 * time.Second,
	}
	if err := viper.UnmarshalKey("http", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func InitWebServer(cfg web.Config, alerts repo.AlertRepo, hub *broadcast.Hub[radar.Alert],
	logs *broadcast.Hub[json.RawMessage], agg *status.Aggregator, radarMonitor *monitor.RadarMonitor,
	symbols repo.SymbolRepo, view ConfigView, reg *prometheus.Registry, logger zerolog.Logger) *web.Server {
	gin.SetMode(web.GinMode(logger.GetLevel()))
	return web.NewServer(cfg, alerts, hub, agg, radarMonitor,
		web.WithConfigView(view),
		web.WithGatherer(reg),
		web.WithLogger(logger),
		web.WithSymbolRepo(symbols),
		web.WithPolicyTuner(radarMonitor),
		web.WithLogHub(logs),
	)
}
