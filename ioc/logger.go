package ioc

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// InitLogger builds the process logger. Every line is also copied into logs,
// which backs the /ws/logs feed, in JSON regardless of the stdout format.
func InitLogger(logs *broadcast.Hub[json.RawMessage]) zerolog.Logger {
	type Config struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	}

	cfg := Config{Level: "info", Format: "json"}
	if err := viper.UnmarshalKey("log", &cfg); err != nil {
		panic(err)
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		panic(err)
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	if logs != nil {
		out = zerolog.MultiLevelWriter(out, broadcast.NewLogWriter(logs))
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "oi-radar").Logger()
}
