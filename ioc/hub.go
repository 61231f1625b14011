package ioc

import (
	"encoding/json"

	"github.com/KNICEX/oi-radar/internal/service/broadcast"
	"github.com/spf13/viper"
)

func InitHubConfig() broadcast.Config {
	cfg := broadcast.Config{
		ReplaySize:      broadcast.DefaultReplaySize,
		SubscriberDepth: broadcast.DefaultDepth,
	}
	if err := viper.UnmarshalKey("hub", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

// InitLogHub buffers recent log lines for /ws/logs.
func InitLogHub() *broadcast.Hub[json.RawMessage] {
	cfg := broadcast.Config{
		ReplaySize:      200,
		SubscriberDepth: broadcast.DefaultDepth,
	}
	if err := viper.UnmarshalKey("log.stream", &cfg); err != nil {
		panic(err)
	}
	return broadcast.NewHub[json.RawMessage](cfg)
}
