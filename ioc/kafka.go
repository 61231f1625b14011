package ioc

import (
	"github.com/KNICEX/oi-radar/internal/service/notification"
	"github.com/spf13/viper"
)

// InitKafkaNotifier returns nil when no brokers are configured.
func InitKafkaNotifier() *notification.KafkaNotifier {
	var cfg notification.KafkaConfig
	if err := viper.UnmarshalKey("kafka", &cfg); err != nil {
		panic(err)
	}
	if len(cfg.Brokers) == 0 {
		return nil
	}
	n, err := notification.NewKafkaNotifier(cfg)
	if err != nil {
		panic(err)
	}
	return n
}
