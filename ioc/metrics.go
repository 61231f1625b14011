package ioc

import (
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func InitAggregator(reg *prometheus.Registry) *status.Aggregator {
	return status.NewAggregator(status.WithRecorder(status.NewRecorder(reg)))
}
