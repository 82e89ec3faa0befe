package db

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exposes pgxpool statistics as Prometheus gauges.
// Stats are read from the pool at scrape time, so values are always
// current even between sync runs.
type PoolStatsCollector struct {
	pool  *pgxpool.Pool
	descs []poolStatDesc
}

type poolStatDesc struct {
	desc *prometheus.Desc
	read func(*pgxpool.Stat) float64
}

// NewPoolStatsCollector builds a collector for the given pool. The
// serviceName becomes a constant "service" label so dashboards can
// tell the sync surface apart from any future consumers of the pool.
func NewPoolStatsCollector(pool *pgxpool.Pool, namespace, serviceName string) *PoolStatsCollector {
	labels := prometheus.Labels{"service": serviceName}
	gauge := func(name, help string, read func(*pgxpool.Stat) float64) poolStatDesc {
		return poolStatDesc{
			desc: prometheus.NewDesc(
				prometheus.BuildFQName(namespace, "db_pool", name),
				help,
				nil,
				labels,
			),
			read: read,
		}
	}

	return &PoolStatsCollector{
		pool: pool,
		descs: []poolStatDesc{
			gauge("total_conns", "Total number of connections currently open in the pool",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("idle_conns", "Number of idle connections in the pool",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			gauge("acquired_conns", "Number of connections currently acquired from the pool",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("max_conns", "Maximum number of connections allowed in the pool",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d.desc
	}
}

// Collect implements prometheus.Collector. A nil pool yields no metrics.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	stats := c.pool.Stat()
	for _, d := range c.descs {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.GaugeValue, d.read(stats))
	}
}

// RegisterPoolStatsCollector registers a collector for the pool with the
// default registry. Re-registering the same pool is not an error, so the
// helper is safe to call from command setup paths that may run twice in
// one process.
func RegisterPoolStatsCollector(pool *pgxpool.Pool, namespace, serviceName string) (*PoolStatsCollector, error) {
	collector := NewPoolStatsCollector(pool, namespace, serviceName)
	if err := prometheus.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return nil, err
		}
	}
	return collector, nil
}
