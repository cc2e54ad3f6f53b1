package scheduler

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// NewPoolMonitor logs connection pool usage on cronSpec.
func NewPoolMonitor(cronSpec string, pool PoolStater, logger *logrus.Entry) (*ScheduledTask, error) {
	return NewScheduledTask("pool-stats", cronSpec, logger, func() {
		LogPoolStats(pool, logger)
	})
}

func LogPoolStats(pool PoolStater, logger *logrus.Entry) {
	stat := pool.Stat()
	logger.WithFields(logrus.Fields{
		"total_conns":    stat.TotalConns(),
		"idle_conns":     stat.IdleConns(),
		"acquired_conns": stat.AcquiredConns(),
		"max_conns":      stat.MaxConns(),
		"acquire_count":  stat.AcquireCount(),
		"empty_acquires": stat.EmptyAcquireCount(),
	}).Info("database pool stats")
}
