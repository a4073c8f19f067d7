package analytics

import (
	"database/sql"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/pkg/logger"
)

// Connect opens the ClickHouse analytics store through the database/sql
// interface. All gateway queries are read-only SELECTs.
func Connect(cfg config.AnalyticsConfig, log *logger.Logger) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
	})

	if err := conn.Ping(); err != nil {
		log.Error().Err(err).Msg("Failed to ping ClickHouse")
		return nil, err
	}

	log.Info().
		Strs("addr", cfg.Addr).
		Str("database", cfg.Database).
		Msg("Connected to ClickHouse")

	return conn, nil
}

// Gateway runs the analytics queries that feed a generation run
type Gateway struct {
	db  *sql.DB
	log *logger.Logger
}

func NewGateway(db *sql.DB, log *logger.Logger) *Gateway {
	return &Gateway{db: db, log: log.WithComponent("analytics")}
}
