package store

import (
	"time"

	"emolens/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	// AppName is reported to postgres as application_name and to clickhouse as client info
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled   bool
	URL       string
	MaxConns  int32
	LogSQL    bool
	SlowQuery time.Duration

	// ConnectRetries and PingTimeout bound the startup wait for postgres
	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled     bool
	URL         string
	DialTimeout time.Duration // default 10s
}

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* variables.
// Postgres is enabled when its DBURL is set, clickhouse likewise.
func ConfigFromEnv(c config.Conf, appName string) Config {
	pg := c.Prefix("SERVICE_PGSQL_")
	ch := c.Prefix("SERVICE_CLICKHOUSE_")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pg.Has("DBURL"),
			URL:            pg.MayString("DBURL", ""),
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQuery:      pg.MayDuration("SLOW_QUERY", 500*time.Millisecond),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:     ch.Has("DBURL"),
			URL:         ch.MayString("DBURL", ""),
			DialTimeout: ch.MayDuration("DIAL_TIMEOUT", 10*time.Second),
		},
	}
}
