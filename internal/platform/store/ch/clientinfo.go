package ch

import (
	"os"
	"runtime"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"emolens/internal/core/version"
)

// ClientInfo names this binary in clickhouse's system.query_log: the emolens version,
// the service with its commit, the go runtime and the host.
func ClientInfo(bi version.BuildInfo) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: "emolens", Version: orUnknown(bi.Version)},
		{Name: orUnknown(bi.Service), Version: orUnknown(bi.Commit)},
		{Name: "go", Version: runtime.Version()},
		{Name: "host", Version: orUnknown(host)},
	}}
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" || s == "none" {
		return "unknown"
	}
	return s
}
