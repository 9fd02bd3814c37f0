// Package raw reads environment variables during bootstrap.
// It must not import the logger, which reads its own options through it.
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a prefixed view over the environment, e.g. "LOG_" or "RUNLOG_"
type Conf struct{ prefix string }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix nests p under the current prefix
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) value(k string) string { return strings.TrimSpace(os.Getenv(c.prefix + k)) }

// String returns the trimmed value, or def when unset or blank
func (c Conf) String(k, def string) string {
	if v := c.value(k); v != "" {
		return v
	}
	return def
}

// Lower is String folded to lower case
func (c Conf) Lower(k, def string) string { return strings.ToLower(c.String(k, def)) }

// Bool accepts 1, true and yes as true; any other non-blank value is false
func (c Conf) Bool(k string, def bool) bool {
	switch v := strings.ToLower(c.value(k)); v {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Int parses a non-negative integer; anything else yields def
func (c Conf) Int(k string, def int) int {
	n, err := strconv.Atoi(c.value(k))
	if err != nil || n < 0 {
		return def
	}
	return n
}
