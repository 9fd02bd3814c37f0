// Package config reads process settings from environment variables. Every module reads
// its own namespace (CORE_ANALYSE_, CORE_MODEL_, SERVICE_PGSQL_) through a prefixed Conf.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"emolens/internal/platform/logger"
)

// Conf is a namespaced view over the environment
type Conf struct{ prefix string }

// New creates a root Conf
func New() Conf { return Conf{} }

// Prefix creates a child Conf, e.g. cfg.Prefix("CORE_MODEL_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

// lookup returns the trimmed value; blank counts as unset
func (c Conf) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.key(key)))
	return v, v != ""
}

// Has reports whether the key is set to a non-blank value
func (c Conf) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Missing returns the fully qualified names of keys that are unset or blank
func (c Conf) Missing(keys ...string) []string {
	var out []string
	for _, k := range keys {
		if !c.Has(k) {
			out = append(out, c.key(k))
		}
	}
	return out
}

// may parses key with parse; unset yields def, a bad value is logged and yields def
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s, ok := c.lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().
			Str("key", c.key(key)).
			Str("value", s).
			Interface("default", def).
			Msgf("invalid %T; using default", def)
		return def
	}
	return v
}

// MayString returns the value or def
func (c Conf) MayString(key, def string) string {
	return may(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt returns the value or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayFloat64 returns the value or def
func (c Conf) MayFloat64(key string, def float64) float64 {
	return may(c, key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// MayBool returns the value or def; accepts 1/0, true/false, t/f
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration returns the value or def; values use time.ParseDuration syntax (250ms, 2s, 1h)
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayEnum returns the allowed spelling matching the value case-insensitively, or def when
// unset. A value outside allowed is a deployment error and panics.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
