package config

import (
	"fmt"
	"strconv"

	"LoadCoach/pkg/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LOADCOACH_"

type envSetter func(c *Config, v string) error

func str(dst func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolean(dst func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envOverrides = map[string]envSetter{
	"ENV":                 str(func(c *Config) *string { return &c.App.Environment }),
	"SERVER_PORT":         integer(func(c *Config) *int { return &c.Server.Port }),
	"LOG_LEVEL":           str(func(c *Config) *string { return &c.Logger.Level }),
	"LOG_FORMAT":          str(func(c *Config) *string { return &c.Logger.Format }),
	"REDIS_HOST":          str(func(c *Config) *string { return &c.Redis.Host }),
	"REDIS_PORT":          integer(func(c *Config) *int { return &c.Redis.Port }),
	"REDIS_PASSWORD":      str(func(c *Config) *string { return &c.Redis.Password }),
	"CLICKHOUSE_HOST":     str(func(c *Config) *string { return &c.ClickHouse.Host }),
	"CLICKHOUSE_PORT":     integer(func(c *Config) *int { return &c.ClickHouse.Port }),
	"CLICKHOUSE_USER":     str(func(c *Config) *string { return &c.ClickHouse.User }),
	"CLICKHOUSE_PASSWORD": str(func(c *Config) *string { return &c.ClickHouse.Password }),
	"SQLITE_PATH":         str(func(c *Config) *string { return &c.SQLite.Path }),
	"HISTORY_BACKEND":     str(func(c *Config) *string { return &c.History.Backend }),
	"HISTORY_URL":         str(func(c *Config) *string { return &c.History.BaseURL }),
	"HISTORY_TOKEN":       str(func(c *Config) *string { return &c.History.Token }),
	"ANALYTICS_BACKEND":   str(func(c *Config) *string { return &c.Analytics.Backend }),
	"CACHE_BACKEND":       str(func(c *Config) *string { return &c.Cache.Backend }),
	"MODEL_STORE":         str(func(c *Config) *string { return &c.Model.Store }),
	"QUEUE_BACKEND":       str(func(c *Config) *string { return &c.Queue.Backend }),
	"EVENTS_ENABLED":      boolean(func(c *Config) *bool { return &c.Events.Enabled }),
	"KAFKA_BROKERS": func(c *Config, v string) error {
		c.Kafka.Brokers = util.SplitCSV(v)
		return nil
	},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for key, set := range envOverrides {
		v, ok := lookup(EnvPrefix + key)
		if !ok || v == "" {
			continue
		}
		if err := set(c, v); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return nil
}

