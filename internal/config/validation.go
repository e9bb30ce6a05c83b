package config

import (
	"time"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

// Validate checks the configuration for contradictions and missing backend
// parameters.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateContent,
		c.validateOutput,
		c.validateCache,
		c.validateDeploy,
		c.validateRuntime,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func invalid(msg, field string, value any) error {
	return errors.ConfigError(msg).WithContext("field", field).WithContext("value", value).Build()
}

func (c *Config) validateContent() error {
	switch c.Content.Source {
	case ContentMongo:
		if c.Content.MongoURL == "" {
			return invalid("mongo content source requires a url", "content.mongo_url", "")
		}
	case ContentDir:
		if c.Content.Dir == "" {
			return invalid("dir content source requires a directory", "content.dir", "")
		}
	default:
		return invalid("unknown content source", "content.source", c.Content.Source)
	}
	return checkDuration("content.timeout", c.Content.Timeout)
}

func (c *Config) validateOutput() error {
	if c.Output.URLPrefix != "" && c.Output.EnvURLPrefix != "" {
		return errors.ConfigError("url_prefix and env_url_prefix are mutually exclusive").
			WithContext("url_prefix", c.Output.URLPrefix).
			WithContext("env_url_prefix", c.Output.EnvURLPrefix).Build()
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Type {
	case CacheNone, CacheMemory:
	case CacheNATS:
		if c.Cache.NATSURL == "" {
			return invalid("nats cache requires nats_url", "cache.nats_url", "")
		}
	case CacheSQLite:
		if c.Cache.Path == "" {
			return invalid("sqlite cache requires path", "cache.path", "")
		}
	default:
		return invalid("unknown cache type", "cache.type", c.Cache.Type)
	}
	return nil
}

func (c *Config) validateDeploy() error {
	switch c.Deploy.Target {
	case DeployFS, DeployDebug:
	case DeployFTP:
		if c.Deploy.FTP.Host == "" {
			return invalid("ftp deploy requires host", "deploy.ftp.host", "")
		}
		if err := checkDuration("deploy.ftp.timeout", c.Deploy.FTP.Timeout); err != nil {
			return err
		}
	case DeployHosted:
		if c.Deploy.Hosted.Token == "" {
			return invalid("hosted deploy requires token", "deploy.hosted.token", "")
		}
		if c.Deploy.Hosted.SiteID == "" {
			return invalid("hosted deploy requires site_id", "deploy.hosted.site_id", "")
		}
	default:
		return invalid("unknown deploy target", "deploy.target", c.Deploy.Target)
	}
	return nil
}

func (c *Config) validateRuntime() error {
	if c.Debug.Port < 1 || c.Debug.Port > 65535 {
		return invalid("debug port out of range", "debug.port", c.Debug.Port)
	}
	for field, v := range map[string]string{
		"daemon.interval":     c.Daemon.Interval,
		"retry.initial_delay": c.Retry.InitialDelay,
		"retry.max_delay":     c.Retry.MaxDelay,
	} {
		if err := checkDuration(field, v); err != nil {
			return err
		}
	}
	return nil
}

func checkDuration(field, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return invalid("invalid duration", field, v)
	}
	return nil
}
