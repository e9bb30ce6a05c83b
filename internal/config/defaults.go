package config

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&ContentDefaultApplier{},
		&OutputDefaultApplier{},
		&CacheDefaultApplier{},
		&DeployDefaultApplier{},
		&RuntimeDefaultApplier{},
	}
}

// applyDefaults normalizes enumerations and fills unset fields. Unknown
// enumeration values are left for Validate to report.
func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers() {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ContentDefaultApplier handles content store defaults.
type ContentDefaultApplier struct{}

func (*ContentDefaultApplier) Domain() string { return "content" }

func (*ContentDefaultApplier) ApplyDefaults(cfg *Config) error {
	c := &cfg.Content
	if c.Source == "" {
		c.Source = ContentDir
		if c.MongoURL != "" {
			c.Source = ContentMongo
		}
	} else if s, err := contentSources.NormalizeWithError(string(c.Source)); err == nil {
		c.Source = s
	}
	if c.Database == "" {
		c.Database = "ndtest"
	}
	if c.GroupsCollection == "" {
		c.GroupsCollection = "series"
	}
	if c.RecordsCollection == "" {
		c.RecordsCollection = "pages"
	}
	if c.Dir == "" {
		c.Dir = "content"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	return nil
}

// OutputDefaultApplier handles output, template and asset defaults.
type OutputDefaultApplier struct{}

func (*OutputDefaultApplier) Domain() string { return "output" }

func (*OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Path == "" {
		cfg.Output.Path = "./public"
	}
	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = "layouts"
	}
	return nil
}

// CacheDefaultApplier handles cache backend defaults.
type CacheDefaultApplier struct{}

func (*CacheDefaultApplier) Domain() string { return "cache" }

func (*CacheDefaultApplier) ApplyDefaults(cfg *Config) error {
	if t, err := cacheTypes.NormalizeWithError(string(cfg.Cache.Type)); err == nil {
		cfg.Cache.Type = t
	}
	if cfg.Cache.Bucket == "" {
		cfg.Cache.Bucket = "seriesgen"
	}
	return nil
}

// DeployDefaultApplier handles deploy target defaults.
type DeployDefaultApplier struct{}

func (*DeployDefaultApplier) Domain() string { return "deploy" }

func (*DeployDefaultApplier) ApplyDefaults(cfg *Config) error {
	if t, err := deployTargets.NormalizeWithError(string(cfg.Deploy.Target)); err == nil {
		cfg.Deploy.Target = t
	}
	if cfg.Deploy.FTP.Timeout == "" {
		cfg.Deploy.FTP.Timeout = "30s"
	}
	if cfg.Deploy.Hosted.APIURL == "" {
		cfg.Deploy.Hosted.APIURL = "https://api.netlify.com/api/v1"
	}
	if cfg.Deploy.Hosted.Concurrency <= 0 {
		cfg.Deploy.Hosted.Concurrency = 4
	}
	return nil
}

// RuntimeDefaultApplier handles debug server, daemon and retry defaults.
type RuntimeDefaultApplier struct{}

func (*RuntimeDefaultApplier) Domain() string { return "runtime" }

func (*RuntimeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Debug.Port == 0 {
		cfg.Debug.Port = 8000
	}
	if cfg.Daemon.Interval == "" {
		cfg.Daemon.Interval = "15m"
	}
	cfg.Retry.Backoff = NormalizeRetryBackoff(string(cfg.Retry.Backoff))
	if cfg.Retry.InitialDelay == "" {
		cfg.Retry.InitialDelay = "1s"
	}
	if cfg.Retry.MaxDelay == "" {
		cfg.Retry.MaxDelay = "30s"
	}
	// 0 selects the default, a negative count disables retries.
	switch {
	case cfg.Retry.MaxRetries == 0:
		cfg.Retry.MaxRetries = 2
	case cfg.Retry.MaxRetries < 0:
		cfg.Retry.MaxRetries = 0
	}
	return nil
}
