// Package config loads the YAML configuration of a seriesgen site.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
)

// Config is the complete site configuration.
type Config struct {
	Content    ContentConfig    `yaml:"content"`
	Output     OutputConfig     `yaml:"output"`
	Site       SiteConfig       `yaml:"site"`
	Features   FeaturesConfig   `yaml:"features"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Assets     AssetsConfig     `yaml:"assets"`
	Cache      CacheConfig      `yaml:"cache"`
	Deploy     DeployConfig     `yaml:"deploy"`
	Debug      DebugConfig      `yaml:"debug"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Retry      RetryConfig      `yaml:"retry"`
}

// ContentConfig selects the content store and which groups to build.
type ContentConfig struct {
	Source            ContentSource `yaml:"source"` // mongo|dir
	MongoURL          string        `yaml:"mongo_url,omitempty"`
	Database          string        `yaml:"database,omitempty"`
	GroupsCollection  string        `yaml:"groups_collection,omitempty"`
	RecordsCollection string        `yaml:"records_collection,omitempty"`
	Dir               string        `yaml:"dir,omitempty"`
	Timeout           string        `yaml:"timeout,omitempty"`
	// Groups restricts the build to the named groups; empty means all.
	Groups []string `yaml:"groups,omitempty"`
	// MinStatus drops groups and records whose status is lower.
	MinStatus *int `yaml:"min_status,omitempty"`
}

// OutputConfig controls where and how pages are written.
type OutputConfig struct {
	Path string `yaml:"path"`
	// URLPrefix prefixes URLs and is also the output subdirectory.
	URLPrefix string `yaml:"url_prefix,omitempty"`
	// EnvURLPrefix prefixes URLs only, for hosts that mount the site below a path.
	EnvURLPrefix string `yaml:"env_url_prefix,omitempty"`
	GroupPrefix  bool   `yaml:"group_prefix"`
	IncludeRaw   bool   `yaml:"include_raw"`
	StaticDir    string `yaml:"static_dir,omitempty"`
}

// PathPrefix is the prefix applied to generated URLs.
func (o OutputConfig) PathPrefix() string {
	if o.URLPrefix != "" {
		return o.URLPrefix
	}
	return o.EnvURLPrefix
}

type SiteConfig struct {
	// Domain is the canonical origin used for discussion thread URLs.
	Domain string `yaml:"domain,omitempty"`
	// IndexHeading is raw HTML placed above the group index.
	IndexHeading string `yaml:"index_heading,omitempty"`
}

type FeaturesConfig struct {
	Discussion bool `yaml:"discussion"`
	Analytics  bool `yaml:"analytics"`
	Social     bool `yaml:"social"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type AssetsConfig struct {
	ImageDir string `yaml:"image_dir,omitempty"`
}

// CacheConfig configures where build state survives between runs.
type CacheConfig struct {
	Type    CacheType `yaml:"type"`
	NATSURL string    `yaml:"nats_url,omitempty"`
	Bucket  string    `yaml:"bucket,omitempty"`
	Path    string    `yaml:"path,omitempty"`
}

// DeployConfig selects the deploy target.
type DeployConfig struct {
	Target DeployTarget `yaml:"target"`
	FTP    FTPConfig    `yaml:"ftp,omitempty"`
	Hosted HostedConfig `yaml:"hosted,omitempty"`
}

type FTPConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Timeout  string `yaml:"timeout,omitempty"`
}

// HostedConfig configures the hash-diff deploy API.
type HostedConfig struct {
	APIURL      string `yaml:"api_url"`
	Token       string `yaml:"token"`
	SiteID      string `yaml:"site_id"`
	Concurrency int    `yaml:"concurrency"`
}

type DebugConfig struct {
	Port           int  `yaml:"port"`
	LiveReload     bool `yaml:"live_reload"`
	WatchTemplates bool `yaml:"watch_templates"`
}

type DaemonConfig struct {
	Interval string `yaml:"interval"`
}

type MonitoringConfig struct {
	Metrics bool `yaml:"metrics"`
}

// RetryConfig configures retries of transient deploy failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff"`
	InitialDelay string           `yaml:"initial_delay"`
	MaxDelay     string           `yaml:"max_delay"`
	MaxRetries   int              `yaml:"max_retries"`
}

// Load reads path, then each overlay that exists on top of it, expanding
// ${VAR} references from the environment (after .env files are loaded).
// Defaults are applied and the result validated.
func Load(path string, overlays ...string) (*Config, error) {
	loadEnvFiles()

	var cfg Config
	if err := decodeFile(path, &cfg); err != nil {
		return nil, err
	}
	for _, overlay := range overlays {
		if overlay == "" {
			continue
		}
		err := decodeFile(overlay, &cfg)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes data as a complete configuration with defaults applied and
// validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := decode(data, "", &cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.NotFoundError("configuration file not found").WithContext("path", path).Build()
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "read configuration").
			WithContext("path", path).Build()
	}
	return decode(data, path, cfg)
}

func decode(data []byte, path string, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "parse configuration").
			WithContext("path", path).Fatal().Build()
	}
	return nil
}

// ContentTimeout returns the content store timeout.
func (c *Config) ContentTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Content.Timeout)
	return d
}

// DaemonInterval returns the daemon build interval.
func (c *Config) DaemonInterval() time.Duration {
	d, _ := time.ParseDuration(c.Daemon.Interval)
	return d
}

// FTPTimeout returns the FTP dial timeout.
func (c *Config) FTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Deploy.FTP.Timeout)
	return d
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}

	example := Config{
		Content: ContentConfig{
			Source:   ContentMongo,
			MongoURL: "${MONGO_URL}",
			Database: "ndtest",
		},
		Output: OutputConfig{
			Path:        "./public",
			GroupPrefix: true,
			IncludeRaw:  true,
			StaticDir:   "static",
		},
		Site:      SiteConfig{Domain: "https://example.com"},
		Features:  FeaturesConfig{Discussion: true},
		Templates: TemplatesConfig{Dir: "layouts"},
		Assets:    AssetsConfig{ImageDir: "images"},
		Cache:     CacheConfig{Type: CacheSQLite, Path: "seriesgen.db"},
		Deploy:    DeployConfig{Target: DeployFS},
		Debug:     DebugConfig{Port: 8000, LiveReload: true, WatchTemplates: true},
		Daemon:    DaemonConfig{Interval: "15m"},
		Retry:     RetryConfig{Backoff: RetryBackoffLinear, InitialDelay: "1s", MaxDelay: "30s", MaxRetries: 2},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration").
			WithContext("path", path).Build()
	}
	return nil
}
