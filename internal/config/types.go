package config

import "git.home.luguber.info/inful/seriesgen/internal/foundation/normalization"

// ContentSource names a content store.
type ContentSource string

const (
	ContentMongo ContentSource = "mongo"
	ContentDir   ContentSource = "dir"
)

// CacheType names a cache backend.
type CacheType string

const (
	CacheNone   CacheType = "none"
	CacheMemory CacheType = "memory"
	CacheNATS   CacheType = "nats"
	CacheSQLite CacheType = "sqlite"
)

// DeployTarget names where a build is published.
type DeployTarget string

const (
	DeployFS     DeployTarget = "fs"
	DeployFTP    DeployTarget = "ftp"
	DeployHosted DeployTarget = "hosted"
	DeployDebug  DeployTarget = "debug"
)

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var (
	contentSources = normalization.NewNormalizer(map[string]ContentSource{
		"mongo": ContentMongo,
		"dir":   ContentDir,
	}, "")
	cacheTypes = normalization.NewNormalizer(map[string]CacheType{
		"none":   CacheNone,
		"memory": CacheMemory,
		"nats":   CacheNATS,
		"sqlite": CacheSQLite,
	}, CacheNone)
	deployTargets = normalization.NewNormalizer(map[string]DeployTarget{
		"fs":     DeployFS,
		"ftp":    DeployFTP,
		"hosted": DeployHosted,
		"debug":  DeployDebug,
	}, DeployFS)
	backoffModes = normalization.NewNormalizer(map[string]RetryBackoffMode{
		"fixed":       RetryBackoffFixed,
		"linear":      RetryBackoffLinear,
		"exponential": RetryBackoffExponential,
	}, RetryBackoffLinear)
)

// NormalizeRetryBackoff converts user input (case-insensitive) into a typed
// mode, falling back to linear.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return backoffModes.Normalize(raw)
}
