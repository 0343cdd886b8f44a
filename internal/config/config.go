package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "LITERATURE_HARVESTER_CONFIG"
	catalogURIEnv       = "CATALOG_URI"
	catalogDatabaseEnv  = "CATALOG_DATABASE"
	catalogResetEnv     = "CATALOG_RESET"
	catalogConfirmEnv   = "CATALOG_RESET_CONFIRM"
	archiveEndpointEnv  = "ARCHIVE_ENDPOINT"
	archiveBucketEnv    = "ARCHIVE_BUCKET"
	archivePrefixEnv    = "ARCHIVE_PREFIX"
	archiveAccessKeyEnv = "ARCHIVE_ACCESS_KEY"
	archiveSecretKeyEnv = "ARCHIVE_SECRET_KEY"
	archiveUseSSLEnv    = "ARCHIVE_USE_SSL"
	feedBaseURLEnv      = "FEED_BASE_URL"
	generationKeyEnv    = "GENERATION_API_KEY"
	embeddingKeyEnv     = "EMBEDDING_API_KEY"
	backgroundTasksEnv  = "BACKGROUND_TASKS"
	httpAddrEnv         = "HTTP_ADDR"
	logLevelEnv         = "LOG_LEVEL"

	defaultEpochDate = "2025-08-01"
	dateLayout       = "2006-01-02"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Feed       FeedConfig       `yaml:"feed"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Query      QueryConfig      `yaml:"query"`
	Background BackgroundConfig `yaml:"background"`
}

// LoggingConfig selects handler level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig describes the listen address of the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// CatalogConfig describes the document-store connection.
type CatalogConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	EpochDate  string `yaml:"epochDate"`
}

// Epoch resolves the configured epoch date used when the catalog is empty.
func (c CatalogConfig) Epoch() time.Time {
	t, err := time.Parse(dateLayout, c.EpochDate)
	if err != nil {
		t, _ = time.Parse(dateLayout, defaultEpochDate)
	}
	return t
}

// ArchiveConfig describes the S3-compatible object store. UseSSL is a
// pointer so an explicit `useSSL: false` (local minio) is distinguishable
// from the field being absent.
type ArchiveConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    *bool  `yaml:"useSSL"`
}

// Secure resolves the TLS setting; unset means TLS on.
func (a ArchiveConfig) Secure() bool {
	if a.UseSSL == nil {
		return true
	}
	return *a.UseSSL
}

// FeedConfig describes the paginated upstream abstract API.
type FeedConfig struct {
	BaseURL  string `yaml:"baseUrl"`
	PageSize int    `yaml:"pageSize"`
	MaxPages int    `yaml:"maxPages"`
}

// EmbeddingConfig wires the embeddings endpoint used for ranking.
type EmbeddingConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// GenerationConfig wires the chat-completion endpoint used by the reducer.
// Temperature is a pointer so `temperature: 0` (greedy decoding) is
// distinguishable from the field being absent.
type GenerationConfig struct {
	Endpoint          string   `yaml:"endpoint"`
	Model             string   `yaml:"model"`
	APIKey            string   `yaml:"apiKey"`
	SystemPrompt      string   `yaml:"systemPrompt"`
	ContextWindow     int      `yaml:"contextWindow"`
	MaxNewTokens      int      `yaml:"maxNewTokens"`
	Temperature       *float64 `yaml:"temperature"`
	RepetitionPenalty float64  `yaml:"repetitionPenalty"`
}

// SamplingTemperature resolves the temperature; unset means 0.7.
func (g GenerationConfig) SamplingTemperature() float64 {
	if g.Temperature == nil {
		return 0.7
	}
	return *g.Temperature
}

// QueryConfig holds retrieval defaults.
type QueryConfig struct {
	TopK int `yaml:"topK"`
}

// BackgroundConfig gates and paces the lifecycle loops.
type BackgroundConfig struct {
	Enabled         bool   `yaml:"enabled"`
	IngestInterval  int    `yaml:"ingestIntervalSeconds"`
	CleanupInterval int    `yaml:"cleanupIntervalSeconds"`
	ReportDir       string `yaml:"reportDir"`
	ReportTTL       int    `yaml:"reportTTLSeconds"`
	Reset           bool   `yaml:"reset"`
	ResetConfirm    string `yaml:"resetConfirm"`
}

// IngestEvery returns the re-ingestion cycle interval.
func (b BackgroundConfig) IngestEvery() time.Duration {
	return time.Duration(b.IngestInterval) * time.Second
}

// CleanupEvery returns the report-cleanup cycle interval.
func (b BackgroundConfig) CleanupEvery() time.Duration {
	return time.Duration(b.CleanupInterval) * time.Second
}

// TTL returns the report retention duration.
func (b BackgroundConfig) TTL() time.Duration {
	return time.Duration(b.ReportTTL) * time.Second
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Catalog.URI, catalogURIEnv)
	setString(&c.Catalog.Database, catalogDatabaseEnv)
	setBool(&c.Background.Reset, catalogResetEnv)
	setString(&c.Background.ResetConfirm, catalogConfirmEnv)
	setString(&c.Archive.Endpoint, archiveEndpointEnv)
	setString(&c.Archive.Bucket, archiveBucketEnv)
	setString(&c.Archive.Prefix, archivePrefixEnv)
	setString(&c.Archive.AccessKey, archiveAccessKeyEnv)
	setString(&c.Archive.SecretKey, archiveSecretKeyEnv)
	setBoolPtr(&c.Archive.UseSSL, archiveUseSSLEnv)
	setString(&c.Feed.BaseURL, feedBaseURLEnv)
	setString(&c.Generation.APIKey, generationKeyEnv)
	setString(&c.Embedding.APIKey, embeddingKeyEnv)
	setBool(&c.Background.Enabled, backgroundTasksEnv)
	setString(&c.HTTP.Addr, httpAddrEnv)
	setString(&c.Logging.Level, logLevelEnv)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("config: invalid boolean %q for %s, ignoring", v, env)
			return
		}
		*dst = parsed
	}
}

func setBoolPtr(dst **bool, env string) {
	if v := os.Getenv(env); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("config: invalid boolean %q for %s, ignoring", v, env)
			return
		}
		*dst = &parsed
	}
}

func mergeConfig(base, override Config) Config {
	mergeString(&base.Logging.Level, override.Logging.Level)
	mergeString(&base.Logging.Format, override.Logging.Format)
	mergeString(&base.HTTP.Addr, override.HTTP.Addr)

	mergeString(&base.Catalog.URI, override.Catalog.URI)
	mergeString(&base.Catalog.Database, override.Catalog.Database)
	mergeString(&base.Catalog.Collection, override.Catalog.Collection)
	mergeString(&base.Catalog.EpochDate, override.Catalog.EpochDate)

	mergeString(&base.Archive.Endpoint, override.Archive.Endpoint)
	mergeString(&base.Archive.Bucket, override.Archive.Bucket)
	mergeString(&base.Archive.Prefix, override.Archive.Prefix)
	mergeString(&base.Archive.AccessKey, override.Archive.AccessKey)
	mergeString(&base.Archive.SecretKey, override.Archive.SecretKey)
	if override.Archive.UseSSL != nil {
		base.Archive.UseSSL = override.Archive.UseSSL
	}

	mergeString(&base.Feed.BaseURL, override.Feed.BaseURL)
	mergeInt(&base.Feed.PageSize, override.Feed.PageSize)
	mergeInt(&base.Feed.MaxPages, override.Feed.MaxPages)

	mergeString(&base.Embedding.Endpoint, override.Embedding.Endpoint)
	mergeString(&base.Embedding.Model, override.Embedding.Model)
	mergeString(&base.Embedding.APIKey, override.Embedding.APIKey)

	mergeString(&base.Generation.Endpoint, override.Generation.Endpoint)
	mergeString(&base.Generation.Model, override.Generation.Model)
	mergeString(&base.Generation.APIKey, override.Generation.APIKey)
	mergeString(&base.Generation.SystemPrompt, override.Generation.SystemPrompt)
	mergeInt(&base.Generation.ContextWindow, override.Generation.ContextWindow)
	mergeInt(&base.Generation.MaxNewTokens, override.Generation.MaxNewTokens)
	if override.Generation.Temperature != nil {
		base.Generation.Temperature = override.Generation.Temperature
	}
	if override.Generation.RepetitionPenalty != 0 {
		base.Generation.RepetitionPenalty = override.Generation.RepetitionPenalty
	}

	mergeInt(&base.Query.TopK, override.Query.TopK)

	if override.Background.Enabled {
		base.Background.Enabled = true
	}
	mergeInt(&base.Background.IngestInterval, override.Background.IngestInterval)
	mergeInt(&base.Background.CleanupInterval, override.Background.CleanupInterval)
	mergeString(&base.Background.ReportDir, override.Background.ReportDir)
	mergeInt(&base.Background.ReportTTL, override.Background.ReportTTL)
	if override.Background.Reset {
		base.Background.Reset = true
	}
	mergeString(&base.Background.ResetConfirm, override.Background.ResetConfirm)

	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Catalog: CatalogConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "literature_db",
			Collection: "abstracts",
			EpochDate:  defaultEpochDate,
		},
		Archive: ArchiveConfig{
			Endpoint: "s3.amazonaws.com",
			Bucket:   "literature-archive",
			Prefix:   "abstracts",
		},
		Feed: FeedConfig{
			BaseURL:  "https://api.biorxiv.org/details/biorxiv",
			PageSize: 100,
			MaxPages: 20,
		},
		Embedding: EmbeddingConfig{
			Endpoint: "https://api.openai.com/v1/embeddings",
			Model:    "text-embedding-3-small",
		},
		Generation: GenerationConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			SystemPrompt:      "You maintain a running literature summary over scientific abstracts.",
			ContextWindow:     2048,
			MaxNewTokens:      512,
			RepetitionPenalty: 1.1,
		},
		Query: QueryConfig{TopK: 5},
		Background: BackgroundConfig{
			Enabled:         false,
			IngestInterval:  86400,
			CleanupInterval: 86400,
			ReportDir:       "reports",
			ReportTTL:       86400,
			Reset:           false,
		},
	}
}
