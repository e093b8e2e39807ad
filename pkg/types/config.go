package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperinsight/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CrawlerConfig holds settings for the arXiv source fetcher and the
// scheduled crawl trigger.
type CrawlerConfig struct {
	HTTPConfig `yaml:",inline"`

	// Query is the default arXiv search query (e.g. "cat:cs.AI").
	Query string `json:"query" yaml:"query"`

	// MaxResults caps the number of feed entries per fetch (1-50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Schedule is the cron expression for the daily crawl (default
	// "0 0 * * *"). The crawl only runs when the persisted
	// CrawlerSettings record has Enabled set.
	Schedule string `json:"schedule" yaml:"schedule"`
}

// TextractConfig holds settings for the external PDF-to-text service.
type TextractConfig struct {
	HTTPConfig `yaml:",inline"`

	// ServiceURL is the endpoint of the text-extraction service.
	ServiceURL string `json:"service_url" yaml:"service_url"`

	// MaxRetries is the retry budget for rate-limited calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AIConfig holds shared settings for components that call an
// OpenAI-compatible chat completions API.
type AIConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StorageConfig holds settings for the SQLite store.
type StorageConfig struct {
	// Path is the database file location (e.g. "data/paperinsight.db").
	Path string `json:"path" yaml:"path"`

	// QuotaLimit is the default per-user daily synthesis allowance
	// applied when a user has no quota row yet (default 3).
	QuotaLimit int `json:"quota_limit" yaml:"quota_limit"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// UploadsDir is the directory where uploaded PDFs are stored and
	// served from.
	UploadsDir string `json:"uploads_dir" yaml:"uploads_dir"`

	// PublicBaseURL is the externally reachable base URL used to hand
	// uploaded files to the text-extraction service.
	PublicBaseURL string `json:"public_base_url" yaml:"public_base_url"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Crawler     CrawlerConfig  `json:"crawler" yaml:"crawler"`
	Textract    TextractConfig `json:"textract" yaml:"textract"`
	Extractor   AIConfig       `json:"extractor" yaml:"extractor"`
	Synthesizer AIConfig       `json:"synthesizer" yaml:"synthesizer"`
	Storage     StorageConfig  `json:"storage" yaml:"storage"`
	Server      ServerConfig   `json:"server" yaml:"server"`
}
