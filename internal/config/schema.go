package config

// Config represents the full PayReady AI configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Default provider route when the router is inconclusive
	DefaultRoute string `yaml:"default_route" mapstructure:"default_route"`

	// Provider configuration
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`

	// Memory configuration
	Memory MemoryConfig `yaml:"memory" mapstructure:"memory"`

	// Git context injection
	Context ContextConfig `yaml:"context" mapstructure:"context"`

	// Tekton workflow configuration
	Tekton TektonConfig `yaml:"tekton" mapstructure:"tekton"`

	// Local RAG configuration
	RAG RAGConfig `yaml:"rag" mapstructure:"rag"`

	// BI / Slack analytics configuration
	BI BIConfig `yaml:"bi" mapstructure:"bi"`

	// Logging configuration
	Log LogConfig `yaml:"log" mapstructure:"log"`

	// Project-specific settings (only in project config)
	Project ProjectConfig `yaml:"project" mapstructure:"project"`
}

// ProvidersConfig holds per-provider routing settings.
// API keys always come from the environment, never from config files.
type ProvidersConfig struct {
	// Offline forces stub clients for every provider
	Offline bool `yaml:"offline" mapstructure:"offline"`

	// Temperature and MaxTokens apply to every chat request
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`

	OpenRouter ProviderConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Portkey    ProviderConfig `yaml:"portkey" mapstructure:"portkey"`
	Anthropic  ProviderConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Perplexity ProviderConfig `yaml:"perplexity" mapstructure:"perplexity"`
}

// ProviderConfig configures a single hosted provider
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	VirtualKey string `yaml:"virtual_key" mapstructure:"virtual_key"`
	TimeoutSec int    `yaml:"timeout_sec" mapstructure:"timeout_sec"`
}

// MemoryConfig configures the tiered memory store
type MemoryConfig struct {
	// RedisURL enables the Redis tier when set (also read from REDIS_URL)
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`

	// Dir is the file-tier directory, relative paths resolve against the project root
	Dir string `yaml:"dir" mapstructure:"dir"`

	// TTLSec is the Redis record TTL
	TTLSec int `yaml:"ttl_sec" mapstructure:"ttl_sec"`
}

// ContextConfig configures git context gathering
type ContextConfig struct {
	Enabled      bool `yaml:"enabled" mapstructure:"enabled"`
	CacheTTLMin  int  `yaml:"cache_ttl_min" mapstructure:"cache_ttl_min"`
	RecentFiles  int  `yaml:"recent_files" mapstructure:"recent_files"`
	RecentCommit int  `yaml:"recent_commits" mapstructure:"recent_commits"`
}

// TektonConfig configures the staged workflow runner
type TektonConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`

	// DebateRounds is the number of triad refinement rounds after opening positions
	DebateRounds int `yaml:"debate_rounds" mapstructure:"debate_rounds"`

	// MinConfidence blocks a stage when mediator confidence falls below it
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// RAGConfig configures the local vector index
type RAGConfig struct {
	DBPath     string `yaml:"db_path" mapstructure:"db_path"`
	EmbedModel string `yaml:"embed_model" mapstructure:"embed_model"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
	ServeAddr  string `yaml:"serve_addr" mapstructure:"serve_addr"`
}

// BIConfig configures Slack analytics collection
type BIConfig struct {
	CSVCache    string `yaml:"csv_cache" mapstructure:"csv_cache"`
	ChannelCap  int    `yaml:"channel_cap" mapstructure:"channel_cap"`
	ServeAddr   string `yaml:"serve_addr" mapstructure:"serve_addr"`
	PostgresURL string `yaml:"postgres_url" mapstructure:"postgres_url"`
}

// LogConfig configures zerolog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// ProjectConfig holds project-specific settings
type ProjectConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	Root string `yaml:"root" mapstructure:"root"`
}
