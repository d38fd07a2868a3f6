package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:      "1",
		DefaultRoute: "claude",
		Providers: ProvidersConfig{
			Temperature: 0.2,
			MaxTokens:   1000,
			OpenRouter: ProviderConfig{
				BaseURL:    "https://openrouter.ai/api/v1",
				Model:      "openai/gpt-4o",
				TimeoutSec: 120,
			},
			Portkey: ProviderConfig{
				BaseURL:    "https://api.portkey.ai/v1",
				Model:      "gpt-4o",
				TimeoutSec: 120,
			},
			Anthropic: ProviderConfig{
				BaseURL:    "https://api.anthropic.com/v1",
				Model:      "claude-sonnet-4-20250514",
				TimeoutSec: 120,
			},
			OpenAI: ProviderConfig{
				BaseURL:    "https://api.openai.com/v1",
				Model:      "gpt-4o",
				TimeoutSec: 120,
			},
			Perplexity: ProviderConfig{
				BaseURL:    "https://api.perplexity.ai",
				Model:      "sonar-pro",
				TimeoutSec: 120,
			},
		},
		Memory: MemoryConfig{
			Dir:    ".project/memory",
			TTLSec: 3600,
		},
		Context: ContextConfig{
			Enabled:      true,
			CacheTTLMin:  10,
			RecentFiles:  10,
			RecentCommit: 10,
		},
		Tekton: TektonConfig{
			OutputDir:     "artifacts",
			DebateRounds:  2,
			MinConfidence: 0.70,
		},
		RAG: RAGConfig{
			DBPath:     ".payready/rag.db",
			EmbedModel: "text-embedding-3-small",
			Dimensions: 384,
			ServeAddr:  ":8787",
		},
		BI: BIConfig{
			CSVCache:   "data/foundations/slack_metrics.csv",
			ChannelCap: 50,
			ServeAddr:  ":8788",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// WriteDefault writes the default global configuration to a file
func WriteDefault(path string) error {
	content := `# PayReady AI Global Configuration
version: "1"

# Route used when intent classification is inconclusive
default_route: claude

# Hosted providers. API keys are read from the environment only:
#   OPENROUTER_API_KEY, PORTKEY_API_KEY, ANTHROPIC_API_KEY,
#   OPENAI_API_KEY, PERPLEXITY_API_KEY
providers:
  offline: false
  temperature: 0.2
  max_tokens: 1000
  openrouter:
    base_url: https://openrouter.ai/api/v1
    model: openai/gpt-4o
  portkey:
    base_url: https://api.portkey.ai/v1
    model: gpt-4o
    # virtual_key: pk-vk-...
  anthropic:
    base_url: https://api.anthropic.com/v1
    model: claude-sonnet-4-20250514
  openai:
    base_url: https://api.openai.com/v1
    model: gpt-4o
  perplexity:
    base_url: https://api.perplexity.ai
    model: sonar-pro

# Tiered memory: Redis -> JSONL file -> in-memory
memory:
  # redis_url: redis://localhost:6379/0  (or set REDIS_URL)
  dir: .project/memory
  ttl_sec: 3600

# Git context injected into prompts
context:
  enabled: true
  cache_ttl_min: 10
  recent_files: 10
  recent_commits: 10

# Tekton staged workflow
tekton:
  output_dir: artifacts
  debate_rounds: 2
  min_confidence: 0.70

# Local RAG index
rag:
  db_path: .payready/rag.db
  embed_model: text-embedding-3-small
  dimensions: 384
  serve_addr: ":8787"

# BI / Slack analytics
bi:
  csv_cache: data/foundations/slack_metrics.csv
  channel_cap: 50
  serve_addr: ":8788"
  # postgres_url read from NEON_DATABASE_URL when unset

log:
  level: info
  format: console
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// WriteProjectDefault writes the default project configuration to a file
func WriteProjectDefault(path string) error {
	content := `# PayReady AI Project Configuration
version: "1"

# Project information
project:
  name: ""  # Auto-detected from directory name if empty

# Override global settings as needed
# default_route: claude
# memory:
#   dir: .project/memory
# tekton:
#   output_dir: artifacts
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}
