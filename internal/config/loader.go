package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads and merges configuration from global and project sources
func Load() (*Config, error) {
	cfg := DefaultConfig()

	loadEnvFiles()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil // Return defaults if no home dir
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cfg, nil // Return defaults if no cwd
	}

	// Load global config first
	globalPath := filepath.Join(home, ".payready", "config.yaml")
	if err := loadFile(globalPath, cfg); err != nil && !os.IsNotExist(err) {
		// Continue with defaults; config problems must not break the CLI
	}

	// Load project config (overrides global)
	projectPath := filepath.Join(cwd, ".payready", "config.yaml")
	if err := loadFile(projectPath, cfg); err != nil && !os.IsNotExist(err) {
		// Continue with whatever merged so far
	}

	applyEnvOverrides(cfg)

	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cwd)
	}
	if cfg.Project.Root == "" {
		cfg.Project.Root = cwd
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

// loadEnvFiles sources dotenv files the way the shell wrappers used to,
// without overriding variables already exported in the environment.
func loadEnvFiles() {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "payready", "env"))
	}
	paths = append(paths, ".env")

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnvOverrides maps well-known environment variables onto the config
func applyEnvOverrides(cfg *Config) {
	if os.Getenv("PAYREADY_OFFLINE_MODE") == "1" {
		cfg.Providers.Offline = true
	}
	if url := os.Getenv("REDIS_URL"); url != "" && cfg.Memory.RedisURL == "" {
		cfg.Memory.RedisURL = url
	}
	if url := os.Getenv("NEON_DATABASE_URL"); url != "" && cfg.BI.PostgresURL == "" {
		cfg.BI.PostgresURL = url
	}
	if vk := os.Getenv("PORTKEY_VIRTUAL_KEY"); vk != "" && cfg.Providers.Portkey.VirtualKey == "" {
		cfg.Providers.Portkey.VirtualKey = vk
	}
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".payready", "config.yaml")
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".payready", "config.yaml")
}

// MemoryDir resolves the memory directory against the project root
func (c *Config) MemoryDir() string {
	if filepath.IsAbs(c.Memory.Dir) {
		return c.Memory.Dir
	}
	return filepath.Join(c.Project.Root, c.Memory.Dir)
}
