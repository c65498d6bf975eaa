package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the static service configuration. It is read once at startup;
// environment variables take precedence over the YAML file.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Backend struct {
		Mode        string `yaml:"mode"` // "local", "hosted" or "hybrid"
		LocalURL    string `yaml:"local_url"`
		HostedURL   string `yaml:"hosted_url"`
		HostedModel string `yaml:"hosted_model"`
		Model       string `yaml:"model"`
		MaxTokens   int    `yaml:"max_tokens"`
		TimeoutSecs int    `yaml:"timeout"`
	} `yaml:"backend"`
	Verifier struct {
		URL       string `yaml:"url"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
	} `yaml:"verifier"`
	Scorer struct {
		URL         string `yaml:"url"`
		TimeoutSecs int    `yaml:"timeout"`
	} `yaml:"scorer"`
	DocServer struct {
		URL         string `yaml:"url"`
		TimeoutSecs int    `yaml:"timeout"`
	} `yaml:"doc_server"`
	Splitter struct {
		// ModelAssisted asks the generation model to place the part
		// separators itself; the deterministic algorithm stays the fallback.
		ModelAssisted bool `yaml:"model_assisted"`
	} `yaml:"splitter"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	History struct {
		MaxTurns int `yaml:"max_turns"`
	} `yaml:"history"`
}

// LoadConfig reads the YAML configuration file and applies defaults and
// environment overrides. A missing file is not an error; defaults apply.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8091"
	}
	if c.Backend.Mode == "" {
		c.Backend.Mode = "hybrid"
	}
	if c.Backend.LocalURL == "" {
		c.Backend.LocalURL = "http://localhost:5263/v1/chat/completions"
	}
	if c.Backend.HostedURL == "" {
		c.Backend.HostedURL = "https://api.mistral.ai/v1"
	}
	if c.Backend.HostedModel == "" {
		c.Backend.HostedModel = "mistral-small-latest"
	}
	if c.Backend.Model == "" {
		c.Backend.Model = "Mistral-Large-Instruct-2407-AWQ"
	}
	if c.Backend.MaxTokens == 0 {
		c.Backend.MaxTokens = 6000
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = 120
	}
	if c.Verifier.URL == "" {
		c.Verifier.URL = "http://localhost:8787/v1/chat/completions"
	}
	if c.Verifier.Model == "" {
		c.Verifier.Model = "Ministral-8B-Instruct-2410"
	}
	if c.Verifier.MaxTokens == 0 {
		c.Verifier.MaxTokens = 10
	}
	if c.Scorer.URL == "" {
		c.Scorer.URL = "http://localhost:8090/score"
	}
	if c.Scorer.TimeoutSecs == 0 {
		c.Scorer.TimeoutSecs = 60
	}
	if c.DocServer.URL == "" {
		c.DocServer.URL = "http://localhost:8077"
	}
	if c.DocServer.TimeoutSecs == 0 {
		c.DocServer.TimeoutSecs = 2
	}
	if c.Database.Path == "" {
		c.Database.Path = "./hotline.db"
	}
	if c.History.MaxTurns == 0 {
		c.History.MaxTurns = 10
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BACKEND_MODE"); v != "" {
		c.Backend.Mode = v
	}
	if v := os.Getenv("LOCAL_LLM_URL"); v != "" {
		c.Backend.LocalURL = v
	}
	if v := os.Getenv("SCORER_URL"); v != "" {
		c.Scorer.URL = v
	}
	if v := os.Getenv("DOC_SERVER_URL"); v != "" {
		c.DocServer.URL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Database.Path = v
	}
}
