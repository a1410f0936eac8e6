package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultSystemPrompt forces structured Markdown output so replies render
// consistently in the web client.
const defaultSystemPrompt = "You are Synthoria, a helpful AI assistant. " +
	"Always format your answers as well-structured Markdown: use headings, " +
	"bullet lists, and fenced code blocks with language tags where appropriate."

type config struct {
	Port string `yaml:"port"`

	SystemPrompt string `yaml:"systemPrompt"`

	OpenRouterAPIKey   string `yaml:"openRouterApiKey"`
	ClerkSecretKey     string `yaml:"clerkSecretKey"`
	ClerkWebhookSecret string `yaml:"clerkWebhookSecret"`

	// Models maps public model keys to upstream model identifiers. Requests
	// naming a key outside this map are rejected before streaming begins.
	Models map[string]string `yaml:"models"`

	// MaxStreamSeconds is the coarse ceiling on one relay request.
	MaxStreamSeconds int `yaml:"maxStreamSeconds"`

	DBPath string `yaml:"dbPath"`
	LogDir string `yaml:"logDir"`
}

func defaultModels() map[string]string {
	return map[string]string{
		"gpt-5":           "openai/gpt-5",
		"claude-sonnet-4": "anthropic/claude-sonnet-4",
		"gemini-2.5-pro":  "google/gemini-2.5-pro",
		"grok-4":          "x-ai/grok-4",
	}
}

func loadConfig(path string) (config, error) {
	cfgFile, err := os.Open(path)
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer cfgFile.Close()

	cfg := config{}
	if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if len(cfg.Models) == 0 {
		cfg.Models = defaultModels()
	}
	if cfg.MaxStreamSeconds == 0 {
		cfg.MaxStreamSeconds = 60
	}
	if cfg.OpenRouterAPIKey == "" {
		cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.ClerkSecretKey == "" {
		cfg.ClerkSecretKey = os.Getenv("CLERK_SECRET_KEY")
	}
	if cfg.ClerkWebhookSecret == "" {
		cfg.ClerkWebhookSecret = os.Getenv("CLERK_WEBHOOK_SECRET")
	}

	if cfg.OpenRouterAPIKey == "" {
		return config{}, fmt.Errorf("openRouterApiKey is required")
	}

	return cfg, nil
}

func (c config) streamTimeout() time.Duration {
	return time.Duration(c.MaxStreamSeconds) * time.Second
}
