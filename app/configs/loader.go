package configs

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configs file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configs: %w", err)
	}

	if c.Agent.MaxContextTurns == 0 {
		c.Agent.MaxContextTurns = 40
	}
	if c.Security.MaxArgLength == 0 {
		c.Security.MaxArgLength = 10000
	}
	// The file sandbox anchors relative paths at the workspace, so the
	// path validator must check against that same root first.
	if len(c.Security.AllowedRoots) == 0 || c.Security.AllowedRoots[0] != c.Agent.Workspace {
		c.Security.AllowedRoots = append([]string{c.Agent.Workspace}, c.Security.AllowedRoots...)
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "data/agent.db"
	}

	if c.Knowledge.Enabled {
		if c.LLM.EmbeddingsModel == "" {
			return fmt.Errorf("knowledge base enabled but llm.embeddings_model is not set")
		}
		if c.Knowledge.Collection == "" {
			c.Knowledge.Collection = "knowledge"
		}
		if c.Knowledge.QdrantHost == "" {
			c.Knowledge.QdrantHost = "localhost"
		}
		if c.Knowledge.QdrantPort == 0 {
			c.Knowledge.QdrantPort = 6334
		}
	}

	return nil
}
