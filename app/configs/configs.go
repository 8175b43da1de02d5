package configs

import "time"

type Config struct {
	Agent     Agent          `yaml:"agent" validate:"required"`
	LLM       LLM            `yaml:"llm" validate:"required"`
	Security  Security       `yaml:"security" validate:"required"`
	Storage   Storage        `yaml:"storage"`
	Knowledge Knowledge      `yaml:"knowledge,omitempty"`
	Clients   []ClientConfig `yaml:"clients,omitempty" validate:"dive"`
}

type Agent struct {
	MaxIterations           int    `yaml:"max_iterations" validate:"required,min=1"`
	IterationTimeoutSeconds int    `yaml:"iteration_timeout_seconds" validate:"required,min=1"`
	MaxContextTurns         int    `yaml:"max_context_turns" validate:"min=0"`
	Workspace               string `yaml:"workspace" validate:"required"`
}

func (a Agent) IterationTimeout() time.Duration {
	return time.Duration(a.IterationTimeoutSeconds) * time.Second
}

type LLM struct {
	BaseURL         string `yaml:"base_url" validate:"required,url"`
	Model           string `yaml:"model" validate:"required"`
	EmbeddingsModel string `yaml:"embeddings_model,omitempty"`
	MaxRetries      int    `yaml:"max_retries" validate:"required,min=1"`
}

type Security struct {
	AllowedCommands []string `yaml:"allowed_commands" validate:"required,min=1"`
	AllowedRoots    []string `yaml:"allowed_roots"`
	AllowedDomains  []string `yaml:"allowed_domains"`
	BlockedPorts    []int    `yaml:"blocked_ports,omitempty"`
	MaxArgLength    int      `yaml:"max_arg_length,omitempty"`
}

type Storage struct {
	DBPath string `yaml:"db_path"`
}

type Knowledge struct {
	Enabled    bool   `yaml:"enabled"`
	Collection string `yaml:"collection,omitempty"`
	Folder     string `yaml:"folder,omitempty"`
	QdrantHost string `yaml:"qdrant_host,omitempty"`
	QdrantPort int    `yaml:"qdrant_port,omitempty"`
}

// ClientConfig describes one invocation connector (Discord, ...).
type ClientConfig struct {
	Type    string            `yaml:"type" validate:"required"`
	Enabled bool              `yaml:"enabled"`
	Config  map[string]string `yaml:"config,omitempty"`
}
