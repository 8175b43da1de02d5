package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"GoTaskAgent/app/configs"
	"GoTaskAgent/app/models"
	"GoTaskAgent/app/tools"
	"GoTaskAgent/app/utils"
)

const (
	chunkSize  = 500
	overlap    = 100
	vectorSize = 2560

	defaultTopK = 5
)

type VectorDoc struct {
	ID       string
	Content  string
	Metadata map[string]any
	Vector   []float32
}

type Interface interface {
	Search(ctx context.Context, text string, filters map[string]string, k int) ([]VectorDoc, error)
	Init(context.Context) error
}

type vectorStore interface {
	UpsertBatch(ctx context.Context, docs []VectorDoc) error
	Query(ctx context.Context, vector []float32, filters map[string]string, k int) ([]VectorDoc, error)
	EnsureCollection(ctx context.Context, vectorSize int) (bool, error)
	Close() error
}

type Client struct {
	vectors vectorStore
	model   models.Interface
	folder  string
}

func NewClient(model models.Interface, cfg configs.Knowledge) (*Client, error) {
	vectors, err := NewQdrantStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		model:   model,
		vectors: vectors,
		folder:  cfg.Folder,
	}, nil
}

func (c *Client) Search(ctx context.Context, text string, filters map[string]string, k int) ([]VectorDoc, error) {
	vec, err := c.model.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return c.vectors.Query(ctx, vec, filters, k)
}

// Init creates the collection and, on first creation, indexes every
// file in the configured folder. An existing collection is left as is.
func (c *Client) Init(ctx context.Context) error {
	alreadyExists, err := c.vectors.EnsureCollection(ctx, vectorSize)
	if err != nil {
		return err
	}
	if alreadyExists {
		return nil
	}

	folder := c.folder
	if folder == "" {
		folder = "./knowledge_data"
	}
	if _, err = os.Stat(folder); os.IsNotExist(err) {
		return nil
	}
	paths, err := utils.LoadFilesFromDir(folder)
	if err != nil {
		return err
	}

	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		chunks := ChunkText(string(raw), chunkSize, overlap)
		batch := make([]VectorDoc, 0, len(chunks))

		for i, ch := range chunks {
			vec, err := c.model.EmbedText(ctx, ch)
			if err != nil {
				return err
			}
			batch = append(batch, VectorDoc{
				ID:      uuid.New().String(),
				Content: ch,
				Metadata: map[string]any{
					"source": filepath.Base(p),
					"chunk":  i,
				},
				Vector: vec,
			})
		}

		if err = c.vectors.UpsertBatch(ctx, batch); err != nil {
			return err
		}
	}

	return nil
}

// Tool exposes the knowledge base to the agent as a regular tool.
func (c *Client) Tool() tools.Tool {
	return tools.Tool{
		Name:        "knowledge_search",
		Description: "Search the knowledge base for passages relevant to a query.",
		Parameters: tools.Parameter{
			Type: "object",
			Properties: map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look up.",
				},
			},
			Required: []string{"query"},
		},
		HandlerFunc: func(ctx context.Context, action tools.ToolTask) (string, error) {
			query, _ := action.Parameters["query"].(string)
			if strings.TrimSpace(query) == "" {
				return "", fmt.Errorf("query is required")
			}
			docs, err := c.Search(ctx, query, nil, defaultTopK)
			if err != nil {
				return "", err
			}
			if len(docs) == 0 {
				return "No relevant passages found.", nil
			}
			var b strings.Builder
			for i, d := range docs {
				fmt.Fprintf(&b, "[%d] %v: %s\n", i+1, d.Metadata["source"], d.Content)
			}
			return b.String(), nil
		},
	}
}

func ChunkText(text string, size, overlap int) []string {
	runes := []rune(text)
	var chunks []string

	// An overlap at or above the chunk size would stall the walk.
	step := size - overlap
	if step < 1 {
		step = 1
	}
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}
